package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// LoadAWSConfig resolves AWS credentials through the default chain. AWS_REGION
// from the env map wins over shared config files.
func LoadAWSConfig(ctx context.Context, c map[string]string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region := GetString(c, "AWS_REGION", ""); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

// LoadSSMParameters overlays every parameter stored under path onto c and
// returns how many were loaded. The key is the last path segment, so
// /foodgram/prod/JWT_SECRET becomes JWT_SECRET.
func LoadSSMParameters(ctx context.Context, client ssm.GetParametersByPathAPIClient, path string, c map[string]string) (int, error) {
	paginator := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:           aws.String(path),
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(true),
	})

	loaded := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return loaded, fmt.Errorf("fetch ssm parameters under %s: %w", path, err)
		}

		for _, param := range page.Parameters {
			name := aws.ToString(param.Name)
			key := name[strings.LastIndex(name, "/")+1:]
			if key == "" {
				continue
			}
			c[key] = aws.ToString(param.Value)
			loaded++
		}
	}

	return loaded, nil
}
