package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rpupo63/foodgram-backend/errs"
)

// ImageStore persists recipe images under opaque keys.
type ImageStore interface {
	Save(ctx context.Context, key, contentType string, data []byte) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

type DecodedImage struct {
	ContentType string
	Ext         string
	Data        []byte
}

// DecodeDataURI parses "data:image/png;base64,...". The payload must sniff as
// the declared type's family.
func DecodeDataURI(field, raw string) (*DecodedImage, error) {
	header, payload, ok := strings.Cut(raw, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, errs.NewBase64DecodeError(field, nil)
	}
	contentType := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, errs.NewUnsupportedImageError(field, contentType)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errs.NewBase64DecodeError(field, err)
	}
	if len(data) == 0 {
		return nil, errs.NewBase64DecodeError(field, nil)
	}
	if sniffed := http.DetectContentType(data); sniffed != contentType {
		return nil, errs.NewUnsupportedImageError(field, sniffed)
	}

	return &DecodedImage{ContentType: contentType, Ext: ext, Data: data}, nil
}

// NewImageKey returns recipes/YYYY/MM/DD/<uuid>.<ext>.
func NewImageKey(now time.Time, ext string) string {
	return path.Join("recipes", now.UTC().Format("2006/01/02"), uuid.NewString()+"."+ext)
}

type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3ImageStore struct {
	client  S3API
	bucket  string
	baseURL string
}

// NewS3ImageStore serves images from baseURL, or from the bucket's virtual
// host when baseURL is empty.
func NewS3ImageStore(client S3API, bucket, region, baseURL string) *S3ImageStore {
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &S3ImageStore{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *S3ImageStore) Save(ctx context.Context, key, contentType string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return errs.NewStorageError("put image", err)
	}
	return nil
}

func (s *S3ImageStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errs.NewStorageError("delete image", err)
	}
	return nil
}

func (s *S3ImageStore) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.baseURL + "/" + key
}

// LocalImageStore writes images below root and serves them from baseURL.
type LocalImageStore struct {
	root    string
	baseURL string
}

func NewLocalImageStore(root, baseURL string) *LocalImageStore {
	return &LocalImageStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalImageStore) Root() string {
	return s.root
}

func (s *LocalImageStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid image key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *LocalImageStore) Save(ctx context.Context, key, contentType string, data []byte) error {
	p, err := s.path(key)
	if err != nil {
		return errs.NewStorageError("save image", err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errs.NewStorageError("save image", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return errs.NewStorageError("save image", err)
	}
	return nil
}

func (s *LocalImageStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return errs.NewStorageError("delete image", err)
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errs.NewStorageError("delete image", err)
	}
	return nil
}

func (s *LocalImageStore) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.baseURL + "/" + key
}
