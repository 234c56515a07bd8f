package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm/logger"

	"github.com/rpupo63/foodgram-backend/api"
	"github.com/rpupo63/foodgram-backend/config"
	"github.com/rpupo63/foodgram-backend/database"
	"github.com/rpupo63/foodgram-backend/models"
	"github.com/rpupo63/foodgram-backend/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: Error loading .env file: %v\n", err)
	}

	c := config.New()
	setupLogging(c)
	log.Info().Msg("Initializing app...")

	ctx := context.Background()
	if err := loadSecrets(ctx, c); err != nil {
		log.Fatal().Err(err).Msg("Error loading parameters from SSM")
	}

	db, err := database.Open(database.Options{
		DSN:           buildDSN(c),
		ReplicaDSNs:   config.GetList(c, "DB_REPLICA_DSNS"),
		SlowThreshold: config.GetDuration(c, "DB_SLOW_THRESHOLD", time.Second),
		LogLevel:      gormLogLevel(config.GetString(c, "DB_LOG_LEVEL", "warn")),
		MaxOpenConns:  config.GetInt(c, "DB_MAX_OPEN_CONNS", 20),
		MaxIdleConns:  config.GetInt(c, "DB_MAX_IDLE_CONNS", 5),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}

	if config.GetBool(c, "GENERATE_MODELS", false) {
		log.Info().Msg("Generating models and query helpers...")
		models.GenerateModels(db)
		return
	}

	if config.GetBool(c, "GENERATE_COLUMN_REPORT", false) {
		log.Info().Msg("Generating column mismatch report...")
		models.GenerateColumnMismatchReportStandalone(db)
		return
	}

	if config.GetBool(c, "AUTO_MIGRATE", true) {
		if err := models.Migrate(db); err != nil {
			log.Fatal().Err(err).Msg("Error migrating schema")
		}
	}

	currentDB := database.New(db)

	if loaded, err := loadFixtures(ctx, c, currentDB); err != nil {
		log.Fatal().Err(err).Msg("Error loading fixtures")
	} else if loaded {
		return
	}

	revoker, purge, err := newRevoker(c, currentDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Error configuring token revocation")
	}

	tokens, err := services.NewTokenService(
		config.GetString(c, "JWT_SECRET", ""),
		config.GetDuration(c, "TOKEN_TTL", 24*time.Hour),
		revoker,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Error configuring tokens")
	}

	images, mediaRoot, err := newImageStore(ctx, c)
	if err != nil {
		log.Fatal().Err(err).Msg("Error configuring image storage")
	}

	server, err := api.NewServer(c, api.Dependencies{
		Database:  currentDB,
		Tokens:    tokens,
		Images:    images,
		MediaRoot: mediaRoot,
		Metrics:   api.NewMetrics(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing server")
	}

	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	if purge != nil {
		go purgeRevokedTokens(purgeCtx, purge, config.GetDuration(c, "TOKEN_PURGE_INTERVAL", time.Hour))
	}

	errChannel := make(chan error)
	defer close(errChannel)

	go server.Start(errChannel)

	// Listen for interrupt signals to gracefully shutdown the server
	go listenToInterrupt(errChannel)

	fatalErr := <-errChannel
	log.Info().Msgf("Closing server: %v", fatalErr)

	server.ShutdownGracefully(30 * time.Second)
}

func setupLogging(c map[string]string) {
	level, err := zerolog.ParseLevel(strings.ToLower(config.GetString(c, "LOG_LEVEL", "info")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if config.GetString(c, "APP_ENV", "production") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// loadSecrets overlays SSM parameters when SSM_PARAMETER_PATH is set.
func loadSecrets(ctx context.Context, c map[string]string) error {
	path := config.GetString(c, "SSM_PARAMETER_PATH", "")
	if path == "" {
		return nil
	}

	awsCfg, err := config.LoadAWSConfig(ctx, c)
	if err != nil {
		return err
	}
	loaded, err := config.LoadSSMParameters(ctx, ssm.NewFromConfig(awsCfg), path, c)
	if err != nil {
		return err
	}
	log.Info().Int("parameters", loaded).Str("path", path).Msg("Loaded parameters from SSM")
	return nil
}

func buildDSN(c map[string]string) string {
	if dsn := config.GetString(c, "DATABASE_URL", ""); dsn != "" {
		return dsn
	}
	host := config.GetString(c, "DB_HOST", "")
	if host == "" {
		return ""
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		host,
		config.GetString(c, "DB_USER", "postgres"),
		config.GetString(c, "DB_PASSWORD", ""),
		config.GetString(c, "DB_NAME", "foodgram"),
		config.GetString(c, "DB_PORT", "5432"),
		config.GetString(c, "DB_SSLMODE", "disable"),
	)
}

func gormLogLevel(name string) logger.LogLevel {
	switch strings.ToLower(name) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// loadFixtures imports the ingredient and tag files named in the environment.
// It reports whether any file was loaded, in which case the process exits.
func loadFixtures(ctx context.Context, c map[string]string, db database.Database) (bool, error) {
	ingredientsFile := config.GetString(c, "LOAD_INGREDIENTS_FILE", "")
	tagsFile := config.GetString(c, "LOAD_TAGS_FILE", "")
	if ingredientsFile == "" && tagsFile == "" {
		return false, nil
	}

	if ingredientsFile != "" {
		f, err := os.Open(ingredientsFile)
		if err != nil {
			return true, fmt.Errorf("open %s: %w", ingredientsFile, err)
		}
		n, err := database.LoadIngredients(ctx, db.IngredientRepo(), f)
		f.Close()
		if err != nil {
			return true, err
		}
		log.Info().Int("created", n).Str("file", ingredientsFile).Msg("Loaded ingredients")
	}

	if tagsFile != "" {
		f, err := os.Open(tagsFile)
		if err != nil {
			return true, fmt.Errorf("open %s: %w", tagsFile, err)
		}
		n, err := database.LoadTags(ctx, db.TagRepo(), f)
		f.Close()
		if err != nil {
			return true, err
		}
		log.Info().Int("created", n).Str("file", tagsFile).Msg("Loaded tags")
	}

	return true, nil
}

type tokenPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// newRevoker keeps the revocation list in Redis when REDIS_URL is set and in
// PostgreSQL otherwise. Only the PostgreSQL list needs purging.
func newRevoker(c map[string]string, db database.Database) (services.Revoker, tokenPurger, error) {
	redisURL := config.GetString(c, "REDIS_URL", "")
	if redisURL == "" {
		return db.TokenRepo(), db.TokenRepo(), nil
	}

	client, err := services.NewRedisClient(redisURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Msg("Using Redis for token revocation")
	return services.NewRedisRevoker(client), nil, nil
}

func purgeRevokedTokens(ctx context.Context, purger tokenPurger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := purger.PurgeExpired(ctx, now)
			if err != nil {
				log.Error().Err(err).Msg("Error purging revoked tokens")
				continue
			}
			if n > 0 {
				log.Debug().Int64("purged", n).Msg("Purged expired revoked tokens")
			}
		}
	}
}

// newImageStore uses S3 when IMAGE_S3_BUCKET is set, a local directory otherwise.
// The returned media root is non-empty only for the local store.
func newImageStore(ctx context.Context, c map[string]string) (services.ImageStore, string, error) {
	bucket := config.GetString(c, "IMAGE_S3_BUCKET", "")
	if bucket == "" {
		store := services.NewLocalImageStore(config.GetString(c, "MEDIA_ROOT", "media"), services.GetMediaURL(c))
		return store, store.Root(), nil
	}

	awsCfg, err := config.LoadAWSConfig(ctx, c)
	if err != nil {
		return nil, "", err
	}
	store := services.NewS3ImageStore(
		s3.NewFromConfig(awsCfg),
		bucket,
		awsCfg.Region,
		config.GetString(c, "IMAGE_BASE_URL", ""),
	)
	return store, "", nil
}

// listenToInterrupt waits for SIGINT or SIGTERM and then sends an error to the error channel.
func listenToInterrupt(errChannel chan<- error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	errChannel <- fmt.Errorf("%s", <-c)
}
