package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/rpupo63/foodgram-backend/errs"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

// Options configures the connection pool. ReplicaDSNs are optional read replicas.
type Options struct {
	DSN           string
	ReplicaDSNs   []string
	SlowThreshold time.Duration
	LogLevel      logger.LogLevel
	MaxOpenConns  int
	MaxIdleConns  int
}

// Open connects to PostgreSQL. Reads are spread over the replicas when any
// are configured; writes and transactions stay on the primary.
func Open(opts Options) (*gorm.DB, error) {
	if opts.DSN == "" {
		return nil, errs.NewEnvironmentVariableError("DATABASE_URL")
	}
	if opts.SlowThreshold == 0 {
		opts.SlowThreshold = time.Second
	}
	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             opts.SlowThreshold,
			LogLevel:                  opts.LogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  opts.DSN,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, errs.NewServiceUnreachableError("postgres", err)
	}

	if len(opts.ReplicaDSNs) > 0 {
		replicas := make([]gorm.Dialector, 0, len(opts.ReplicaDSNs))
		for _, dsn := range opts.ReplicaDSNs {
			replicas = append(replicas, postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}))
		}
		resolver := dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		})
		if opts.MaxOpenConns > 0 {
			resolver = resolver.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if err := db.Use(resolver); err != nil {
			return nil, fmt.Errorf("register read replicas: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

type Database struct {
	db               *gorm.DB
	recipeRepo       *RecipeRepo
	favoriteRepo     *RecipeMarkRepo
	shoppingCartRepo *RecipeMarkRepo
	ingredientRepo   *IngredientRepo
	tagRepo          *TagRepo
	userRepo         *UserRepo
	subscriptionRepo *SubscriptionRepo
	tokenRepo        *TokenRepo
}

// New initializes a new Database struct with each repository using a shared GORM database instance
func New(db *gorm.DB) Database {
	return Database{
		db:               db,
		recipeRepo:       NewRecipeRepo(db),
		favoriteRepo:     NewFavoriteRepo(db),
		shoppingCartRepo: NewShoppingCartRepo(db),
		ingredientRepo:   NewIngredientRepo(db),
		tagRepo:          NewTagRepo(db),
		userRepo:         NewUserRepo(db),
		subscriptionRepo: NewSubscriptionRepo(db),
		tokenRepo:        NewTokenRepo(db),
	}
}

func (d Database) RecipeRepo() *RecipeRepo {
	return d.recipeRepo
}

func (d Database) FavoriteRepo() *RecipeMarkRepo {
	return d.favoriteRepo
}

func (d Database) ShoppingCartRepo() *RecipeMarkRepo {
	return d.shoppingCartRepo
}

func (d Database) IngredientRepo() *IngredientRepo {
	return d.ingredientRepo
}

func (d Database) TagRepo() *TagRepo {
	return d.tagRepo
}

func (d Database) UserRepo() *UserRepo {
	return d.userRepo
}

func (d Database) SubscriptionRepo() *SubscriptionRepo {
	return d.subscriptionRepo
}

func (d Database) TokenRepo() *TokenRepo {
	return d.tokenRepo
}

// Ping checks the primary connection.
func (d Database) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
