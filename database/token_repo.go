package database

import (
	"context"
	"errors"
	"time"

	"github.com/rpupo63/foodgram-backend/errs"
	"github.com/rpupo63/foodgram-backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TokenRepo keeps revoked token ids in PostgreSQL. It is the fallback
// revocation list when no Redis is configured.
type TokenRepo struct {
	db *gorm.DB
}

func NewTokenRepo(db *gorm.DB) *TokenRepo {
	return &TokenRepo{db}
}

func (r *TokenRepo) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.RevokedToken{JTI: jti, ExpiresAt: expiresAt.UTC()}).Error
	return errs.NewDatabaseError("revoke", "token", err)
}

func (r *TokenRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var token models.RevokedToken
	err := r.db.WithContext(ctx).Where("jti = ?", jti).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errs.NewDatabaseError("load", "revoked token", err)
	}
	return true, nil
}

// PurgeExpired drops entries whose tokens have expired on their own.
func (r *TokenRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at < ?", now.UTC()).Delete(&models.RevokedToken{})
	if result.Error != nil {
		return 0, errs.NewDatabaseError("purge", "revoked tokens", result.Error)
	}
	return result.RowsAffected, nil
}
