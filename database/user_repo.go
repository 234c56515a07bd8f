package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rpupo63/foodgram-backend/errs"
	"github.com/rpupo63/foodgram-backend/models"
	"gorm.io/gorm"
)

type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db}
}

// Create inserts user. A taken email or username becomes a field error.
func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && errs.IsUniqueViolation(err) {
		switch pgErr.ConstraintName {
		case "idx_users_email":
			return errs.NewFieldError("email", "a user with this email already exists")
		case "idx_users_username":
			return errs.NewFieldError("username", "a user with this username already exists")
		}
	}
	return errs.NewDatabaseError("create", "user", err)
}

func (r *UserRepo) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, errs.NewDatabaseError("load", "user", err)
	}
	return &user, nil
}

// FindByEmail matches case-insensitively.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		return nil, errs.NewDatabaseError("load", "user", err)
	}
	return &user, nil
}

// List returns one page of users ordered by id and the total count.
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, errs.NewDatabaseError("count", "users", err)
	}

	var users []models.User
	q := r.db.WithContext(ctx).Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, 0, errs.NewDatabaseError("list", "users", err)
	}
	return users, total, nil
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id uint, hash string) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password_hash", hash)
	if result.Error != nil {
		return errs.NewDatabaseError("update", "user", result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.NewNotFound("user")
	}
	return nil
}
