package database

import (
	"context"
	"errors"

	"github.com/rpupo63/foodgram-backend/errs"
	"github.com/rpupo63/foodgram-backend/models"
	"gorm.io/gorm"
)

const maxSlugAttempts = 50

type TagRepo struct {
	db *gorm.DB
}

func NewTagRepo(db *gorm.DB) *TagRepo {
	return &TagRepo{db}
}

func (r *TagRepo) List(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := r.db.WithContext(ctx).Order("id").Find(&tags).Error; err != nil {
		return nil, errs.NewDatabaseError("list", "tags", err)
	}
	return tags, nil
}

func (r *TagRepo) FindByID(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := r.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		return nil, errs.NewDatabaseError("load", "tag", err)
	}
	return &tag, nil
}

// Create stores a tag with a slug derived from its name. A taken slug gets
// a numeric suffix.
func (r *TagRepo) Create(ctx context.Context, name string, color *string) (*models.Tag, error) {
	base := models.Slugify(name)
	if base == "" {
		return nil, errs.NewFieldError("name", "name must contain at least one letter or digit")
	}

	var tag models.Tag
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.Tag{}).Where("name = ?", name).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return errs.NewFieldError("name", "a tag with this name already exists")
		}

		for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
			candidate := models.SlugCandidate(base, attempt)
			if err := tx.Model(&models.Tag{}).Where("slug = ?", candidate).Count(&taken).Error; err != nil {
				return err
			}
			if taken == 0 {
				tag = models.Tag{Name: name, Color: color, Slug: candidate}
				return tx.Create(&tag).Error
			}
		}
		return errs.NewFieldError("name", "could not derive a free slug")
	})
	if err != nil {
		return nil, errs.NewDatabaseError("create", "tag", err)
	}
	return &tag, nil
}

// GetOrCreate returns the tag named name, creating it when missing.
func (r *TagRepo) GetOrCreate(ctx context.Context, name string, color *string) (*models.Tag, bool, error) {
	var tag models.Tag
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&tag).Error
	if err == nil {
		return &tag, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, errs.NewDatabaseError("load", "tag", err)
	}

	created, err := r.Create(ctx, name, color)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}
