package database

import (
	"context"
	"errors"
	"strings"

	"github.com/rpupo63/foodgram-backend/errs"
	"github.com/rpupo63/foodgram-backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IngredientRepo struct {
	db *gorm.DB
}

func NewIngredientRepo(db *gorm.DB) *IngredientRepo {
	return &IngredientRepo{db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// List returns ingredients ordered by id. name filters by case-insensitive
// prefix, search by case-insensitive substring; empty values do not filter.
func (r *IngredientRepo) List(ctx context.Context, name, search string) ([]models.Ingredient, error) {
	q := r.db.WithContext(ctx).Preload("MeasurementUnit")
	if name != "" {
		q = q.Where("ingredients.name ILIKE ?", likeEscaper.Replace(name)+"%")
	}
	if search != "" {
		q = q.Where("ingredients.name ILIKE ?", "%"+likeEscaper.Replace(search)+"%")
	}

	var ingredients []models.Ingredient
	if err := q.Order("ingredients.id").Find(&ingredients).Error; err != nil {
		return nil, errs.NewDatabaseError("list", "ingredients", err)
	}
	return ingredients, nil
}

func (r *IngredientRepo) FindByID(ctx context.Context, id uint) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := r.db.WithContext(ctx).Preload("MeasurementUnit").First(&ingredient, id).Error; err != nil {
		return nil, errs.NewDatabaseError("load", "ingredient", err)
	}
	return &ingredient, nil
}

// Delete removes an ingredient. The RESTRICT foreign key from
// amount_ingredients rejects it while any recipe still lists it.
func (r *IngredientRepo) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Ingredient{}, id)
	if result.Error != nil {
		if errs.IsForeignKeyViolation(result.Error) {
			return errs.NewConflictError("ingredient is used by at least one recipe")
		}
		return errs.NewDatabaseError("delete", "ingredient", result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.NewNotFound("ingredient")
	}
	return nil
}

// GetOrCreate finds the ingredient by (name, unit), creating the unit and the
// ingredient when missing. created reports whether a new ingredient was written.
func (r *IngredientRepo) GetOrCreate(ctx context.Context, name, unit string) (ingredient *models.Ingredient, created bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mu := models.MeasurementUnit{Name: unit}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&mu).Error; err != nil {
			return err
		}
		if err := tx.Where("name = ?", unit).First(&mu).Error; err != nil {
			return err
		}

		var existing models.Ingredient
		err := tx.Where("name = ? AND measurement_unit_id = ?", name, mu.ID).First(&existing).Error
		switch {
		case err == nil:
			existing.MeasurementUnit = mu
			ingredient = &existing
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		fresh := models.Ingredient{Name: name, MeasurementUnitID: mu.ID}
		if err := tx.Omit(clause.Associations).Create(&fresh).Error; err != nil {
			return err
		}
		fresh.MeasurementUnit = mu
		ingredient, created = &fresh, true
		return nil
	})
	if err != nil {
		return nil, false, errs.NewDatabaseError("load or create", "ingredient", err)
	}
	return ingredient, created, nil
}
