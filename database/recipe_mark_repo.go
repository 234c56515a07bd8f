package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rpupo63/foodgram-backend/errs"
	"gorm.io/gorm"
)

// RecipeMarkRepo manages a per-user set of recipes stored as (user_id,
// recipe_id) rows. Favorites and the shopping cart are both marks.
type RecipeMarkRepo struct {
	db    *gorm.DB
	table string
	label string
}

func NewFavoriteRepo(db *gorm.DB) *RecipeMarkRepo {
	return &RecipeMarkRepo{db: db, table: "favorites", label: "favorites"}
}

func NewShoppingCartRepo(db *gorm.DB) *RecipeMarkRepo {
	return &RecipeMarkRepo{db: db, table: "shopping_cart_items", label: "the shopping cart"}
}

// Add marks recipeID for userID. A second add, or a recipe that does not
// exist, is a bad request.
func (r *RecipeMarkRepo) Add(ctx context.Context, userID, recipeID uint) error {
	err := r.db.WithContext(ctx).Table(r.table).Create(map[string]any{
		"user_id":    userID,
		"recipe_id":  recipeID,
		"created_at": time.Now().UTC(),
	}).Error
	switch {
	case err == nil:
		return nil
	case errs.IsUniqueViolation(err):
		return errs.NewBadRequestError(fmt.Sprintf("recipe is already in %s", r.label))
	case errs.IsForeignKeyViolation(err):
		return errs.NewBadRequestError("recipe does not exist")
	default:
		return errs.NewDatabaseError("add", r.table, err)
	}
}

// Remove unmarks recipeID. Removing an absent mark is a bad request.
func (r *RecipeMarkRepo) Remove(ctx context.Context, userID, recipeID uint) error {
	result := r.db.WithContext(ctx).Exec(
		fmt.Sprintf("DELETE FROM %s WHERE user_id = ? AND recipe_id = ?", r.table),
		userID, recipeID,
	)
	if result.Error != nil {
		return errs.NewDatabaseError("remove", r.table, result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.NewBadRequestError(fmt.Sprintf("recipe is not in %s", r.label))
	}
	return nil
}

// MarkedAmong returns which of recipeIDs userID has marked.
func (r *RecipeMarkRepo) MarkedAmong(ctx context.Context, userID uint, recipeIDs []uint) (map[uint]bool, error) {
	marked := make(map[uint]bool, len(recipeIDs))
	if userID == 0 || len(recipeIDs) == 0 {
		return marked, nil
	}

	var ids []uint
	err := r.db.WithContext(ctx).Table(r.table).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &ids).Error
	if err != nil {
		return nil, errs.NewDatabaseError("load", r.table, err)
	}
	for _, id := range ids {
		marked[id] = true
	}
	return marked, nil
}

// Count returns how many users marked recipeID.
func (r *RecipeMarkRepo) Count(ctx context.Context, recipeID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Table(r.table).Where("recipe_id = ?", recipeID).Count(&n).Error; err != nil {
		return 0, errs.NewDatabaseError("count", r.table, err)
	}
	return n, nil
}
