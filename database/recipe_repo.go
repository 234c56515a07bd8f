package database

import (
	"context"
	"fmt"
	"sort"

	"github.com/rpupo63/foodgram-backend/errs"
	"github.com/rpupo63/foodgram-backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IngredientLine is one (ingredient, amount) pair of a recipe write.
type IngredientLine struct {
	IngredientID uint
	Amount       float64
}

// RecipeWrite carries the validated fields of a recipe create or update.
// An empty Image on update keeps the stored one.
type RecipeWrite struct {
	Name        string
	Text        string
	CookingTime int
	Image       string
	TagIDs      []uint
	Ingredients []IngredientLine
}

// RecipeFilter narrows a recipe listing. ViewerID 0 means an anonymous caller.
type RecipeFilter struct {
	AuthorID       *uint
	TagSlugs       []string
	Favorited      *bool
	InShoppingCart *bool
	ViewerID       uint
	Limit          int
	Offset         int
}

// ShoppingListLine is the summed amount of one ingredient across a cart.
type ShoppingListLine struct {
	Name            string  `json:"name"`
	MeasurementUnit string  `json:"measurement_unit"`
	Amount          float64 `json:"amount"`
}

type RecipeRepo struct {
	db *gorm.DB
}

func NewRecipeRepo(db *gorm.DB) *RecipeRepo {
	return &RecipeRepo{db}
}

func withRecipeDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Tags", func(tx *gorm.DB) *gorm.DB { return tx.Order("tags.id") }).
		Preload("Ingredients", func(tx *gorm.DB) *gorm.DB { return tx.Order("amount_ingredients.id") }).
		Preload("Ingredients.Ingredient.MeasurementUnit")
}

// FindByID returns the full recipe with author, tags and ingredient lines.
func (r *RecipeRepo) FindByID(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := withRecipeDetails(r.db.WithContext(ctx)).First(&recipe, id).Error; err != nil {
		return nil, errs.NewDatabaseError("load", "recipe", err)
	}
	return &recipe, nil
}

// FindBrief returns the recipe row without relations.
func (r *RecipeRepo) FindBrief(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := r.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		return nil, errs.NewDatabaseError("load", "recipe", err)
	}
	return &recipe, nil
}

// List returns one page of recipes, newest first, and the total match count.
func (r *RecipeRepo) List(ctx context.Context, f RecipeFilter) ([]models.Recipe, int64, error) {
	if f.ViewerID == 0 && (isTrue(f.Favorited) || isTrue(f.InShoppingCart)) {
		return []models.Recipe{}, 0, nil
	}

	query := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Recipe{})
		if f.AuthorID != nil {
			q = q.Where("recipes.author_id = ?", *f.AuthorID)
		}
		if len(f.TagSlugs) > 0 {
			tagged := r.db.Table("recipe_tags").
				Select("recipe_tags.recipe_id").
				Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
				Where("tags.slug IN ?", f.TagSlugs)
			q = q.Where("recipes.id IN (?)", tagged)
		}
		if f.ViewerID != 0 {
			q = markFilter(r.db, q, "favorites", f.ViewerID, f.Favorited)
			q = markFilter(r.db, q, "shopping_cart_items", f.ViewerID, f.InShoppingCart)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, errs.NewDatabaseError("count", "recipes", err)
	}

	var recipes []models.Recipe
	q := withRecipeDetails(query()).Order("recipes.pub_date DESC, recipes.id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if err := q.Find(&recipes).Error; err != nil {
		return nil, 0, errs.NewDatabaseError("list", "recipes", err)
	}
	return recipes, total, nil
}

func markFilter(db, q *gorm.DB, table string, viewerID uint, want *bool) *gorm.DB {
	if want == nil {
		return q
	}
	marked := db.Table(table).Select("recipe_id").Where("user_id = ?", viewerID)
	if *want {
		return q.Where("recipes.id IN (?)", marked)
	}
	return q.Where("recipes.id NOT IN (?)", marked)
}

func isTrue(b *bool) bool {
	return b != nil && *b
}

// Create inserts the recipe, its tag links and its ingredient lines in one
// transaction and returns the reloaded recipe.
func (r *RecipeRepo) Create(ctx context.Context, authorID uint, w RecipeWrite) (*models.Recipe, error) {
	var created models.Recipe
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkReferences(tx, 0, w); err != nil {
			return err
		}

		recipe := models.Recipe{
			Name:        w.Name,
			AuthorID:    authorID,
			Image:       w.Image,
			Text:        w.Text,
			CookingTime: w.CookingTime,
		}
		if err := tx.Omit(clause.Associations).Create(&recipe).Error; err != nil {
			return nameConflict(err)
		}

		if err := writeRelations(tx, recipe.ID, w); err != nil {
			return err
		}

		return withRecipeDetails(tx).First(&created, recipe.ID).Error
	})
	if err != nil {
		return nil, errs.NewDatabaseError("create", "recipe", err)
	}
	return &created, nil
}

// Replace locks the recipe row, swaps its ingredient lines and tag links for
// the ones in w and updates its fields. It returns the reloaded recipe and
// the image key it had before. On any error nothing is changed.
func (r *RecipeRepo) Replace(ctx context.Context, id uint, w RecipeWrite) (*models.Recipe, string, error) {
	var (
		updated       models.Recipe
		previousImage string
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Recipe
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, id).Error; err != nil {
			return err
		}
		previousImage = current.Image

		if err := checkReferences(tx, id, w); err != nil {
			return err
		}

		if err := tx.Where("recipe_id = ?", id).Delete(&models.AmountIngredient{}).Error; err != nil {
			return fmt.Errorf("clear ingredient lines: %w", err)
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&models.RecipeTag{}).Error; err != nil {
			return fmt.Errorf("clear tag links: %w", err)
		}
		if err := writeRelations(tx, id, w); err != nil {
			return err
		}

		image := current.Image
		if w.Image != "" {
			image = w.Image
		}
		err := tx.Model(&current).
			Select("name", "text", "cooking_time", "image").
			Updates(models.Recipe{Name: w.Name, Text: w.Text, CookingTime: w.CookingTime, Image: image}).Error
		if err != nil {
			return nameConflict(err)
		}

		return withRecipeDetails(tx).First(&updated, id).Error
	})
	if err != nil {
		return nil, "", errs.NewDatabaseError("update", "recipe", err)
	}
	return &updated, previousImage, nil
}

// Delete removes the recipe. Ingredient lines, tag links, favorites and cart
// entries go with it through ON DELETE CASCADE.
func (r *RecipeRepo) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Recipe{}, id)
	if result.Error != nil {
		return errs.NewDatabaseError("delete", "recipe", result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.NewNotFound("recipe")
	}
	return nil
}

// checkReferences reports every unknown tag or ingredient id and a taken
// name as field errors. excludeID is the recipe being updated, 0 on create.
func checkReferences(tx *gorm.DB, excludeID uint, w RecipeWrite) error {
	verr := errs.NewValidationErrors()

	missingTags, err := missingIDs(tx, &models.Tag{}, w.TagIDs)
	if err != nil {
		return fmt.Errorf("resolve tags: %w", err)
	}
	if len(missingTags) > 0 {
		verr.Addf("tags", "tags do not exist: %v", missingTags)
	}

	ingredientIDs := make([]uint, 0, len(w.Ingredients))
	for _, line := range w.Ingredients {
		ingredientIDs = append(ingredientIDs, line.IngredientID)
	}
	missingIngredients, err := missingIDs(tx, &models.Ingredient{}, ingredientIDs)
	if err != nil {
		return fmt.Errorf("resolve ingredients: %w", err)
	}
	if len(missingIngredients) > 0 {
		verr.Addf("ingredients", "ingredients do not exist: %v", missingIngredients)
	}

	var taken int64
	q := tx.Model(&models.Recipe{}).Where("name = ?", w.Name)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&taken).Error; err != nil {
		return fmt.Errorf("check recipe name: %w", err)
	}
	if taken > 0 {
		verr.Add("name", "a recipe with this name already exists")
	}

	return verr.OrNil()
}

// missingIDs returns the ids from want that have no row in model's table, sorted.
func missingIDs(tx *gorm.DB, model any, want []uint) ([]uint, error) {
	if len(want) == 0 {
		return nil, nil
	}
	var found []uint
	if err := tx.Model(model).Where("id IN ?", want).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	present := make(map[uint]bool, len(found))
	for _, id := range found {
		present[id] = true
	}

	var missing []uint
	seen := make(map[uint]bool, len(want))
	for _, id := range want {
		if !present[id] && !seen[id] {
			missing = append(missing, id)
			seen[id] = true
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing, nil
}

// writeRelations bulk-inserts the tag links and ingredient lines of recipeID.
func writeRelations(tx *gorm.DB, recipeID uint, w RecipeWrite) error {
	links := make([]models.RecipeTag, 0, len(w.TagIDs))
	for _, tagID := range w.TagIDs {
		links = append(links, models.RecipeTag{RecipeID: recipeID, TagID: tagID})
	}
	if len(links) > 0 {
		if err := tx.Omit(clause.Associations).Create(&links).Error; err != nil {
			return fmt.Errorf("insert tag links: %w", err)
		}
	}

	lines := make([]models.AmountIngredient, 0, len(w.Ingredients))
	for _, in := range w.Ingredients {
		lines = append(lines, models.AmountIngredient{RecipeID: recipeID, IngredientID: in.IngredientID, Amount: in.Amount})
	}
	if len(lines) > 0 {
		if err := tx.Omit(clause.Associations).Create(&lines).Error; err != nil {
			return fmt.Errorf("insert ingredient lines: %w", err)
		}
	}
	return nil
}

// nameConflict turns a unique violation on the recipe row into a name field
// error. A concurrent writer can take the name between check and insert.
func nameConflict(err error) error {
	if errs.IsUniqueViolation(err) {
		return errs.NewFieldError("name", "a recipe with this name already exists")
	}
	return err
}

// ShoppingList sums the ingredient amounts of every recipe in userID's cart
// per (ingredient name, measurement unit), ordered by name.
func (r *RecipeRepo) ShoppingList(ctx context.Context, userID uint) ([]ShoppingListLine, error) {
	var lines []ShoppingListLine
	err := r.db.WithContext(ctx).
		Table("shopping_cart_items AS sc").
		Select("i.name AS name, mu.name AS measurement_unit, SUM(ai.amount) AS amount").
		Joins("JOIN amount_ingredients ai ON ai.recipe_id = sc.recipe_id").
		Joins("JOIN ingredients i ON i.id = ai.ingredient_id").
		Joins("JOIN measurement_units mu ON mu.id = i.measurement_unit_id").
		Where("sc.user_id = ?", userID).
		Group("i.name, mu.name").
		Order("i.name, mu.name").
		Scan(&lines).Error
	if err != nil {
		return nil, errs.NewDatabaseError("aggregate", "shopping list", err)
	}
	return lines, nil
}

// RecipesByAuthors returns up to limit newest recipes per author. limit <= 0 means all.
func (r *RecipeRepo) RecipesByAuthors(ctx context.Context, authorIDs []uint, limit int) (map[uint][]models.Recipe, error) {
	out := make(map[uint][]models.Recipe, len(authorIDs))
	if len(authorIDs) == 0 {
		return out, nil
	}

	var recipes []models.Recipe
	q := r.db.WithContext(ctx).Model(&models.Recipe{}).Where("author_id IN ?", authorIDs)
	if limit > 0 {
		ranked := r.db.Model(&models.Recipe{}).
			Select("id, ROW_NUMBER() OVER (PARTITION BY author_id ORDER BY pub_date DESC, id DESC) AS rn").
			Where("author_id IN ?", authorIDs)
		q = q.Where("id IN (?)", r.db.Table("(?) AS ranked", ranked).Select("id").Where("rn <= ?", limit))
	}
	if err := q.Order("pub_date DESC, id DESC").Find(&recipes).Error; err != nil {
		return nil, errs.NewDatabaseError("list", "recipes", err)
	}

	for _, recipe := range recipes {
		out[recipe.AuthorID] = append(out[recipe.AuthorID], recipe)
	}
	return out, nil
}

// CountByAuthors returns the number of recipes of each author.
func (r *RecipeRepo) CountByAuthors(ctx context.Context, authorIDs []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(authorIDs))
	if len(authorIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		AuthorID uint
		Total    int64
	}
	err := r.db.WithContext(ctx).Model(&models.Recipe{}).
		Select("author_id, COUNT(*) AS total").
		Where("author_id IN ?", authorIDs).
		Group("author_id").
		Scan(&rows).Error
	if err != nil {
		return nil, errs.NewDatabaseError("count", "recipes", err)
	}
	for _, row := range rows {
		out[row.AuthorID] = row.Total
	}
	return out, nil
}
