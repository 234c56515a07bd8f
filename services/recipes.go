package services

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rpupo63/foodgram-backend/database"
	"github.com/rpupo63/foodgram-backend/errs"
	"github.com/rpupo63/foodgram-backend/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxRecipeNameLength = 512

// RecipeStore is the persistence the recipe service needs. Create and
// Replace must be atomic.
type RecipeStore interface {
	FindByID(ctx context.Context, id uint) (*models.Recipe, error)
	Create(ctx context.Context, authorID uint, w database.RecipeWrite) (*models.Recipe, error)
	Replace(ctx context.Context, id uint, w database.RecipeWrite) (*models.Recipe, string, error)
	Delete(ctx context.Context, id uint) error
}

// OutcomeRecorder counts recipe writes by operation and outcome.
type OutcomeRecorder interface {
	RecordRecipeWrite(operation, outcome string)
}

type IngredientAmount struct {
	ID     uint    `json:"id"`
	Amount float64 `json:"amount"`
}

// RecipeInput is the body of a recipe create or update. Image is a base64
// data URI; on update an empty Image keeps the current one.
type RecipeInput struct {
	Name        string             `json:"name"`
	Text        string             `json:"text"`
	CookingTime int                `json:"cooking_time"`
	Image       string             `json:"image"`
	Tags        []uint             `json:"tags"`
	Ingredients []IngredientAmount `json:"ingredients"`
}

type RecipeService struct {
	store    RecipeStore
	images   ImageStore
	recorder OutcomeRecorder
	logger   zerolog.Logger
	now      func() time.Time
}

func NewRecipeService(store RecipeStore, images ImageStore, recorder OutcomeRecorder) *RecipeService {
	return &RecipeService{
		store:    store,
		images:   images,
		recorder: recorder,
		logger:   log.With().Str("service", "recipes").Logger(),
		now:      time.Now,
	}
}

// ValidateRecipeInput checks everything that does not need the database.
func ValidateRecipeInput(in RecipeInput, requireImage bool) *errs.ValidationErrors {
	verr := errs.NewValidationErrors()

	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		verr.Add("name", "this field is required")
	case utf8.RuneCountInString(name) > maxRecipeNameLength:
		verr.Addf("name", "ensure this field has no more than %d characters", maxRecipeNameLength)
	}
	if strings.TrimSpace(in.Text) == "" {
		verr.Add("text", "this field is required")
	}
	if in.CookingTime < 1 {
		verr.Add("cooking_time", "cooking time must be at least 1 minute")
	}
	if requireImage && strings.TrimSpace(in.Image) == "" {
		verr.Add("image", "this field is required")
	}

	if len(in.Tags) == 0 {
		verr.Add("tags", "at least one tag is required")
	} else if dups := duplicates(in.Tags); len(dups) > 0 {
		verr.Addf("tags", "duplicate tags: %v", dups)
	}

	if len(in.Ingredients) == 0 {
		verr.Add("ingredients", "at least one ingredient is required")
	} else {
		ids := make([]uint, 0, len(in.Ingredients))
		var negative []uint
		for _, line := range in.Ingredients {
			ids = append(ids, line.ID)
			if line.Amount < 0 {
				negative = append(negative, line.ID)
			}
		}
		if dups := duplicates(ids); len(dups) > 0 {
			verr.Addf("ingredients", "duplicate ingredients: %v", dups)
		}
		if len(negative) > 0 {
			verr.Addf("ingredients", "amount must not be negative for ingredients: %v", negative)
		}
	}

	return verr
}

// duplicates returns the ids that appear more than once, sorted.
func duplicates(ids []uint) []uint {
	seen := make(map[uint]int, len(ids))
	for _, id := range ids {
		seen[id]++
	}
	var out []uint
	for id, n := range seen {
		if n > 1 {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *RecipeService) Create(ctx context.Context, author *models.User, in RecipeInput) (*models.Recipe, error) {
	if verr := ValidateRecipeInput(in, true); verr.HasErrors() {
		s.record("create", "invalid")
		return nil, verr
	}

	image, err := s.storeImage(ctx, in.Image)
	if err != nil {
		s.record("create", "invalid")
		return nil, err
	}

	recipe, err := s.store.Create(ctx, author.ID, toWrite(in, image))
	if err != nil {
		s.discardImage(ctx, image)
		s.record("create", outcomeOf(err))
		return nil, err
	}

	s.logger.Info().Uint("recipeID", recipe.ID).Uint("authorID", author.ID).Msg("recipe created")
	s.record("create", "ok")
	return recipe, nil
}

// Update replaces the recipe's fields, tags and ingredient list. Checks run
// in order: existence, authorship, then input validation.
func (s *RecipeService) Update(ctx context.Context, actor *models.User, id uint, in RecipeInput) (*models.Recipe, error) {
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		s.record("update", outcomeOf(err))
		return nil, err
	}
	if current.AuthorID != actor.ID {
		s.record("update", "forbidden")
		return nil, errs.NewNotAuthorError("recipe")
	}
	if verr := ValidateRecipeInput(in, false); verr.HasErrors() {
		s.record("update", "invalid")
		return nil, verr
	}

	image, err := s.storeImage(ctx, in.Image)
	if err != nil {
		s.record("update", "invalid")
		return nil, err
	}

	recipe, previousImage, err := s.store.Replace(ctx, id, toWrite(in, image))
	if err != nil {
		s.discardImage(ctx, image)
		s.record("update", outcomeOf(err))
		return nil, err
	}
	if image != "" && previousImage != "" && previousImage != image {
		s.discardImage(ctx, previousImage)
	}

	s.logger.Info().Uint("recipeID", id).Int("ingredients", len(in.Ingredients)).Msg("recipe updated")
	s.record("update", "ok")
	return recipe, nil
}

func (s *RecipeService) Delete(ctx context.Context, actor *models.User, id uint) error {
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		s.record("delete", outcomeOf(err))
		return err
	}
	if current.AuthorID != actor.ID {
		s.record("delete", "forbidden")
		return errs.NewNotAuthorError("recipe")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		s.record("delete", outcomeOf(err))
		return err
	}

	s.discardImage(ctx, current.Image)
	s.logger.Info().Uint("recipeID", id).Msg("recipe deleted")
	s.record("delete", "ok")
	return nil
}

// storeImage decodes and saves a data URI, returning its key. An empty
// input stores nothing.
func (s *RecipeService) storeImage(ctx context.Context, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	img, err := DecodeDataURI("image", raw)
	if err != nil {
		return "", err
	}
	key := NewImageKey(s.now(), img.Ext)
	if err := s.images.Save(ctx, key, img.ContentType, img.Data); err != nil {
		return "", err
	}
	return key, nil
}

func (s *RecipeService) discardImage(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.images.Delete(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to delete image")
	}
}

func (s *RecipeService) record(operation, outcome string) {
	if s.recorder != nil {
		s.recorder.RecordRecipeWrite(operation, outcome)
	}
}

func outcomeOf(err error) string {
	switch {
	case errs.IsValidationError(err), errs.IsBadRequest(err):
		return "invalid"
	case errs.IsNotFound(err):
		return "not_found"
	case errs.IsForbidden(err):
		return "forbidden"
	case errs.IsConflict(err):
		return "conflict"
	default:
		return "error"
	}
}

func toWrite(in RecipeInput, image string) database.RecipeWrite {
	lines := make([]database.IngredientLine, 0, len(in.Ingredients))
	for _, line := range in.Ingredients {
		lines = append(lines, database.IngredientLine{IngredientID: line.ID, Amount: line.Amount})
	}
	return database.RecipeWrite{
		Name:        strings.TrimSpace(in.Name),
		Text:        in.Text,
		CookingTime: in.CookingTime,
		Image:       image,
		TagIDs:      in.Tags,
		Ingredients: lines,
	}
}
