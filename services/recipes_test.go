package services

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/rpupo63/foodgram-backend/database"
	"github.com/rpupo63/foodgram-backend/errs"
	"github.com/rpupo63/foodgram-backend/models"
)

var pngDataURI = "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))

type fakeRecipeStore struct {
	recipes    map[uint]*models.Recipe
	nextID     uint
	replaceErr error
	writes     int
}

func newFakeRecipeStore() *fakeRecipeStore {
	return &fakeRecipeStore{recipes: map[uint]*models.Recipe{}, nextID: 1}
}

func (f *fakeRecipeStore) FindByID(ctx context.Context, id uint) (*models.Recipe, error) {
	r, ok := f.recipes[id]
	if !ok {
		return nil, errs.NewNotFound("recipe")
	}
	copied := *r
	copied.Ingredients = append([]models.AmountIngredient(nil), r.Ingredients...)
	return &copied, nil
}

func (f *fakeRecipeStore) apply(r *models.Recipe, w database.RecipeWrite) {
	r.Name, r.Text, r.CookingTime = w.Name, w.Text, w.CookingTime
	if w.Image != "" {
		r.Image = w.Image
	}
	r.Ingredients = nil
	for _, line := range w.Ingredients {
		r.Ingredients = append(r.Ingredients, models.AmountIngredient{RecipeID: r.ID, IngredientID: line.IngredientID, Amount: line.Amount})
	}
}

func (f *fakeRecipeStore) Create(ctx context.Context, authorID uint, w database.RecipeWrite) (*models.Recipe, error) {
	f.writes++
	r := &models.Recipe{ID: f.nextID, AuthorID: authorID}
	f.nextID++
	f.apply(r, w)
	f.recipes[r.ID] = r
	return f.FindByID(ctx, r.ID)
}

func (f *fakeRecipeStore) Replace(ctx context.Context, id uint, w database.RecipeWrite) (*models.Recipe, string, error) {
	f.writes++
	if f.replaceErr != nil {
		return nil, "", f.replaceErr
	}
	r, ok := f.recipes[id]
	if !ok {
		return nil, "", errs.NewNotFound("recipe")
	}
	previous := r.Image
	f.apply(r, w)
	got, err := f.FindByID(ctx, id)
	return got, previous, err
}

func (f *fakeRecipeStore) Delete(ctx context.Context, id uint) error {
	f.writes++
	delete(f.recipes, id)
	return nil
}

type fakeImageStore struct {
	saved   map[string][]byte
	deleted []string
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{saved: map[string][]byte{}}
}

func (f *fakeImageStore) Save(ctx context.Context, key, contentType string, data []byte) error {
	f.saved[key] = data
	return nil
}

func (f *fakeImageStore) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.saved, key)
	return nil
}

func (f *fakeImageStore) URL(key string) string { return "http://media/" + key }

type countingRecorder map[string]int

func (c countingRecorder) RecordRecipeWrite(operation, outcome string) {
	c[operation+":"+outcome]++
}

func validInput() RecipeInput {
	return RecipeInput{
		Name:        "Pancakes",
		Text:        "Mix and fry.",
		CookingTime: 15,
		Image:       pngDataURI,
		Tags:        []uint{1},
		Ingredients: []IngredientAmount{{ID: 10, Amount: 10}},
	}
}

func setup(t *testing.T) (*RecipeService, *fakeRecipeStore, *fakeImageStore, countingRecorder, *models.User) {
	t.Helper()
	store, images, rec := newFakeRecipeStore(), newFakeImageStore(), countingRecorder{}
	return NewRecipeService(store, images, rec), store, images, rec, &models.User{ID: 7}
}

func TestValidateRecipeInput(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*RecipeInput)
		create    bool
		wantField string
		wantText  string
	}{
		{"valid", func(*RecipeInput) {}, true, "", ""},
		{"empty name", func(in *RecipeInput) { in.Name = "  " }, true, "name", "required"},
		{"long name", func(in *RecipeInput) { in.Name = strings.Repeat("я", 513) }, true, "name", "512"},
		{"empty text", func(in *RecipeInput) { in.Text = "" }, true, "text", "required"},
		{"zero cooking time", func(in *RecipeInput) { in.CookingTime = 0 }, true, "cooking_time", "at least 1"},
		{"no tags", func(in *RecipeInput) { in.Tags = nil }, true, "tags", "at least one"},
		{"duplicate tags", func(in *RecipeInput) { in.Tags = []uint{2, 1, 2} }, true, "tags", "[2]"},
		{"no ingredients", func(in *RecipeInput) { in.Ingredients = nil }, true, "ingredients", "at least one"},
		{"duplicate ingredients", func(in *RecipeInput) {
			in.Ingredients = []IngredientAmount{{ID: 3, Amount: 1}, {ID: 5, Amount: 1}, {ID: 3, Amount: 2}}
		}, true, "ingredients", "[3]"},
		{"negative amount", func(in *RecipeInput) { in.Ingredients = []IngredientAmount{{ID: 4, Amount: -1}} }, true, "ingredients", "[4]"},
		{"zero amount allowed", func(in *RecipeInput) { in.Ingredients = []IngredientAmount{{ID: 4, Amount: 0}} }, true, "", ""},
		{"image required on create", func(in *RecipeInput) { in.Image = "" }, true, "image", "required"},
		{"image optional on update", func(in *RecipeInput) { in.Image = "" }, false, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			verr := ValidateRecipeInput(in, tt.create)

			if tt.wantField == "" {
				if verr.HasErrors() {
					t.Fatalf("unexpected errors: %v", verr)
				}
				return
			}
			msgs := verr.Fields[tt.wantField]
			if len(msgs) == 0 {
				t.Fatalf("no error on %q: %v", tt.wantField, verr)
			}
			if !strings.Contains(strings.Join(msgs, " "), tt.wantText) {
				t.Errorf("%s messages = %v, want to contain %q", tt.wantField, msgs, tt.wantText)
			}
		})
	}
}

func TestRecipeService_CreateThenRead(t *testing.T) {
	svc, store, images, rec, author := setup(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, author, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(images.saved) != 1 {
		t.Fatalf("saved images = %d, want 1", len(images.saved))
	}
	if !strings.HasPrefix(created.Image, "recipes/") || !strings.HasSuffix(created.Image, ".png") {
		t.Errorf("image key = %q", created.Image)
	}

	got, _ := store.FindByID(ctx, created.ID)
	if len(got.Ingredients) != 1 || got.Ingredients[0].IngredientID != 10 || got.Ingredients[0].Amount != 10 {
		t.Errorf("ingredients = %+v, want exactly {10, 10}", got.Ingredients)
	}
	if rec["create:ok"] != 1 {
		t.Errorf("recorder = %v", rec)
	}
}

func TestRecipeService_UpdateReplacesIngredients(t *testing.T) {
	svc, store, images, _, author := setup(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, author, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	oldImage := created.Image

	in := validInput()
	in.Ingredients = []IngredientAmount{{ID: 20, Amount: 2}}
	if _, err := svc.Update(ctx, author, created.ID, in); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := store.FindByID(ctx, created.ID)
	if len(got.Ingredients) != 1 || got.Ingredients[0].IngredientID != 20 || got.Ingredients[0].Amount != 2 {
		t.Errorf("ingredients = %+v, want exactly {20, 2}", got.Ingredients)
	}
	if len(images.deleted) != 1 || images.deleted[0] != oldImage {
		t.Errorf("deleted = %v, want the previous image %q", images.deleted, oldImage)
	}
}

func TestRecipeService_UpdateWithoutImageKeepsIt(t *testing.T) {
	svc, store, images, _, author := setup(t)
	ctx := context.Background()

	created, _ := svc.Create(ctx, author, validInput())
	in := validInput()
	in.Image = ""
	if _, err := svc.Update(ctx, author, created.ID, in); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := store.FindByID(ctx, created.ID)
	if got.Image != created.Image {
		t.Errorf("image = %q, want %q", got.Image, created.Image)
	}
	if len(images.deleted) != 0 {
		t.Errorf("deleted = %v, want none", images.deleted)
	}
}

func TestRecipeService_RejectedUpdatesWriteNothing(t *testing.T) {
	svc, store, _, rec, author := setup(t)
	ctx := context.Background()

	created, _ := svc.Create(ctx, author, validInput())
	writesAfterCreate := store.writes

	dup := validInput()
	dup.Ingredients = []IngredientAmount{{ID: 10, Amount: 1}, {ID: 10, Amount: 2}}

	tests := []struct {
		name   string
		actor  *models.User
		id     uint
		in     RecipeInput
		wantIs func(error) bool
	}{
		{"duplicate ingredients", author, created.ID, dup, errs.IsValidationError},
		{"not the author", &models.User{ID: 99}, created.ID, validInput(), errs.IsForbidden},
		{"not the author with invalid body", &models.User{ID: 99}, created.ID, dup, errs.IsForbidden},
		{"missing recipe with invalid body", author, 404, dup, errs.IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(ctx, tt.actor, tt.id, tt.in)
			if !tt.wantIs(err) {
				t.Fatalf("Update error = %v", err)
			}
			if store.writes != writesAfterCreate {
				t.Errorf("store written %d times after a rejected update", store.writes-writesAfterCreate)
			}
		})
	}

	got, _ := store.FindByID(ctx, created.ID)
	if len(got.Ingredients) != 1 || got.Ingredients[0].Amount != 10 {
		t.Errorf("ingredients changed: %+v", got.Ingredients)
	}
	if rec["update:forbidden"] != 2 || rec["update:invalid"] != 1 || rec["update:not_found"] != 1 {
		t.Errorf("recorder = %v", rec)
	}
}

func TestRecipeService_FailedReplaceDiscardsNewImage(t *testing.T) {
	svc, store, images, _, author := setup(t)
	ctx := context.Background()

	created, _ := svc.Create(ctx, author, validInput())
	store.replaceErr = errs.NewFieldError("ingredients", "ingredients do not exist: [77]")

	_, err := svc.Update(ctx, author, created.ID, validInput())
	if !errs.IsValidationError(err) {
		t.Fatalf("Update error = %v", err)
	}
	if len(images.saved) != 1 {
		t.Errorf("saved images = %d, want only the original", len(images.saved))
	}
	if _, ok := images.saved[created.Image]; !ok {
		t.Error("original image was removed")
	}
}

func TestRecipeService_Delete(t *testing.T) {
	svc, store, images, _, author := setup(t)
	ctx := context.Background()

	created, _ := svc.Create(ctx, author, validInput())

	if err := svc.Delete(ctx, &models.User{ID: 99}, created.ID); !errs.IsForbidden(err) {
		t.Fatalf("non-author delete = %v, want forbidden", err)
	}
	if _, err := store.FindByID(ctx, created.ID); err != nil {
		t.Fatal("recipe removed by non-author")
	}

	if err := svc.Delete(ctx, author, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.FindByID(ctx, created.ID); !errs.IsNotFound(err) {
		t.Errorf("recipe still present: %v", err)
	}
	if len(images.deleted) != 1 {
		t.Errorf("deleted images = %v", images.deleted)
	}
}

func TestRecipeService_BadImage(t *testing.T) {
	svc, store, _, _, author := setup(t)
	in := validInput()
	in.Image = "data:image/png;base64,@@@"

	_, err := svc.Create(context.Background(), author, in)
	var apiErr *errs.ApiErr
	if !errors.As(err, &apiErr) || apiErr.Field != "image" {
		t.Fatalf("Create error = %v, want image field error", err)
	}
	if store.writes != 0 {
		t.Error("store written despite a bad image")
	}
}
