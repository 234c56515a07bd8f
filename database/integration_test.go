//go:build integration

package database

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rpupo63/foodgram-backend/errs"
	"github.com/rpupo63/foodgram-backend/models"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

func skipIfNoDocker(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if exec.CommandContext(ctx, "docker", "info").Run() != nil {
		t.Skip("Skipping test: Docker not available")
	}
}

// startPostgres runs a throwaway PostgreSQL and returns a migrated connection.
func startPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	skipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "foodgram",
				"POSTGRES_PASSWORD": "foodgram",
				"POSTGRES_DB":       "foodgram",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	dsn := fmt.Sprintf("host=%s port=%s user=foodgram password=foodgram dbname=foodgram sslmode=disable", host, port.Port())
	db, err := Open(Options{DSN: dsn})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fixture struct {
	db          Database
	author      *models.User
	other       *models.User
	tags        []*models.Tag
	ingredients []*models.Ingredient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := New(startPostgres(t))

	f := &fixture{db: db}
	f.author = &models.User{Email: "author@example.com", Username: "author", FirstName: "A", LastName: "Uthor", PasswordHash: "x", Role: models.RoleUser, IsActive: true}
	f.other = &models.User{Email: "other@example.com", Username: "other", FirstName: "O", LastName: "Ther", PasswordHash: "x", Role: models.RoleUser, IsActive: true}
	for _, u := range []*models.User{f.author, f.other} {
		if err := db.UserRepo().Create(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	for _, name := range []string{"Breakfast", "Завтрак"} {
		tag, err := db.TagRepo().Create(ctx, name, nil)
		if err != nil {
			t.Fatalf("create tag: %v", err)
		}
		f.tags = append(f.tags, tag)
	}

	for _, in := range [][2]string{{"flour", "g"}, {"milk", "ml"}, {"egg", "pcs"}, {"sugar", "g"}} {
		ing, _, err := db.IngredientRepo().GetOrCreate(ctx, in[0], in[1])
		if err != nil {
			t.Fatalf("create ingredient: %v", err)
		}
		f.ingredients = append(f.ingredients, ing)
	}
	return f
}

func (f *fixture) write(name string, lines ...IngredientLine) RecipeWrite {
	return RecipeWrite{
		Name:        name,
		Text:        "Mix and bake.",
		CookingTime: 20,
		Image:       "recipes/test.png",
		TagIDs:      []uint{f.tags[0].ID},
		Ingredients: lines,
	}
}

func ingredientSet(r *models.Recipe) map[uint]float64 {
	out := make(map[uint]float64, len(r.Ingredients))
	for _, line := range r.Ingredients {
		out[line.IngredientID] = line.Amount
	}
	return out
}

func equalSets(a, b map[uint]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

func TestRecipeCreateAndReadBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := f.ingredients[0]

	created, err := f.db.RecipeRepo().Create(ctx, f.author.ID, f.write("Pancakes", IngredientLine{x.ID, 10}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := f.db.RecipeRepo().FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if len(got.Ingredients) != 1 || got.Ingredients[0].IngredientID != x.ID || got.Ingredients[0].Amount != 10 {
		t.Fatalf("ingredients = %+v, want exactly {%d, 10}", got.Ingredients, x.ID)
	}
	if got.Ingredients[0].Ingredient.MeasurementUnit.Name != "g" {
		t.Errorf("measurement unit not preloaded: %+v", got.Ingredients[0].Ingredient)
	}
	if len(got.Tags) != 1 || got.Tags[0].ID != f.tags[0].ID {
		t.Errorf("tags = %+v", got.Tags)
	}
	if got.Author.ID != f.author.ID {
		t.Errorf("author = %d, want %d", got.Author.ID, f.author.ID)
	}
}

func TestRecipeReplaceSwapsIngredientSet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x, y := f.ingredients[0], f.ingredients[1]

	created, err := f.db.RecipeRepo().Create(ctx, f.author.ID, f.write("Crepes", IngredientLine{x.ID, 10}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	w := f.write("Crepes", IngredientLine{y.ID, 2})
	w.Image = ""
	w.TagIDs = []uint{f.tags[1].ID}
	updated, previous, err := f.db.RecipeRepo().Replace(ctx, created.ID, w)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if previous != "recipes/test.png" {
		t.Errorf("previous image = %q", previous)
	}
	if updated.Image != "recipes/test.png" {
		t.Errorf("empty image should keep the stored one, got %q", updated.Image)
	}

	got, err := f.db.RecipeRepo().FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if !equalSets(ingredientSet(got), map[uint]float64{y.ID: 2}) {
		t.Errorf("ingredients = %v, want exactly {%d: 2}", ingredientSet(got), y.ID)
	}
	if len(got.Tags) != 1 || got.Tags[0].ID != f.tags[1].ID {
		t.Errorf("tags = %+v, want only %d", got.Tags, f.tags[1].ID)
	}
}

func TestRecipeReplaceUnknownIngredientRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x, y := f.ingredients[0], f.ingredients[1]

	created, err := f.db.RecipeRepo().Create(ctx, f.author.ID, f.write("Omelette", IngredientLine{x.ID, 3}, IngredientLine{y.ID, 50}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	before := ingredientSet(created)

	w := f.write("Omelette renamed", IngredientLine{x.ID, 1}, IngredientLine{999999, 1})
	_, _, err = f.db.RecipeRepo().Replace(ctx, created.ID, w)
	if !errs.IsValidationError(err) {
		t.Fatalf("Replace error = %v, want validation error", err)
	}
	if !strings.Contains(err.Error(), "999999") {
		t.Errorf("error should name the missing id: %v", err)
	}

	got, err := f.db.RecipeRepo().FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if !equalSets(ingredientSet(got), before) {
		t.Errorf("ingredients changed: %v, want %v", ingredientSet(got), before)
	}
	if got.Name != "Omelette" {
		t.Errorf("name changed to %q", got.Name)
	}
}

func TestRecipeReplaceDuplicateNameRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := f.ingredients[0]

	if _, err := f.db.RecipeRepo().Create(ctx, f.author.ID, f.write("Taken", IngredientLine{x.ID, 1})); err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := f.db.RecipeRepo().Create(ctx, f.author.ID, f.write("Free", IngredientLine{x.ID, 1}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, _, err = f.db.RecipeRepo().Replace(ctx, second.ID, f.write("Taken", IngredientLine{x.ID, 5}))
	var verr *errs.ValidationErrors
	if !errors.As(err, &verr) || len(verr.Fields["name"]) == 0 {
		t.Fatalf("Replace error = %v, want name field error", err)
	}

	got, _ := f.db.RecipeRepo().FindByID(ctx, second.ID)
	if got.Ingredients[0].Amount != 1 {
		t.Errorf("amount changed to %v", got.Ingredients[0].Amount)
	}
}

func TestRecipeReplaceMissingRecipe(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.db.RecipeRepo().Replace(context.Background(), 424242, f.write("Ghost", IngredientLine{f.ingredients[0].ID, 1}))
	if !errs.IsNotFound(err) {
		t.Fatalf("Replace error = %v, want not found", err)
	}
}

func TestRecipeConcurrentReplacesSerialize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.db.RecipeRepo().Create(ctx, f.author.ID, f.write("Stew", IngredientLine{f.ingredients[0].ID, 1}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var wg sync.WaitGroup
	errsCh := make(chan error, len(f.ingredients))
	for i, ing := range f.ingredients {
		wg.Add(1)
		go func(amount float64, id uint) {
			defer wg.Done()
			_, _, err := f.db.RecipeRepo().Replace(ctx, created.ID, f.write("Stew", IngredientLine{id, amount}))
			errsCh <- err
		}(float64(i+1), ing.ID)
	}
	wg.Wait()
	close(errsCh)

	for err := range errsCh {
		if err != nil {
			t.Errorf("concurrent replace failed: %v", err)
		}
	}

	got, err := f.db.RecipeRepo().FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if len(got.Ingredients) != 1 {
		t.Errorf("ingredient set has %d lines, want the single line of the last writer", len(got.Ingredients))
	}
}

func TestRecipeListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := f.ingredients[0]

	first, err := f.db.RecipeRepo().Create(ctx, f.author.ID, f.write("First", IngredientLine{x.ID, 1}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	w := f.write("Second", IngredientLine{x.ID, 1})
	w.TagIDs = []uint{f.tags[1].ID}
	second, err := f.db.RecipeRepo().Create(ctx, f.other.ID, w)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.db.FavoriteRepo().Add(ctx, f.author.ID, second.ID); err != nil {
		t.Fatalf("favorite: %v", err)
	}

	yes, no := true, false
	tests := []struct {
		name   string
		filter RecipeFilter
		want   []uint
	}{
		{"all newest first", RecipeFilter{}, []uint{second.ID, first.ID}},
		{"by author", RecipeFilter{AuthorID: &f.author.ID}, []uint{first.ID}},
		{"by tag slug", RecipeFilter{TagSlugs: []string{f.tags[1].Slug}}, []uint{second.ID}},
		{"favorited", RecipeFilter{ViewerID: f.author.ID, Favorited: &yes}, []uint{second.ID}},
		{"not favorited", RecipeFilter{ViewerID: f.author.ID, Favorited: &no}, []uint{first.ID}},
		{"anonymous favorited", RecipeFilter{Favorited: &yes}, nil},
		{"anonymous not in cart", RecipeFilter{InShoppingCart: &no}, []uint{second.ID, first.ID}},
		{"page size", RecipeFilter{Limit: 1, Offset: 1}, []uint{first.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recipes, _, err := f.db.RecipeRepo().List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			var ids []uint
			for _, r := range recipes {
				ids = append(ids, r.ID)
			}
			if fmt.Sprint(ids) != fmt.Sprint(tt.want) {
				t.Errorf("ids = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestShoppingListAggregates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	flour, milk := f.ingredients[0], f.ingredients[1]

	a, err := f.db.RecipeRepo().Create(ctx, f.author.ID, f.write("A", IngredientLine{flour.ID, 100}, IngredientLine{milk.ID, 200}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, err := f.db.RecipeRepo().Create(ctx, f.author.ID, f.write("B", IngredientLine{flour.ID, 50}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, id := range []uint{a.ID, b.ID} {
		if err := f.db.ShoppingCartRepo().Add(ctx, f.other.ID, id); err != nil {
			t.Fatalf("cart add: %v", err)
		}
	}
	if err := f.db.ShoppingCartRepo().Add(ctx, f.other.ID, a.ID); !errs.IsBadRequest(err) {
		t.Errorf("second add = %v, want bad request", err)
	}

	lines, err := f.db.RecipeRepo().ShoppingList(ctx, f.other.ID)
	if err != nil {
		t.Fatalf("ShoppingList: %v", err)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Name < lines[j].Name })
	want := []ShoppingListLine{{"flour", "g", 150}, {"milk", "ml", 200}}
	if fmt.Sprint(lines) != fmt.Sprint(want) {
		t.Errorf("lines = %v, want %v", lines, want)
	}
}

func TestIngredientDeleteRestricted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := f.ingredients[0]

	if _, err := f.db.RecipeRepo().Create(ctx, f.author.ID, f.write("Bread", IngredientLine{x.ID, 500})); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.db.IngredientRepo().Delete(ctx, x.ID); !errs.IsConflict(err) {
		t.Errorf("Delete used ingredient = %v, want conflict", err)
	}
	if err := f.db.IngredientRepo().Delete(ctx, f.ingredients[3].ID); err != nil {
		t.Errorf("Delete unused ingredient: %v", err)
	}
}

func TestTagSlugs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if f.tags[1].Slug != "zavtrak" {
		t.Errorf("cyrillic slug = %q, want zavtrak", f.tags[1].Slug)
	}
	clash, err := f.db.TagRepo().Create(ctx, "breakfast!", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if clash.Slug != "breakfast-2" {
		t.Errorf("slug = %q, want breakfast-2", clash.Slug)
	}
	if _, err := f.db.TagRepo().Create(ctx, "???", nil); !errs.IsValidationError(err) {
		t.Errorf("empty slug = %v, want validation error", err)
	}
}

func TestSubscriptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := f.db.SubscriptionRepo()

	if err := repo.Subscribe(ctx, f.author.ID, f.author.ID); !errs.IsBadRequest(err) {
		t.Errorf("self subscribe = %v, want bad request", err)
	}
	if err := repo.Subscribe(ctx, f.author.ID, 999999); !errs.IsNotFound(err) {
		t.Errorf("unknown leader = %v, want not found", err)
	}
	if err := repo.Subscribe(ctx, f.author.ID, f.other.ID); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := repo.Subscribe(ctx, f.author.ID, f.other.ID); !errs.IsBadRequest(err) {
		t.Errorf("double subscribe = %v, want bad request", err)
	}

	leaders, total, err := repo.Leaders(ctx, f.author.ID, 10, 0)
	if err != nil || total != 1 || len(leaders) != 1 || leaders[0].ID != f.other.ID {
		t.Errorf("Leaders = %v, %d, %v", leaders, total, err)
	}

	if err := repo.Unsubscribe(ctx, f.author.ID, f.other.ID); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if err := repo.Unsubscribe(ctx, f.author.ID, f.other.ID); !errs.IsBadRequest(err) {
		t.Errorf("double unsubscribe = %v, want bad request", err)
	}
}

func TestTokenRevocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := f.db.TokenRepo()

	if err := repo.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := repo.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("second Revoke: %v", err)
	}
	if revoked, err := repo.IsRevoked(ctx, "jti-1"); err != nil || !revoked {
		t.Errorf("IsRevoked = %v, %v", revoked, err)
	}
	if revoked, _ := repo.IsRevoked(ctx, "jti-2"); revoked {
		t.Error("unknown jti reported revoked")
	}
	if n, err := repo.PurgeExpired(ctx, time.Now().Add(2*time.Hour)); err != nil || n != 1 {
		t.Errorf("PurgeExpired = %d, %v", n, err)
	}
}

func TestFavoriteCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := f.ingredients[0]

	liked, err := f.db.RecipeRepo().Create(ctx, f.author.ID, f.write("Liked", IngredientLine{x.ID, 1}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	carted, err := f.db.RecipeRepo().Create(ctx, f.author.ID, f.write("Carted", IngredientLine{x.ID, 1}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, userID := range []uint{f.author.ID, f.other.ID} {
		if err := f.db.FavoriteRepo().Add(ctx, userID, liked.ID); err != nil {
			t.Fatalf("favorite: %v", err)
		}
	}
	if err := f.db.ShoppingCartRepo().Add(ctx, f.other.ID, carted.ID); err != nil {
		t.Fatalf("cart: %v", err)
	}

	if n, err := f.db.FavoriteRepo().Count(ctx, liked.ID); err != nil || n != 2 {
		t.Errorf("Count(liked) = %d, %v; want 2", n, err)
	}
	// cart entries are a separate mark and do not count as favorites
	if n, err := f.db.FavoriteRepo().Count(ctx, carted.ID); err != nil || n != 0 {
		t.Errorf("Count(carted) = %d, %v; want 0", n, err)
	}
}
