package api

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rpupo63/foodgram-backend/database"
	"github.com/rpupo63/foodgram-backend/errs"
	"github.com/rpupo63/foodgram-backend/models"
	"github.com/rpupo63/foodgram-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type recipeLookup interface {
	FindBrief(ctx context.Context, id uint) (*models.Recipe, error)
}

type favoriteCounter interface {
	Count(ctx context.Context, recipeID uint) (int64, error)
}

type recipeHandler struct {
	responder Responder
	logger    zerolog.Logger
	recipes   *database.RecipeRepo
	lookup    recipeLookup
	counter   favoriteCounter
	favorites *database.RecipeMarkRepo
	cart      *database.RecipeMarkRepo
	service   *services.RecipeService
	flags     flagLoader
	images    services.ImageStore
	baseURL   string
}

func newRecipeHandler(db database.Database, service *services.RecipeService, images services.ImageStore, baseURL string) recipeHandler {
	logger := log.With().Str("handlerName", "recipeHandler").Logger()

	return recipeHandler{
		responder: NewResponder(logger),
		logger:    logger,
		recipes:   db.RecipeRepo(),
		lookup:    db.RecipeRepo(),
		counter:   db.FavoriteRepo(),
		favorites: db.FavoriteRepo(),
		cart:      db.ShoppingCartRepo(),
		service:   service,
		flags: flagLoader{
			favorites:     db.FavoriteRepo(),
			cart:          db.ShoppingCartRepo(),
			subscriptions: db.SubscriptionRepo(),
		},
		images:  images,
		baseURL: baseURL,
	}
}

// parseRecipeFilter reads the list query. Every bad parameter is reported
// under its own name.
func parseRecipeFilter(q url.Values) (database.RecipeFilter, pageRequest, error) {
	var f database.RecipeFilter
	verr := errs.NewValidationErrors()

	if raw := q.Get("author"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 0)
		if err != nil || id == 0 {
			verr.Add("author", "author must be a user id")
		} else {
			author := uint(id)
			f.AuthorID = &author
		}
	}

	for _, tag := range q["tags"] {
		if tag = strings.TrimSpace(tag); tag != "" {
			f.TagSlugs = append(f.TagSlugs, tag)
		}
	}

	var ok bool
	if f.Favorited, ok = parseFlag(q, "is_favorited"); !ok {
		verr.Add("is_favorited", "is_favorited must be 0 or 1")
	}
	if f.InShoppingCart, ok = parseFlag(q, "is_in_shopping_cart"); !ok {
		verr.Add("is_in_shopping_cart", "is_in_shopping_cart must be 0 or 1")
	}

	page, err := parsePageRequest(q)
	collectFieldErrors(verr, err)
	f.Limit = page.Limit
	f.Offset = page.Offset()

	return f, page, verr.OrNil()
}

func parseFlag(q url.Values, name string) (*bool, bool) {
	switch q.Get(name) {
	case "":
		return nil, true
	case "1":
		v := true
		return &v, true
	case "0":
		v := false
		return &v, true
	default:
		return nil, false
	}
}

func (h recipeHandler) render(r *http.Request, recipes []models.Recipe) ([]RecipeResponse, error) {
	flags, err := h.flags.load(r.Context(), viewerID(r.Context()), recipes)
	if err != nil {
		return nil, err
	}
	out := make([]RecipeResponse, 0, len(recipes))
	for _, recipe := range recipes {
		out = append(out, newRecipeResponse(recipe, h.images, flags))
	}
	return out, nil
}

// listRecipes returns a page of recipes
// @Summary List recipes
// @Tags Recipes
// @Produce json
// @Param author query int false "Author id"
// @Param tags query []string false "Tag slugs, any of"
// @Param is_favorited query int false "0 or 1"
// @Param is_in_shopping_cart query int false "0 or 1"
// @Success 200 {object} Page[RecipeResponse]
// @Failure 400 {object} ErrorResponse
// @Router /api/recipes/ [get]
func (h recipeHandler) listRecipes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, page, err := parseRecipeFilter(r.URL.Query())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		filter.ViewerID = viewerID(r.Context())

		recipes, total, err := h.recipes.List(r.Context(), filter)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		results, err := h.render(r, recipes)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, newPage(h.baseURL, r, page, total, results))
	}
}

// getRecipe
// @Summary Get recipe
// @Tags Recipes
// @Produce json
// @Description The detail view also carries favorites_count, the number of users who favorited the recipe.
// @Success 200 {object} RecipeResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/recipes/{recipeID}/ [get]
func (h recipeHandler) getRecipe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r, "recipeID", "recipe")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		recipe, err := h.recipes.FindByID(r.Context(), id)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		rendered, err := h.render(r, []models.Recipe{*recipe})
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		favorites, err := h.counter.Count(r.Context(), id)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		rendered[0].FavoritesCount = &favorites
		h.responder.WriteJSON(w, rendered[0])
	}
}

func (h recipeHandler) writeRecipe(w http.ResponseWriter, r *http.Request, status int, recipe *models.Recipe) {
	rendered, err := h.render(r, []models.Recipe{*recipe})
	if err != nil {
		h.responder.WriteError(w, err)
		return
	}
	h.responder.WriteJSONStatus(w, status, rendered[0])
}

// createRecipe
// @Summary Create recipe
// @Description Creates a recipe with its tags and ingredient amounts. image is a base64 data URI.
// @Tags Recipes
// @Accept json
// @Produce json
// @Param recipe body services.RecipeInput true "Recipe"
// @Success 201 {object} RecipeResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/recipes/ [post]
func (h recipeHandler) createRecipe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in services.RecipeInput
		if err := decodeJSON(w, r, &in); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		recipe, err := h.service.Create(r.Context(), ctxGetUser(r.Context()), in)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.writeRecipe(w, r, http.StatusCreated, recipe)
	}
}

// updateRecipe replaces every field, the tag set and the ingredient list.
// PUT and PATCH behave the same.
// @Summary Update recipe
// @Tags Recipes
// @Accept json
// @Produce json
// @Param recipe body services.RecipeInput true "Recipe"
// @Success 200 {object} RecipeResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/recipes/{recipeID}/ [put]
func (h recipeHandler) updateRecipe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r, "recipeID", "recipe")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		// Existence and authorship are settled before the body is read.
		current, err := h.lookup.FindBrief(r.Context(), id)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if current.AuthorID != ctxGetUser(r.Context()).ID {
			h.responder.WriteError(w, errs.NewNotAuthorError("recipe"))
			return
		}

		var in services.RecipeInput
		if err := decodeJSON(w, r, &in); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		recipe, err := h.service.Update(r.Context(), ctxGetUser(r.Context()), id, in)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.writeRecipe(w, r, http.StatusOK, recipe)
	}
}

func (h recipeHandler) deleteRecipe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r, "recipeID", "recipe")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if err := h.service.Delete(r.Context(), ctxGetUser(r.Context()), id); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteNoContent(w)
	}
}

// addMark serves favorite and shopping_cart additions.
func (h recipeHandler) addMark(marks *database.RecipeMarkRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r, "recipeID", "recipe")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if err := marks.Add(r.Context(), ctxGetUser(r.Context()).ID, id); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		recipe, err := h.recipes.FindBrief(r.Context(), id)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSONStatus(w, http.StatusCreated, newRecipeMinifiedResponse(*recipe, h.images))
	}
}

func (h recipeHandler) removeMark(marks *database.RecipeMarkRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r, "recipeID", "recipe")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if err := marks.Remove(r.Context(), ctxGetUser(r.Context()).ID, id); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteNoContent(w)
	}
}

// downloadShoppingCart
// @Summary Download shopping list
// @Description Sums ingredient amounts over every recipe in the caller's cart.
// @Tags Recipes
// @Produce plain
// @Success 200 {string} string "shopping_list.txt"
// @Router /api/recipes/download_shopping_cart/ [get]
func (h recipeHandler) downloadShoppingCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := ctxGetUser(r.Context())
		lines, err := h.recipes.ShoppingList(r.Context(), user.ID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var buf bytes.Buffer
		if err := services.WriteShoppingList(&buf, lines); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.logger.Debug().Uint("userID", user.ID).Int("lines", len(lines)).Msg("shopping list rendered")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="shopping_list.txt"`)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(buf.Bytes()); err != nil {
			h.logger.Error().Err(err).Msg("error writing shopping list")
		}
	}
}
