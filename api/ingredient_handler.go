package api

import (
	"net/http"
	"strings"

	"github.com/rpupo63/foodgram-backend/database"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ingredientHandler struct {
	responder   Responder
	logger      zerolog.Logger
	ingredients *database.IngredientRepo
}

func newIngredientHandler(ingredients *database.IngredientRepo) ingredientHandler {
	logger := log.With().Str("handlerName", "ingredientHandler").Logger()

	return ingredientHandler{
		responder:   NewResponder(logger),
		logger:      logger,
		ingredients: ingredients,
	}
}

// listIngredients filters by name prefix and by substring, both
// case-insensitive. The list is not paginated.
// @Summary List ingredients
// @Tags Ingredients
// @Produce json
// @Param name query string false "Name prefix"
// @Param search query string false "Name substring"
// @Success 200 {array} IngredientResponse
// @Router /api/ingredients/ [get]
func (h ingredientHandler) listIngredients() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		ingredients, err := h.ingredients.List(r.Context(), strings.TrimSpace(q.Get("name")), strings.TrimSpace(q.Get("search")))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		out := make([]IngredientResponse, 0, len(ingredients))
		for _, ingredient := range ingredients {
			out = append(out, newIngredientResponse(ingredient))
		}
		h.responder.WriteJSON(w, out)
	}
}

func (h ingredientHandler) getIngredient() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r, "ingredientID", "ingredient")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		ingredient, err := h.ingredients.FindByID(r.Context(), id)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, newIngredientResponse(*ingredient))
	}
}

// deleteIngredient is refused with 409 while a recipe still uses the ingredient.
func (h ingredientHandler) deleteIngredient() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r, "ingredientID", "ingredient")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if err := h.ingredients.Delete(r.Context(), id); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.logger.Info().Uint("ingredientID", id).Uint("adminID", viewerID(r.Context())).Msg("ingredient deleted")
		h.responder.WriteNoContent(w)
	}
}
