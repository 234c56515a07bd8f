package api

import (
	"github.com/rpupo63/foodgram-backend/services"
)

type routeHandlers struct {
	recipeHandler     recipeHandler
	ingredientHandler ingredientHandler
	tagHandler        tagHandler
	userHandler       userHandler
	authHandler       authHandler
	healthHandler     healthHandler
}

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(deps Dependencies, baseURL string) *routeHandlers {
	db := deps.Database
	recipeService := services.NewRecipeService(db.RecipeRepo(), deps.Images, deps.Metrics)

	return &routeHandlers{
		recipeHandler:     newRecipeHandler(db, recipeService, deps.Images, baseURL),
		ingredientHandler: newIngredientHandler(db.IngredientRepo()),
		tagHandler:        newTagHandler(db.TagRepo()),
		userHandler:       newUserHandler(db, deps.Images, baseURL),
		authHandler:       newAuthHandler(db.UserRepo(), deps.Tokens),
		healthHandler:     newHealthHandler(db),
	}
}
