package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// setupRoutes mounts the public API under /api. Read endpoints accept
// anonymous callers; writes need a token.
func setupRoutes(r chi.Router, handlers *routeHandlers, auth authMiddleware, loginLimit func(http.Handler) http.Handler) {
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.optional)

			r.Get("/recipes", handlers.recipeHandler.listRecipes())
			r.Get("/recipes/{recipeID:[0-9]+}", handlers.recipeHandler.getRecipe())

			r.Get("/tags", handlers.tagHandler.listTags())
			r.Get("/tags/{tagID:[0-9]+}", handlers.tagHandler.getTag())

			r.Get("/ingredients", handlers.ingredientHandler.listIngredients())
			r.Get("/ingredients/{ingredientID:[0-9]+}", handlers.ingredientHandler.getIngredient())

			r.Post("/users", handlers.userHandler.register())
			r.Get("/users", handlers.userHandler.listUsers())
			r.Get("/users/{userID:[0-9]+}", handlers.userHandler.getUser())

			r.With(loginLimit).Post("/auth/token/login", handlers.authHandler.login())
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.authenticate)

			r.Post("/recipes", handlers.recipeHandler.createRecipe())
			r.Put("/recipes/{recipeID:[0-9]+}", handlers.recipeHandler.updateRecipe())
			r.Patch("/recipes/{recipeID:[0-9]+}", handlers.recipeHandler.updateRecipe())
			r.Delete("/recipes/{recipeID:[0-9]+}", handlers.recipeHandler.deleteRecipe())
			r.Get("/recipes/download_shopping_cart", handlers.recipeHandler.downloadShoppingCart())

			favorites := handlers.recipeHandler.favorites
			cart := handlers.recipeHandler.cart
			r.Post("/recipes/{recipeID:[0-9]+}/favorite", handlers.recipeHandler.addMark(favorites))
			r.Delete("/recipes/{recipeID:[0-9]+}/favorite", handlers.recipeHandler.removeMark(favorites))
			r.Post("/recipes/{recipeID:[0-9]+}/shopping_cart", handlers.recipeHandler.addMark(cart))
			r.Delete("/recipes/{recipeID:[0-9]+}/shopping_cart", handlers.recipeHandler.removeMark(cart))

			r.Get("/users/me", handlers.userHandler.me())
			r.Post("/users/set_password", handlers.userHandler.setPassword())
			r.Get("/users/subscriptions", handlers.userHandler.listSubscriptions())
			r.Post("/users/{userID:[0-9]+}/subscribe", handlers.userHandler.subscribe())
			r.Delete("/users/{userID:[0-9]+}/subscribe", handlers.userHandler.unsubscribe())

			r.Post("/auth/token/logout", handlers.authHandler.logout())

			r.With(auth.requireAdmin).Delete("/ingredients/{ingredientID:[0-9]+}", handlers.ingredientHandler.deleteIngredient())
		})
	})
}
