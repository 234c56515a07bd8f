package api

import (
	"github.com/rpupo63/foodgram-backend/models"
	"github.com/rpupo63/foodgram-backend/services"
)

// ErrorResponse represents an error response from the API
// @Description Error response structure
type ErrorResponse struct {
	Error   string              `json:"error" example:"recipe not found"`
	Status  string              `json:"status" example:"error"`
	Field   string              `json:"field,omitempty" example:"image"`
	Details string              `json:"details,omitempty" example:"Additional error details"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

type TagResponse struct {
	ID    uint    `json:"id"`
	Name  string  `json:"name"`
	Color *string `json:"color"`
	Slug  string  `json:"slug"`
}

type IngredientResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

type RecipeIngredientResponse struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	MeasurementUnit string  `json:"measurement_unit"`
	Amount          float64 `json:"amount"`
}

type UserResponse struct {
	Email        string `json:"email"`
	ID           uint   `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
}

// CreatedUserResponse is returned on registration and carries no viewer flags.
type CreatedUserResponse struct {
	Email     string `json:"email"`
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type RecipeResponse struct {
	ID               uint                       `json:"id"`
	Tags             []TagResponse              `json:"tags"`
	Author           UserResponse               `json:"author"`
	Ingredients      []RecipeIngredientResponse `json:"ingredients"`
	IsFavorited      bool                       `json:"is_favorited"`
	IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
	Name             string                     `json:"name"`
	Image            string                     `json:"image"`
	Text             string                     `json:"text"`
	CookingTime      int                        `json:"cooking_time"`
	// FavoritesCount is only filled on the detail endpoint.
	FavoritesCount   *int64                     `json:"favorites_count,omitempty"`
}

type RecipeMinifiedResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

type SubscriptionResponse struct {
	UserResponse
	Recipes      []RecipeMinifiedResponse `json:"recipes"`
	RecipesCount int64                    `json:"recipes_count"`
}

// viewerFlags holds what the current caller has marked among a set of recipes and users.
type viewerFlags struct {
	favorited  map[uint]bool
	inCart     map[uint]bool
	subscribed map[uint]bool
}

func newTagResponse(t models.Tag) TagResponse {
	return TagResponse{ID: t.ID, Name: t.Name, Color: t.Color, Slug: t.Slug}
}

func newIngredientResponse(i models.Ingredient) IngredientResponse {
	return IngredientResponse{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit.Name}
}

func newUserResponse(u models.User, subscribed bool) UserResponse {
	return UserResponse{
		Email:        u.Email,
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
}

func newRecipeResponse(r models.Recipe, images services.ImageStore, flags viewerFlags) RecipeResponse {
	tags := make([]TagResponse, 0, len(r.Tags))
	for _, t := range r.Tags {
		tags = append(tags, newTagResponse(t))
	}
	ingredients := make([]RecipeIngredientResponse, 0, len(r.Ingredients))
	for _, line := range r.Ingredients {
		ingredients = append(ingredients, RecipeIngredientResponse{
			ID:              line.IngredientID,
			Name:            line.Ingredient.Name,
			MeasurementUnit: line.Ingredient.MeasurementUnit.Name,
			Amount:          line.Amount,
		})
	}

	return RecipeResponse{
		ID:               r.ID,
		Tags:             tags,
		Author:           newUserResponse(r.Author, flags.subscribed[r.AuthorID]),
		Ingredients:      ingredients,
		IsFavorited:      flags.favorited[r.ID],
		IsInShoppingCart: flags.inCart[r.ID],
		Name:             r.Name,
		Image:            images.URL(r.Image),
		Text:             r.Text,
		CookingTime:      r.CookingTime,
	}
}

func newRecipeMinifiedResponse(r models.Recipe, images services.ImageStore) RecipeMinifiedResponse {
	return RecipeMinifiedResponse{ID: r.ID, Name: r.Name, Image: images.URL(r.Image), CookingTime: r.CookingTime}
}
