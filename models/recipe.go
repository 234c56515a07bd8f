package models

import "time"

// Recipe is authored by one user and lists its ingredients with amounts.
type Recipe struct {
	ID          uint      `json:"id" db:"id" gorm:"primaryKey"`
	Name        string    `json:"name" db:"name" gorm:"type:varchar(512);not null;uniqueIndex:idx_recipes_name"`
	AuthorID    uint      `json:"author_id" db:"author_id" gorm:"not null;index:idx_recipes_author"`
	Image       string    `json:"image" db:"image" gorm:"type:text;not null"`
	Text        string    `json:"text" db:"text" gorm:"type:text;not null"`
	CookingTime int       `json:"cooking_time" db:"cooking_time" gorm:"not null;check:chk_recipes_cooking_time,cooking_time >= 1"`
	PubDate     time.Time `json:"pub_date" db:"pub_date" gorm:"type:timestamptz;not null;autoCreateTime;index:idx_recipes_pub_date,sort:desc"`

	Author      User               `json:"author" gorm:"foreignKey:AuthorID;references:ID;constraint:OnDelete:CASCADE"`
	Tags        []Tag              `json:"tags" gorm:"many2many:recipe_tags;joinForeignKey:RecipeID;joinReferences:TagID"`
	Ingredients []AmountIngredient `json:"ingredients" gorm:"foreignKey:RecipeID;references:ID;constraint:OnDelete:CASCADE"`
}

// Favorite and ShoppingCartItem share the same shape: a (user, recipe) mark.
type Favorite struct {
	UserID    uint      `json:"user_id" db:"user_id" gorm:"primaryKey"`
	RecipeID  uint      `json:"recipe_id" db:"recipe_id" gorm:"primaryKey;index:idx_favorites_recipe"`
	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"type:timestamptz;not null;autoCreateTime"`

	User   User   `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	Recipe Recipe `json:"-" gorm:"foreignKey:RecipeID;references:ID;constraint:OnDelete:CASCADE"`
}

type ShoppingCartItem struct {
	UserID    uint      `json:"user_id" db:"user_id" gorm:"primaryKey"`
	RecipeID  uint      `json:"recipe_id" db:"recipe_id" gorm:"primaryKey;index:idx_shopping_cart_items_recipe"`
	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"type:timestamptz;not null;autoCreateTime"`

	User   User   `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	Recipe Recipe `json:"-" gorm:"foreignKey:RecipeID;references:ID;constraint:OnDelete:CASCADE"`
}
