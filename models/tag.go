package models

type Tag struct {
	ID    uint    `json:"id" db:"id" gorm:"primaryKey"`
	Name  string  `json:"name" db:"name" gorm:"type:varchar(512);not null;uniqueIndex:idx_tags_name"`
	Color *string `json:"color" db:"color" gorm:"type:varchar(7)"`
	Slug  string  `json:"slug" db:"slug" gorm:"type:varchar(512);not null;uniqueIndex:idx_tags_slug"`
}

// RecipeTag is the join row between a recipe and one of its tags.
type RecipeTag struct {
	RecipeID uint `json:"recipe_id" db:"recipe_id" gorm:"primaryKey"`
	TagID    uint `json:"tag_id" db:"tag_id" gorm:"primaryKey;index:idx_recipe_tags_tag"`

	Recipe Recipe `json:"-" gorm:"foreignKey:RecipeID;references:ID;constraint:OnDelete:CASCADE"`
	Tag    Tag    `json:"-" gorm:"foreignKey:TagID;references:ID;constraint:OnDelete:CASCADE"`
}
