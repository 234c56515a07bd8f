package models

type MeasurementUnit struct {
	ID   uint   `json:"id" db:"id" gorm:"primaryKey"`
	Name string `json:"name" db:"name" gorm:"type:varchar(128);not null;uniqueIndex:idx_measurement_units_name"`
}

// Ingredient is a catalogue entry. It cannot be removed while a recipe uses it.
type Ingredient struct {
	ID                uint   `json:"id" db:"id" gorm:"primaryKey"`
	Name              string `json:"name" db:"name" gorm:"type:varchar(512);not null;index:idx_ingredients_name"`
	MeasurementUnitID uint   `json:"measurement_unit_id" db:"measurement_unit_id" gorm:"not null;index"`

	MeasurementUnit MeasurementUnit `json:"measurement_unit" gorm:"foreignKey:MeasurementUnitID;references:ID;constraint:OnDelete:RESTRICT"`
}

// AmountIngredient is one line of a recipe's ingredient list. Rows are only
// written as part of a recipe create or update.
type AmountIngredient struct {
	ID           uint    `json:"id" db:"id" gorm:"primaryKey"`
	RecipeID     uint    `json:"recipe_id" db:"recipe_id" gorm:"not null;uniqueIndex:idx_amount_ingredients_unique"`
	IngredientID uint    `json:"ingredient_id" db:"ingredient_id" gorm:"not null;uniqueIndex:idx_amount_ingredients_unique;index:idx_amount_ingredients_ingredient"`
	Amount       float64 `json:"amount" db:"amount" gorm:"not null;check:chk_amount_ingredients_amount,amount >= 0"`

	Ingredient Ingredient `json:"ingredient" gorm:"foreignKey:IngredientID;references:ID;constraint:OnDelete:RESTRICT"`
}
