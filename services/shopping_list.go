package services

import (
	"fmt"
	"io"
	"strconv"

	"github.com/rpupo63/foodgram-backend/database"
)

// WriteShoppingList renders the aggregated cart as numbered plain-text lines:
// "1. flour (g) - 150".
func WriteShoppingList(w io.Writer, lines []database.ShoppingListLine) error {
	if len(lines) == 0 {
		_, err := io.WriteString(w, "Your shopping cart is empty.\n")
		return err
	}

	if _, err := io.WriteString(w, "Shopping list\n\n"); err != nil {
		return err
	}
	for i, line := range lines {
		amount := strconv.FormatFloat(line.Amount, 'f', -1, 64)
		if _, err := fmt.Fprintf(w, "%d. %s (%s) - %s\n", i+1, line.Name, line.MeasurementUnit, amount); err != nil {
			return err
		}
	}
	return nil
}
