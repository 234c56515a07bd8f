package database

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

type ingredientFixture struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

type tagFixture struct {
	Name  string  `json:"name"`
	Color *string `json:"color"`
}

// LoadIngredients reads a JSON array of {name, measurement_unit} and creates
// every entry that does not exist yet. It returns how many were created.
func LoadIngredients(ctx context.Context, repo *IngredientRepo, r io.Reader) (int, error) {
	var fixtures []ingredientFixture
	if err := json.NewDecoder(r).Decode(&fixtures); err != nil {
		return 0, fmt.Errorf("decode ingredient fixtures: %w", err)
	}

	created := 0
	for i, f := range fixtures {
		name, unit := strings.TrimSpace(f.Name), strings.TrimSpace(f.MeasurementUnit)
		if name == "" || unit == "" {
			return created, fmt.Errorf("ingredient fixture %d: name and measurement_unit are required", i)
		}
		_, isNew, err := repo.GetOrCreate(ctx, name, unit)
		if err != nil {
			return created, fmt.Errorf("ingredient fixture %d (%s): %w", i, name, err)
		}
		if isNew {
			created++
		}
	}

	log.Info().Int("total", len(fixtures)).Int("created", created).Msg("ingredient fixtures loaded")
	return created, nil
}

// LoadTags reads a JSON array of {name, color} and creates the missing tags.
func LoadTags(ctx context.Context, repo *TagRepo, r io.Reader) (int, error) {
	var fixtures []tagFixture
	if err := json.NewDecoder(r).Decode(&fixtures); err != nil {
		return 0, fmt.Errorf("decode tag fixtures: %w", err)
	}

	created := 0
	for i, f := range fixtures {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return created, fmt.Errorf("tag fixture %d: name is required", i)
		}
		_, isNew, err := repo.GetOrCreate(ctx, name, f.Color)
		if err != nil {
			return created, fmt.Errorf("tag fixture %d (%s): %w", i, name, err)
		}
		if isNew {
			created++
		}
	}

	log.Info().Int("total", len(fixtures)).Int("created", created).Msg("tag fixtures loaded")
	return created, nil
}
