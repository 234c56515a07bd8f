package database

import (
	"context"
	"strings"
	"testing"
)

func TestLoadIngredients_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "name,measurement_unit\nflour,g"},
		{"missing unit", `[{"name": "flour", "measurement_unit": ""}]`},
		{"missing name", `[{"name": "  ", "measurement_unit": "g"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := LoadIngredients(context.Background(), nil, strings.NewReader(tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if n != 0 {
				t.Errorf("created = %d, want 0", n)
			}
		})
	}
}

func TestLoadTags_RejectsBadInput(t *testing.T) {
	if _, err := LoadTags(context.Background(), nil, strings.NewReader(`[{"name": ""}]`)); err == nil {
		t.Fatal("expected error for empty tag name")
	}
}

func TestLikeEscaper(t *testing.T) {
	if got := likeEscaper.Replace(`50%_off\`); got != `50\%\_off\\` {
		t.Errorf("escaped = %q", got)
	}
}
