package models

import (
	"reflect"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ascii", "Breakfast Ideas", "breakfast-ideas"},
		{"cyrillic", "Завтрак", "zavtrak"},
		{"punctuation only", "!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSlugCandidate(t *testing.T) {
	if got := SlugCandidate("lunch", 1); got != "lunch" {
		t.Errorf("attempt 1 = %q", got)
	}
	if got := SlugCandidate("lunch", 3); got != "lunch-3" {
		t.Errorf("attempt 3 = %q", got)
	}
}

func TestIsAdmin(t *testing.T) {
	var nobody *User
	if nobody.IsAdmin() {
		t.Error("nil user must not be admin")
	}
	if (&User{Role: RoleUser}).IsAdmin() {
		t.Error("regular user reported as admin")
	}
	if !(&User{Role: RoleAdmin}).IsAdmin() {
		t.Error("admin not reported as admin")
	}
}

func TestGetModelFields(t *testing.T) {
	got := getModelFields(AmountIngredient{})
	want := []string{"id", "recipe_id", "ingredient_id", "amount"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("getModelFields(AmountIngredient) = %v, want %v", got, want)
	}

	type withColumn struct {
		Legacy string `gorm:"column:legacy_name"`
	}
	if got := getModelFields(&withColumn{}); !reflect.DeepEqual(got, []string{"legacy_name"}) {
		t.Errorf("column tag not honoured: %v", got)
	}
}

func TestFindColumnMismatches(t *testing.T) {
	got := findColumnMismatches(
		[]string{"id", "name", "legacy_slug"},
		[]string{"id", "name"},
	)
	if !reflect.DeepEqual(got, []string{"legacy_slug"}) {
		t.Errorf("findColumnMismatches = %v", got)
	}
}
