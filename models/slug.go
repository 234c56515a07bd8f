package models

import (
	"fmt"

	"github.com/gosimple/slug"
)

// Slugify romanizes name and lowercases it into a URL-safe slug. It returns
// "" when nothing usable is left.
func Slugify(name string) string {
	return slug.Make(name)
}

// SlugCandidate returns base for attempt 1 and base-N afterwards.
func SlugCandidate(base string, attempt int) string {
	if attempt <= 1 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, attempt)
}
