package entities

import (
	"fmt"
	"strings"
	"time"
)

// TagCategory is the closed set of tag categories.
type TagCategory string

const (
	TagCategoryFood       TagCategory = "food"
	TagCategoryDrink      TagCategory = "drink"
	TagCategoryIngredient TagCategory = "ingredient"
	TagCategoryActivity   TagCategory = "activity"
	TagCategoryVibe       TagCategory = "vibe"
	TagCategoryFeature    TagCategory = "feature"
	TagCategoryPrice      TagCategory = "price"
	TagCategoryDietary    TagCategory = "dietary"
	TagCategoryBestFor    TagCategory = "best_for"
)

// SpecialtyBonus is added to the quality score of a specialty tag match.
const SpecialtyBonus = 10

// ParseTagCategory validates a tag category string.
func ParseTagCategory(raw string) (TagCategory, error) {
	switch c := TagCategory(strings.ToLower(strings.TrimSpace(raw))); c {
	case TagCategoryFood, TagCategoryDrink, TagCategoryIngredient, TagCategoryActivity,
		TagCategoryVibe, TagCategoryFeature, TagCategoryPrice, TagCategoryDietary, TagCategoryBestFor:
		return c, nil
	}
	return "", fmt.Errorf("unknown tag category %q", raw)
}

// ImportTagCategory maps a category key of a catalogue export onto a
// TagCategory.
func ImportTagCategory(raw string) (TagCategory, error) {
	if strings.ToLower(strings.TrimSpace(raw)) == "culture" {
		return TagCategoryActivity, nil
	}
	return ParseTagCategory(raw)
}

// Tag is a categorized label attached to exactly one venue.
type Tag struct {
	ID           string      `json:"id" db:"id"`
	VenueID      string      `json:"venue_id" db:"venue_id"`
	Category     TagCategory `json:"category" db:"category"`
	Label        string      `json:"tag" db:"label"`
	IsSpecialty  bool        `json:"is_specialty" db:"is_specialty"`
	QualityScore float64     `json:"quality_score" db:"quality_score"`
	Upvotes      int         `json:"upvotes" db:"upvotes"`
	Downvotes    int         `json:"downvotes" db:"downvotes"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

// MatchScore is the score a query match on this tag contributes to its venue.
func (t *Tag) MatchScore() float64 {
	if t.IsSpecialty {
		return t.QualityScore + SpecialtyBonus
	}
	return t.QualityScore
}
