package entities

import (
	"fmt"
	"strings"
	"time"
)

// VenueType is the closed set of catalogue venue kinds.
type VenueType string

const (
	VenueTypeRestaurant VenueType = "restaurant"
	VenueTypeBar        VenueType = "bar"
	VenueTypeCafe       VenueType = "cafe"
	VenueTypeClub       VenueType = "club"
	VenueTypeVenue      VenueType = "venue"
	VenueTypeActivity   VenueType = "activity"
)

// VenueTypes lists every valid VenueType.
var VenueTypes = []VenueType{
	VenueTypeRestaurant,
	VenueTypeBar,
	VenueTypeCafe,
	VenueTypeClub,
	VenueTypeVenue,
	VenueTypeActivity,
}

// ParseVenueType validates a venue type string.
func ParseVenueType(raw string) (VenueType, error) {
	switch t := VenueType(strings.ToLower(strings.TrimSpace(raw))); t {
	case VenueTypeRestaurant, VenueTypeBar, VenueTypeCafe, VenueTypeClub, VenueTypeVenue, VenueTypeActivity:
		return t, nil
	}
	return "", fmt.Errorf("unknown venue type %q", raw)
}

// ImportVenueType maps the raw type of a catalogue export onto a VenueType.
// Export-only kinds are folded into their closest catalogue kind.
func ImportVenueType(raw string) (VenueType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "culture":
		return VenueTypeVenue, nil
	case "wellness":
		return VenueTypeActivity, nil
	}
	return ParseVenueType(raw)
}

// VenueStatus is the moderation state of a venue.
type VenueStatus string

const (
	VenueStatusActive            VenueStatus = "active"
	VenueStatusClosed            VenueStatus = "closed"
	VenueStatusTemporarilyClosed VenueStatus = "temporarily_closed"
	VenueStatusUnverified        VenueStatus = "unverified"
)

// ParseVenueStatus validates a venue status string.
func ParseVenueStatus(raw string) (VenueStatus, error) {
	switch s := VenueStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case VenueStatusActive, VenueStatusClosed, VenueStatusTemporarilyClosed, VenueStatusUnverified:
		return s, nil
	}
	return "", fmt.Errorf("unknown venue status %q", raw)
}

// Location represents a geographic point
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Venue is a physical place in the catalogue: restaurant, bar, café, club,
// event venue or activity.
type Venue struct {
	ID        string      `json:"id" db:"id"`
	Name      string      `json:"name" db:"name"`
	Slug      string      `json:"slug" db:"slug"`
	Type      VenueType   `json:"type" db:"type"`
	Address   string      `json:"address,omitempty" db:"address"`
	District  string      `json:"district,omitempty" db:"district"`
	City      string      `json:"city" db:"city"`
	Website   string      `json:"website,omitempty" db:"website"`
	Location  *Location   `json:"location,omitempty" db:"-"`
	Status    VenueStatus `json:"status" db:"status"`
	Tags      []Tag       `json:"tags,omitempty" db:"-"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the venue is visible to search and suggestions.
func (v *Venue) IsActive() bool {
	return v.Status == VenueStatusActive
}

// HasTagMatching reports whether any tag label contains any of the terms,
// case-insensitively.
func (v *Venue) HasTagMatching(terms []string) bool {
	return v.hasTagMatching("", terms)
}

// HasCategoryTagMatching is HasTagMatching restricted to tags of one category.
func (v *Venue) HasCategoryTagMatching(category TagCategory, terms []string) bool {
	return v.hasTagMatching(category, terms)
}

func (v *Venue) hasTagMatching(category TagCategory, terms []string) bool {
	for _, tag := range v.Tags {
		if category != "" && tag.Category != category {
			continue
		}
		label := strings.ToLower(tag.Label)
		for _, term := range terms {
			if term == "" {
				continue
			}
			if strings.Contains(label, strings.ToLower(term)) {
				return true
			}
		}
	}
	return false
}

// MatchesText reports whether the venue name, district or any tag label
// contains q, case-insensitively.
func (v *Venue) MatchesText(q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(v.Name), q) || strings.Contains(strings.ToLower(v.District), q) {
		return true
	}
	return v.HasTagMatching([]string{q})
}
