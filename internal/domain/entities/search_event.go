package entities

import (
	"time"
)

// SearchEvent represents a single catalogue search for analytics.
type SearchEvent struct {
	ID              string    `json:"id" db:"id"`
	Query           string    `json:"query" db:"query"`
	NormalizedQuery string    `json:"normalized_query" db:"normalized_query"`
	DetectedTypes   string    `json:"detected_types,omitempty" db:"detected_types"`
	ResultCount     int       `json:"result_count" db:"result_count"`
	TopVenueID      string    `json:"top_venue_id,omitempty" db:"top_venue_id"`
	LatencyMs       int       `json:"latency_ms" db:"latency_ms"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// QueryCount is a normalized query with the number of times it was searched.
type QueryCount struct {
	NormalizedQuery string `json:"query" db:"normalized_query"`
	Count           int    `json:"count" db:"count"`
}
