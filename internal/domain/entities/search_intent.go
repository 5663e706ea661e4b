package entities

// SearchIntent is the structured reading of a free-text catalogue query.
type SearchIntent struct {
	Query string      `json:"query"`
	Tags  []string    `json:"tags"`
	Types []VenueType `json:"types,omitempty"`
}

// ScoredVenue is a venue with the score of its best tag match.
type ScoredVenue struct {
	Venue      *Venue  `json:"venue"`
	Score      float64 `json:"score"`
	MatchedTag string  `json:"matched_tag,omitempty"`
}

// NearbyVenue is a venue with its great-circle distance from a reference venue.
type NearbyVenue struct {
	Venue      *Venue  `json:"venue"`
	DistanceKm float64 `json:"distance_km"`
}
