package entities

// WeatherContext is the weather input of the suggestion engine.
type WeatherContext struct {
	Temp    float64 `json:"temp"`
	IsRainy bool    `json:"is_rainy"`
}

// DateContext is the input of a suggestion request.
type DateContext struct {
	DayOfWeek int             `json:"day_of_week" validate:"min=0,max=6"`
	Hour      int             `json:"hour" validate:"min=0,max=23"`
	Weather   *WeatherContext `json:"weather,omitempty"`
	Scope     Scope           `json:"scope"`
}

// Suggestion is a three-slot date proposal. Absent slots are nil.
type Suggestion struct {
	Restaurant *Venue `json:"restaurant,omitempty"`
	Activity   *Venue `json:"activity,omitempty"`
	Bar        *Venue `json:"bar,omitempty"`
	Reason     string `json:"reason"`
}

// IsEmpty reports whether no slot could be filled.
func (s *Suggestion) IsEmpty() bool {
	return s.Restaurant == nil && s.Activity == nil && s.Bar == nil
}
