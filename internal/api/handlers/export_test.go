package handlers

import (
	"time"
	_ "time/tzdata"
)

// SetSuggestionClock replaces the clock used for default day and hour.
func SetSuggestionClock(h *SuggestionHandler, now func() time.Time) {
	h.now = now
}
