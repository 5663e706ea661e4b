package entities

import (
	"time"

	"github.com/google/uuid"
)

// VenueEventType represents the kind of catalogue change
type VenueEventType string

const (
	VenueEventCreated       VenueEventType = "created"
	VenueEventStatusChanged VenueEventType = "status_changed"
	VenueEventTagChanged    VenueEventType = "tag_changed"
)

// VenueEvent announces a catalogue change to every API instance
type VenueEvent struct {
	ID            string                 `json:"id"`
	VenueID       string                 `json:"venue_id"`
	EventType     VenueEventType         `json:"event_type"`
	Timestamp     time.Time              `json:"timestamp"`
	ChangedFields map[string]interface{} `json:"changed_fields,omitempty"`
}

// NewVenueEvent creates a new venue event
func NewVenueEvent(venueID string, eventType VenueEventType, changedFields map[string]interface{}) *VenueEvent {
	return &VenueEvent{
		ID:            uuid.New().String(),
		VenueID:       venueID,
		EventType:     eventType,
		Timestamp:     time.Now(),
		ChangedFields: changedFields,
	}
}
