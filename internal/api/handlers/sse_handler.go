package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/providers"
)

const sseHeartbeatInterval = 30 * time.Second

// SSEHandler streams catalogue changes as Server-Sent Events
type SSEHandler struct {
	eventBus  providers.EventBus
	clients   map[chan *entities.VenueEvent]struct{}
	mu        sync.RWMutex
	heartbeat time.Duration
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(eventBus providers.EventBus) *SSEHandler {
	return &SSEHandler{
		eventBus:  eventBus,
		clients:   make(map[chan *entities.VenueEvent]struct{}),
		heartbeat: sseHeartbeatInterval,
	}
}

// StreamCatalogueUpdates handles GET /api/stream/venues
func (h *SSEHandler) StreamCatalogueUpdates(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, "")
}

// StreamVenueUpdates handles GET /api/stream/venues/{id}
func (h *SSEHandler) StreamVenueUpdates(w http.ResponseWriter, r *http.Request) {
	venueID := r.PathValue("id")
	if venueID == "" {
		respondWithError(w, http.StatusBadRequest, "venue ID is required")
		return
	}
	h.stream(w, r, venueID)
}

// stream forwards venue events until the client disconnects. An empty
// venueID forwards every event.
func (h *SSEHandler) stream(w http.ResponseWriter, r *http.Request, venueID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	eventChan, err := h.eventBus.Subscribe(r.Context(), providers.EventChannelVenueUpdates)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to subscribe to venue updates")
		respondWithError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientChan := make(chan *entities.VenueEvent, 10)
	h.registerClient(clientChan)
	defer h.unregisterClient(clientChan)

	h.sendEvent(w, "connected", map[string]interface{}{
		"venue_id":  venueID,
		"timestamp": time.Now(),
	})
	flusher.Flush()

	go h.forwardEvents(r.Context(), eventChan, clientChan, venueID)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug().Str("venue_id", venueID).Msg("Client disconnected from venue stream")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now(),
			})
			flusher.Flush()
		case event := <-clientChan:
			if event == nil {
				continue
			}
			h.sendEvent(w, string(event.EventType), event)
			flusher.Flush()
		}
	}
}

func (h *SSEHandler) forwardEvents(ctx context.Context, eventChan <-chan *entities.VenueEvent, clientChan chan<- *entities.VenueEvent, venueID string) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if venueID != "" && event.VenueID != venueID {
				continue
			}
			select {
			case clientChan <- event:
			default:
				// slow client; drop
			}
		}
	}
}

func (h *SSEHandler) registerClient(clientChan chan *entities.VenueEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[clientChan] = struct{}{}
}

func (h *SSEHandler) unregisterClient(clientChan chan *entities.VenueEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, clientChan)
}

func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}

// ClientCount returns the number of connected stream clients
func (h *SSEHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
