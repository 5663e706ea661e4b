package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/providers"
)

// VenueCacheInvalidator drops cached catalogue reads for a venue
type VenueCacheInvalidator interface {
	Invalidate(ctx context.Context, venueID string)
}

// CatalogueInvalidationService invalidates the local catalogue cache when any
// instance announces a venue change
type CatalogueInvalidationService struct {
	cache    VenueCacheInvalidator
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	started  bool
}

// NewCatalogueInvalidationService creates a new catalogue invalidation service
func NewCatalogueInvalidationService(cache VenueCacheInvalidator, eventBus providers.EventBus) *CatalogueInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CatalogueInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start begins listening for venue events
func (s *CatalogueInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelVenueUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to venue updates: %w", err)
	}

	s.started = true
	go s.processEvents(eventChan)
	log.Info().Msg("Catalogue invalidation service started")
	return nil
}

// Stop stops the service and waits for the event loop to exit
func (s *CatalogueInvalidationService) Stop() {
	s.cancel()
	if s.started {
		<-s.done
	}
	log.Info().Msg("Catalogue invalidation service stopped")
}

func (s *CatalogueInvalidationService) processEvents(eventChan <-chan *entities.VenueEvent) {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

func (s *CatalogueInvalidationService) handleEvent(event *entities.VenueEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.cache.Invalidate(ctx, event.VenueID)

	log.Debug().
		Str("event_id", event.ID).
		Str("venue_id", event.VenueID).
		Str("event_type", string(event.EventType)).
		Msg("Invalidated catalogue cache")
}
