package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/providers"
	redisclient "github.com/zatekoja/datebuch/internal/infrastructure/clients/redis"
)

// subscriberBuffer is the number of undelivered events a subscriber may lag
const subscriberBuffer = 100

var errBusClosed = errors.New("event bus closed")

// subscriber is one Subscribe call. dropped counts events skipped while its
// buffer was full.
type subscriber struct {
	events  chan *entities.VenueEvent
	dropped int
}

// topic is one Redis channel with its connection and local subscribers
type topic struct {
	name        string
	pubsub      *redis.PubSub
	subscribers map[*subscriber]struct{}
}

// RedisEventBus implements EventBus on Redis Pub/Sub. Each channel holds one
// Redis subscription, fanned out to every local subscriber.
type RedisEventBus struct {
	client *redisclient.Client

	mu     sync.Mutex
	topics map[string]*topic
	closed bool
	loops  sync.WaitGroup
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	return &RedisEventBus{
		client: client,
		topics: make(map[string]*topic),
	}
}

// Publish sends event to every instance subscribed to channel. Events need a
// venue and a type; a missing id or timestamp is filled in.
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.VenueEvent) error {
	if event == nil || event.VenueID == "" || event.EventType == "" {
		return fmt.Errorf("venue event needs a venue id and an event type")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	receivers, err := b.client.Client().Publish(ctx, channel, data).Result()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Debug().
		Str("channel", channel).
		Str("event_id", event.ID).
		Str("venue_id", event.VenueID).
		Int64("receivers", receivers).
		Msg("Published venue event")
	return nil
}

// Subscribe returns a channel of the events published on channel. It is
// closed when ctx ends, on Unsubscribe or on Close.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.VenueEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errBusClosed
	}

	t, ok := b.topics[channel]
	if !ok {
		pubsub := b.client.Client().Subscribe(context.Background(), channel)
		// publishes after Subscribe returns must not be lost
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
		}
		t = &topic{name: channel, pubsub: pubsub, subscribers: make(map[*subscriber]struct{})}
		b.topics[channel] = t
		b.loops.Add(1)
		go b.dispatch(t)
	}

	sub := &subscriber{events: make(chan *entities.VenueEvent, subscriberBuffer)}
	t.subscribers[sub] = struct{}{}
	log.Info().Str("channel", channel).Int("subscribers", len(t.subscribers)).Msg("Subscribed to venue events")

	go func() {
		<-ctx.Done()
		b.leave(t, sub)
	}()

	return sub.events, nil
}

// dispatch decodes the messages of one topic and hands every subscriber its
// own copy. It ends when the topic's subscription is closed.
func (b *RedisEventBus) dispatch(t *topic) {
	defer b.loops.Done()

	for msg := range t.pubsub.Channel() {
		var event entities.VenueEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Warn().Err(err).Str("channel", t.name).Msg("Discarding undecodable venue event")
			continue
		}

		b.mu.Lock()
		for sub := range t.subscribers {
			copied := event
			select {
			case sub.events <- &copied:
			default:
				sub.dropped++
				log.Warn().
					Str("channel", t.name).
					Str("event_id", event.ID).
					Int("dropped", sub.dropped).
					Msg("Venue event subscriber lagging, event dropped")
			}
		}
		b.mu.Unlock()
	}
}

// leave removes one subscriber and closes the topic when it was the last
func (b *RedisEventBus) leave(t *topic, sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := t.subscribers[sub]; !ok {
		return
	}
	delete(t.subscribers, sub)
	close(sub.events)

	if len(t.subscribers) == 0 && b.topics[t.name] == t {
		delete(b.topics, t.name)
		if err := t.pubsub.Close(); err != nil {
			log.Warn().Err(err).Str("channel", t.name).Msg("Failed to close venue event subscription")
		}
	}
}

// closeTopic closes every subscriber of t and its Redis subscription.
// Callers hold b.mu.
func (b *RedisEventBus) closeTopic(t *topic) error {
	for sub := range t.subscribers {
		close(sub.events)
	}
	t.subscribers = nil
	delete(b.topics, t.name)
	if err := t.pubsub.Close(); err != nil {
		return fmt.Errorf("failed to close subscription %s: %w", t.name, err)
	}
	return nil
}

// Unsubscribe ends every local subscription to channel
func (b *RedisEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[channel]
	if !ok {
		return nil
	}
	if err := b.closeTopic(t); err != nil {
		return err
	}
	log.Info().Str("channel", channel).Msg("Unsubscribed from venue events")
	return nil
}

// Close ends every subscription and waits for the dispatch loops to stop
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true

	var errs []error
	for _, t := range b.topics {
		if err := b.closeTopic(t); err != nil {
			errs = append(errs, err)
		}
	}
	b.mu.Unlock()

	b.loops.Wait()
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("errors closing event bus: %w", err)
	}

	log.Info().Msg("Event bus closed")
	return nil
}
