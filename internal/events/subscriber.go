// Package events consumes the application's websocket event stream and keeps
// the visibility-context cache honest: whenever a ban, subscription or group
// setting changes, the affected viewers' cached contexts are invalidated.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const reconnectDelay = 5 * time.Second

// Invalidator drops a viewer's cached visibility context.
type Invalidator interface {
	Invalidate(viewerID uuid.UUID)
}

// Subscriber connects to the event stream and processes events.
type Subscriber struct {
	url    string
	cache  Invalidator
	logger *slog.Logger
}

// NewSubscriber creates a new event stream subscriber.
func NewSubscriber(streamURL string, cache Invalidator, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		url:    streamURL,
		cache:  cache,
		logger: logger,
	}
}

// Start connects to the event stream and processes events until the context
// is cancelled. It automatically reconnects on transient errors.
func (s *Subscriber) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := s.subscribe(ctx); err != nil {
				s.logger.Error("event stream connection error, reconnecting", "error", err)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(reconnectDelay):
					// backoff before reconnecting
				}
			}
		}
	}
}

func (s *Subscriber) subscribe(ctx context.Context) error {
	s.logger.Info("connecting to event stream", "url", s.url)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial event stream: %w", err)
	}
	defer conn.Close()

	s.logger.Info("connected to event stream")

	var eventsReceived, invalidations int64
	lastStatsLog := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		event, err := parseEvent(message)
		if err != nil {
			s.logger.Error("failed to parse event", "error", err)
			continue
		}

		eventsReceived++
		invalidations += int64(s.handleEvent(event))

		// Log stats every 30 seconds
		if time.Since(lastStatsLog) >= 30*time.Second {
			s.logger.Info("event stream stats",
				"events_received", eventsReceived,
				"invalidations", invalidations,
			)
			lastStatsLog = time.Now()
		}
	}
}

// handleEvent invalidates the cached contexts an event touches and returns
// how many it dropped. Bans cut both ways, so both parties are invalidated.
func (s *Subscriber) handleEvent(event *streamEvent) int {
	if _, ok := visibilityKinds[event.Kind]; !ok {
		return 0
	}

	dropped := 0
	if event.UserID != uuid.Nil {
		s.cache.Invalidate(event.UserID)
		dropped++
	}
	if event.TargetUserID != uuid.Nil && event.TargetUserID != event.UserID {
		s.cache.Invalidate(event.TargetUserID)
		dropped++
	}
	return dropped
}

func parseEvent(data []byte) (*streamEvent, error) {
	var event streamEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &event, nil
}
