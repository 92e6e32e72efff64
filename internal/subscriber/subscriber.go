// Package subscriber bridges externally published report events into
// the in-process dispatcher. Sibling processes (imports, admin tools)
// publish on a redis channel and reach nearby connections without
// sharing this process.
package subscriber

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"rescuegrid/internal/geocell"
	"rescuegrid/internal/realtime"
)

type Dispatcher interface {
	NotifyNearby(event realtime.Event)
}

type Subscriber struct {
	logger     *slog.Logger
	client     *redis.Client
	topic      string
	dispatcher Dispatcher
}

func NewSubscriber(logger *slog.Logger, client *redis.Client, topic string, dispatcher Dispatcher) *Subscriber {
	return &Subscriber{
		logger:     logger,
		client:     client,
		topic:      topic,
		dispatcher: dispatcher,
	}
}

func (s *Subscriber) Start(ctx context.Context) error {
	s.logger.Info("redis subscriber is running", "topic", s.topic)
	pubsub := s.client.Subscribe(ctx, s.topic)
	defer func() {
		if err := pubsub.Close(); err != nil {
			s.logger.Warn("failed to close pubsub", "error", err)
		}
	}()

	msgCh := pubsub.Channel()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				s.logger.Warn("pubsub channel closed by redis")
				return nil
			}
			s.handleMessage(msg)
		case <-ctx.Done():
			s.logger.Info("shutting down redis subscriber")
			return nil
		}
	}
}

func (s *Subscriber) handleMessage(msg *redis.Message) {
	var event ReportEvent
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		s.logger.Error("invalid event payload, skipping", "error", err)
		return
	}

	kind, ok := event.Action.Kind()
	if !ok {
		s.logger.Warn("unknown event action, skipping", "action", event.Action)
		return
	}

	origin := &geocell.Coordinate{Lat: event.Data.Latitude, Lng: event.Data.Longitude}
	if err := origin.Validate(); err != nil {
		// Dispatcher broadcasts on nil origin rather than dropping.
		origin = nil
	}

	s.dispatcher.NotifyNearby(realtime.Event{
		Kind:    kind,
		Payload: event.Data,
		Origin:  origin,
	})
}
