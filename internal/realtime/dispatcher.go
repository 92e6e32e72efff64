package realtime

import (
	"encoding/json"
	"log/slog"

	"rescuegrid/internal/geocell"
)

// Dispatcher fans events out to the connections geographically close to
// their origin: the origin's cell plus its ring of neighbors. Delivery
// is best-effort with no acknowledgement or retry.
type Dispatcher struct {
	codec    *geocell.Codec
	registry *Registry
	logger   *slog.Logger
}

func NewDispatcher(codec *geocell.Codec, registry *Registry, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		codec:    codec,
		registry: registry,
		logger:   logger,
	}
}

// NotifyNearby delivers event to every connection in the origin cell
// and its neighbors. An event without a resolvable origin degrades to a
// broadcast: over-delivery is preferred to silently dropping it.
func (d *Dispatcher) NotifyNearby(event Event) {
	data, err := json.Marshal(event.Payload)
	if err != nil {
		d.logger.Error("failed to marshal event payload", "kind", event.Kind, "error", err)
		return
	}
	msg := Message{Type: string(event.Kind), Data: data}

	if event.Origin == nil {
		d.broadcast(msg)
		return
	}

	cell, err := d.codec.Encode(*event.Origin)
	if err != nil {
		d.logger.Warn("unresolvable event origin, falling back to broadcast",
			"kind", event.Kind, "error", err)
		d.broadcast(msg)
		return
	}

	rooms := append([]string{cell}, d.codec.Neighbors(cell)...)

	delivered := make(map[*Client]struct{})
	for _, room := range rooms {
		for _, client := range d.registry.MembersOf(room) {
			if _, ok := delivered[client]; ok {
				continue
			}
			delivered[client] = struct{}{}
			client.Send(msg)
		}
	}

	d.logger.Debug("event dispatched", "kind", event.Kind, "cell", cell, "recipients", len(delivered))
}

func (d *Dispatcher) broadcast(msg Message) {
	clients := d.registry.All()
	for _, client := range clients {
		client.Send(msg)
	}
	d.logger.Debug("event broadcast", "type", msg.Type, "recipients", len(clients))
}
