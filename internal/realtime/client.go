package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"rescuegrid/internal/geocell"
)

const (
	// sendChannelSize controls the max number
	// of messages that can be queued for a client.
	sendChannelSize = 16
	pingPeriod      = (60 * 9 * time.Second) / 10
)

// Client is one live websocket session tied to one authenticated user.
// Its cell membership lives in the Registry and changes as the client
// reports new locations.
type Client struct {
	ID       string
	UserID   string
	Conn     *websocket.Conn
	Registry *Registry
	send     chan Message
	ctx      context.Context
	cancel   context.CancelFunc

	// cell is guarded by the registry mutex.
	cell string
}

func newClient(id, userID string, conn *websocket.Conn, registry *Registry) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ID:       id,
		UserID:   userID,
		Conn:     conn,
		Registry: registry,
		send:     make(chan Message, sendChannelSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (c *Client) Start() {
	go c.readPump()
	go c.writePump()
}

func (c *Client) close() {
	if c.Conn != nil {
		if err := c.Conn.Close(websocket.StatusNormalClosure, "bye"); err != nil {
			c.Registry.logger.Debug("failed to close connection", "clientID", c.ID, "error", err)
		}
	}
	c.cancel()
}

// Send queues msg for delivery. A client that cannot keep up is force
// disconnected rather than blocking the caller; sending to a released
// client is a no-op.
func (c *Client) Send(msg Message) {
	select {
	case <-c.ctx.Done():
	case c.send <- msg:
	default:
		c.Registry.logger.Warn("client send buffer full, disconnecting", "clientID", c.ID)
		c.Registry.Release(c)
	}
}

func (c *Client) readPump() {
	defer c.Registry.Release(c)

	for {
		var msg Message
		if err := wsjson.Read(c.ctx, c.Conn, &msg); err != nil {
			c.Registry.logger.Debug("read loop ended", "clientID", c.ID, "error", err)
			return
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Registry.Release(c)
	}()
	for {
		select {
		case msg := <-c.send:
			if err := wsjson.Write(c.ctx, c.Conn, msg); err != nil {
				c.Registry.logger.Warn("failed to write message", "clientID", c.ID, "error", err)
				return
			}
			c.Registry.logger.Debug("message sent", "clientID", c.ID, "type", msg.Type)
		case <-ticker.C:
			if err := c.Conn.Ping(c.ctx); err != nil {
				c.Registry.logger.Debug("failed to ping client", "clientID", c.ID, "error", err)
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case "set_location":
		var coord geocell.Coordinate
		if err := json.Unmarshal(msg.Data, &coord); err != nil {
			c.sendError("invalid {lat,lng}")
			return
		}

		cell, err := c.Registry.SetLocation(c, coord)
		if err != nil {
			c.sendError("invalid {lat,lng}")
			return
		}

		data, _ := json.Marshal(map[string]string{"geohash": cell})
		c.Send(Message{Type: "location_updated", Data: data})
	default:
		c.Registry.logger.Debug("received unknown type message", "clientID", c.ID, "type", msg.Type)
		c.sendError("unknown message type")
	}
}

func (c *Client) sendError(reason string) {
	data, _ := json.Marshal(map[string]string{"message": reason})
	c.Send(Message{Type: "error", Data: data})
}
