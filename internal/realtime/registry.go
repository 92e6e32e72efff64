package realtime

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"rescuegrid/internal/auth"
	"rescuegrid/internal/geocell"
)

// Registry owns every live connection and the cell -> members index the
// dispatcher reads from. State is process-local: a restart empties it
// and clients re-admit and re-report their location.
type Registry struct {
	codec  *geocell.Codec
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]*Client
	cells   map[string]map[*Client]struct{}
}

func NewRegistry(codec *geocell.Codec, logger *slog.Logger) *Registry {
	return &Registry{
		codec:   codec,
		logger:  logger,
		clients: make(map[string]*Client),
		cells:   make(map[string]map[*Client]struct{}),
	}
}

// Admit registers a connection for an already-authenticated user. The
// client has no cell membership until its first set_location message.
func (r *Registry) Admit(userID string, conn *websocket.Conn) (*Client, error) {
	if userID == "" {
		return nil, auth.ErrUnauthenticated
	}

	client := newClient(uuid.NewString(), userID, conn, r)

	r.mu.Lock()
	r.clients[client.ID] = client
	r.mu.Unlock()

	r.logger.Info("client connected", "clientID", client.ID, "userID", userID)
	return client, nil
}

// SetLocation moves the client into the cell containing coord. Moving
// leaves the previous cell and joins the new one under one lock, so a
// client is never a member of two cells. Same-cell updates are no-ops.
func (r *Registry) SetLocation(c *Client, coord geocell.Coordinate) (string, error) {
	cell, err := r.codec.Encode(coord)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[c.ID]; !ok {
		return "", auth.ErrUnauthenticated
	}
	if c.cell == cell {
		return cell, nil
	}

	if c.cell != "" {
		r.leaveCellLocked(c)
	}
	members, ok := r.cells[cell]
	if !ok {
		members = make(map[*Client]struct{})
		r.cells[cell] = members
	}
	members[c] = struct{}{}
	c.cell = cell

	r.logger.Debug("client moved cell", "clientID", c.ID, "cell", cell)
	return cell, nil
}

// Release removes the client from its cell and forgets it. Idempotent:
// releasing an already-gone client does nothing.
func (r *Registry) Release(c *Client) {
	r.mu.Lock()
	_, ok := r.clients[c.ID]
	if ok {
		delete(r.clients, c.ID)
		if c.cell != "" {
			r.leaveCellLocked(c)
		}
	}
	r.mu.Unlock()

	if ok {
		c.close()
		r.logger.Info("client disconnected", "clientID", c.ID)
	}
}

// MembersOf returns a snapshot of the clients currently in cell.
func (r *Registry) MembersOf(cell string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.cells[cell]
	snapshot := make([]*Client, 0, len(members))
	for c := range members {
		snapshot = append(snapshot, c)
	}
	return snapshot
}

// All returns a snapshot of every live client.
func (r *Registry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		snapshot = append(snapshot, c)
	}
	return snapshot
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

func (r *Registry) Shutdown() {
	for _, c := range r.All() {
		r.Release(c)
	}
}

// leaveCellLocked must be called with r.mu held.
func (r *Registry) leaveCellLocked(c *Client) {
	members, ok := r.cells[c.cell]
	if ok {
		delete(members, c)
		if len(members) == 0 {
			delete(r.cells, c.cell)
		}
	}
	c.cell = ""
}
