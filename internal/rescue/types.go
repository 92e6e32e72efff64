// Package rescue holds the report lifecycle: reports move
// open -> claimed -> arrived/resolved -> closed, volunteers attach
// responses, and every successful transition is pushed to nearby
// connections.
package rescue

import (
	"context"
	"errors"
	"time"

	"rescuegrid/internal/geo"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
)

type Status string

const (
	StatusOpen     Status = "open"
	StatusClaimed  Status = "claimed"
	StatusArrived  Status = "arrived"
	StatusResolved Status = "resolved"
	StatusClosed   Status = "closed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusClaimed, StatusArrived, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// transitions is the lifecycle graph. Closed is terminal; nothing
// re-opens a resolved or closed report.
var transitions = map[Status][]Status{
	StatusOpen:     {StatusClaimed},
	StatusClaimed:  {StatusArrived, StatusResolved, StatusClosed},
	StatusArrived:  {StatusResolved, StatusClosed},
	StatusResolved: {StatusClosed},
	StatusClosed:   {},
}

func canTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

const ResponseStatusOffered = "offered"
const ResponseStatusAccepted = "accepted"

type Report struct {
	ID           string    `json:"id"`
	ReporterID   string    `json:"reporter_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Severity     Severity  `json:"severity,omitempty"`
	Category     string    `json:"category,omitempty"`
	PhotoURL     string    `json:"photo_url,omitempty"`
	Photos       []string  `json:"photos"`
	LocationText string    `json:"location_text,omitempty"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`

	// Expired is advisory: open and older than the expiry window.
	// Nothing flips the stored status.
	Expired bool `json:"expired"`
}

type Response struct {
	ID          string    `json:"id"`
	ReportID    string    `json:"report_id"`
	VolunteerID string    `json:"volunteer_id"`
	Message     string    `json:"message,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type Store interface {
	CreateReport(ctx context.Context, r *Report) error
	ReportByID(ctx context.Context, id string) (*Report, error)
	ReportsWithin(ctx context.Context, bounds geo.Bounds, limit int) ([]*Report, error)
	UpdateReportStatus(ctx context.Context, id string, status Status) error

	CreateResponse(ctx context.Context, r *Response) error
	ResponseByID(ctx context.Context, id string) (*Response, error)
	UpdateResponseStatus(ctx context.Context, id, status string) error
}
