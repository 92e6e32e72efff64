package realtime

import (
	"encoding/json"

	"rescuegrid/internal/geocell"
)

// Message is the JSON envelope exchanged with connected clients.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type EventKind string

const (
	EventNewReport      EventKind = "new_report"
	EventReportResponse EventKind = "report_response"
	EventReportClaimed  EventKind = "report_claimed"
	EventReportStatus   EventKind = "report_status"
	EventNewBlog        EventKind = "new_blog"
)

// Event is a single fan-out request. Origin nil means the event has no
// geographic anchor and goes to every live connection.
type Event struct {
	Kind    EventKind
	Payload any
	Origin  *geocell.Coordinate
}
