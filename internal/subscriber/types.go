package subscriber

import (
	"encoding/json"

	"rescuegrid/internal/realtime"
)

// ReportEvent is the message shape on the report events channel.
type ReportEvent struct {
	Data   ReportPayload `json:"data"`
	Action Action        `json:"action"`
}

// ReportPayload carries the report fields a notification needs; the
// rest of the publisher's payload is passed through untouched.
type ReportPayload struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	Raw json.RawMessage `json:"-"`
}

func (p *ReportPayload) UnmarshalJSON(data []byte) error {
	type alias ReportPayload
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*p = ReportPayload(a)
	p.Raw = append(json.RawMessage(nil), data...)
	return nil
}

func (p ReportPayload) MarshalJSON() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	type alias ReportPayload
	return json.Marshal(alias(p))
}

type Action string

const (
	ActionCreate  Action = "create"
	ActionClaimed Action = "claimed"
	ActionStatus  Action = "status"
)

// Kind maps a publisher action onto the websocket event it produces.
func (a Action) Kind() (realtime.EventKind, bool) {
	switch a {
	case ActionCreate:
		return realtime.EventNewReport, true
	case ActionClaimed:
		return realtime.EventReportClaimed, true
	case ActionStatus:
		return realtime.EventReportStatus, true
	}
	return "", false
}
