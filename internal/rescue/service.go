package rescue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rescuegrid/internal/geo"
	"rescuegrid/internal/geocell"
	"rescuegrid/internal/realtime"
)

// Notifier pushes an event towards connections near its origin. The
// websocket dispatcher is the production implementation; lifecycle
// logic never talks to a transport directly.
type Notifier interface {
	NotifyNearby(event realtime.Event)
}

type Service struct {
	store        Store
	notifier     Notifier
	expiryWindow time.Duration
	logger       *slog.Logger
}

func NewService(store Store, notifier Notifier, expiryWindow time.Duration, logger *slog.Logger) *Service {
	return &Service{
		store:        store,
		notifier:     notifier,
		expiryWindow: expiryWindow,
		logger:       logger,
	}
}

type CreateReportInput struct {
	Title        string
	Description  string
	Latitude     float64
	Longitude    float64
	Severity     Severity
	Category     string
	LocationText string
	Photos       []string
}

// Create persists a new open report and notifies connections near it.
// Notification runs strictly after the write succeeds; a fan-out
// problem never rolls the report back.
func (s *Service) Create(ctx context.Context, reporterID string, in CreateReportInput) (*Report, error) {
	coord := geocell.Coordinate{Lat: in.Latitude, Lng: in.Longitude}
	if err := coord.Validate(); err != nil {
		return nil, err
	}
	if in.Severity != "" && !in.Severity.IsValid() {
		return nil, fmt.Errorf("%w: severity %q", ErrInvalidState, in.Severity)
	}

	report := &Report{
		ID:           uuid.NewString(),
		ReporterID:   reporterID,
		Title:        in.Title,
		Description:  in.Description,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		Severity:     in.Severity,
		Category:     in.Category,
		LocationText: in.LocationText,
		Photos:       in.Photos,
		Status:       StatusOpen,
		CreatedAt:    time.Now().UTC(),
	}
	if len(in.Photos) > 0 {
		report.PhotoURL = in.Photos[0]
	}

	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("creating report: %w", err)
	}

	s.notifier.NotifyNearby(realtime.Event{
		Kind:    realtime.EventNewReport,
		Payload: report,
		Origin:  &coord,
	})
	return report, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Report, error) {
	report, err := s.store.ReportByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.markExpired(report)
	return report, nil
}

// Nearby lists reports within radiusKm of coord, newest first. The
// store query over-covers with a bounding box; the exact radius is
// enforced here with haversine.
func (s *Service) Nearby(ctx context.Context, coord geocell.Coordinate, radiusKm float64) ([]*Report, error) {
	if err := coord.Validate(); err != nil {
		return nil, err
	}

	candidates, err := s.store.ReportsWithin(ctx, geo.BoundingBox(coord, radiusKm), 200)
	if err != nil {
		return nil, fmt.Errorf("querying nearby reports: %w", err)
	}

	reports := make([]*Report, 0, len(candidates))
	for _, r := range candidates {
		at := geocell.Coordinate{Lat: r.Latitude, Lng: r.Longitude}
		if geo.Haversine(coord, at) <= radiusKm*1000 {
			s.markExpired(r)
			reports = append(reports, r)
		}
	}
	return reports, nil
}

// Respond records a volunteer's offer on an open report. The reporter
// cannot respond to their own report.
func (s *Service) Respond(ctx context.Context, reportID, volunteerID, message string) (*Response, error) {
	report, err := s.store.ReportByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.ReporterID == volunteerID {
		return nil, fmt.Errorf("%w: reporter cannot respond to own report", ErrForbidden)
	}

	response := &Response{
		ID:          uuid.NewString(),
		ReportID:    report.ID,
		VolunteerID: volunteerID,
		Message:     message,
		Status:      ResponseStatusOffered,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateResponse(ctx, response); err != nil {
		return nil, fmt.Errorf("creating response: %w", err)
	}

	s.notifier.NotifyNearby(realtime.Event{
		Kind:    realtime.EventReportResponse,
		Payload: responseEnvelope{ReportID: report.ID, Response: response},
		Origin:  &geocell.Coordinate{Lat: report.Latitude, Lng: report.Longitude},
	})
	return response, nil
}

// Claim accepts a volunteer's offer. Only the reporter may claim, only
// while the report is open, and only against a response still in the
// offered state. The response flips to accepted with the report.
func (s *Service) Claim(ctx context.Context, reportID, actorID, responseID string) (*Response, error) {
	report, err := s.store.ReportByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.ReporterID != actorID {
		return nil, fmt.Errorf("%w: only reporter may claim", ErrForbidden)
	}
	if report.Status != StatusOpen {
		return nil, fmt.Errorf("%w: report is %s", ErrInvalidState, report.Status)
	}

	response, err := s.store.ResponseByID(ctx, responseID)
	if err != nil {
		return nil, err
	}
	if response.ReportID != report.ID {
		return nil, fmt.Errorf("%w: response %s does not belong to report %s", ErrNotFound, responseID, reportID)
	}
	if response.Status != ResponseStatusOffered {
		return nil, fmt.Errorf("%w: response is %s", ErrInvalidState, response.Status)
	}

	if err := s.store.UpdateResponseStatus(ctx, response.ID, ResponseStatusAccepted); err != nil {
		return nil, fmt.Errorf("accepting response: %w", err)
	}
	if err := s.store.UpdateReportStatus(ctx, report.ID, StatusClaimed); err != nil {
		return nil, fmt.Errorf("claiming report: %w", err)
	}
	response.Status = ResponseStatusAccepted

	s.notifier.NotifyNearby(realtime.Event{
		Kind:    realtime.EventReportClaimed,
		Payload: responseEnvelope{ReportID: report.ID, Response: response},
		Origin:  &geocell.Coordinate{Lat: report.Latitude, Lng: report.Longitude},
	})
	return response, nil
}

// UpdateStatus advances a report along the lifecycle graph, optionally
// mirroring the status onto a named response. Allowed for the reporter
// or the volunteer behind the accepted response. Claiming is not a
// plain status update: it flips the report and a response together and
// only Claim does it.
func (s *Service) UpdateStatus(ctx context.Context, reportID, actorID string, status Status, responseID string) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidState, status)
	}
	if status == StatusClaimed {
		return fmt.Errorf("%w: claiming goes through the claim flow", ErrInvalidState)
	}

	report, err := s.store.ReportByID(ctx, reportID)
	if err != nil {
		return err
	}

	var response *Response
	if responseID != "" {
		response, err = s.store.ResponseByID(ctx, responseID)
		if err != nil {
			return err
		}
		if response.ReportID != report.ID {
			return fmt.Errorf("%w: response %s does not belong to report %s", ErrNotFound, responseID, reportID)
		}
	}

	authorized := report.ReporterID == actorID ||
		(response != nil && response.VolunteerID == actorID &&
			response.Status != ResponseStatusOffered)
	if !authorized {
		return fmt.Errorf("%w: not a participant of this report", ErrForbidden)
	}

	if !canTransition(report.Status, status) {
		return fmt.Errorf("%w: cannot go from %s to %s", ErrInvalidState, report.Status, status)
	}

	if err := s.store.UpdateReportStatus(ctx, report.ID, status); err != nil {
		return fmt.Errorf("updating report status: %w", err)
	}
	if response != nil {
		if err := s.store.UpdateResponseStatus(ctx, response.ID, string(status)); err != nil {
			return fmt.Errorf("updating response status: %w", err)
		}
	}

	s.notifier.NotifyNearby(realtime.Event{
		Kind:    realtime.EventReportStatus,
		Payload: statusEnvelope{ReportID: report.ID, Status: status, ResponseID: responseID},
		Origin:  &geocell.Coordinate{Lat: report.Latitude, Lng: report.Longitude},
	})
	return nil
}

func (s *Service) markExpired(r *Report) {
	r.Expired = r.Status == StatusOpen && time.Since(r.CreatedAt) >= s.expiryWindow
}

type responseEnvelope struct {
	ReportID string    `json:"reportId"`
	Response *Response `json:"response"`
}

type statusEnvelope struct {
	ReportID   string `json:"reportId"`
	Status     Status `json:"status"`
	ResponseID string `json:"responseId,omitempty"`
}
