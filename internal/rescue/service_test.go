package rescue

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rescuegrid/internal/geo"
	"rescuegrid/internal/geocell"
	"rescuegrid/internal/realtime"
)

type fakeStore struct {
	reports   map[string]*Report
	responses map[string]*Response
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		reports:   make(map[string]*Report),
		responses: make(map[string]*Response),
	}
}

func (s *fakeStore) CreateReport(_ context.Context, r *Report) error {
	clone := *r
	s.reports[r.ID] = &clone
	return nil
}

func (s *fakeStore) ReportByID(_ context.Context, id string) (*Report, error) {
	r, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (s *fakeStore) ReportsWithin(_ context.Context, bounds geo.Bounds, limit int) ([]*Report, error) {
	var out []*Report
	for _, r := range s.reports {
		if r.Latitude >= bounds.MinLat && r.Latitude <= bounds.MaxLat &&
			r.Longitude >= bounds.MinLng && r.Longitude <= bounds.MaxLng {
			clone := *r
			out = append(out, &clone)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateReportStatus(_ context.Context, id string, status Status) error {
	r, ok := s.reports[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	return nil
}

func (s *fakeStore) CreateResponse(_ context.Context, r *Response) error {
	clone := *r
	s.responses[r.ID] = &clone
	return nil
}

func (s *fakeStore) ResponseByID(_ context.Context, id string) (*Response, error) {
	r, ok := s.responses[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (s *fakeStore) UpdateResponseStatus(_ context.Context, id, status string) error {
	r, ok := s.responses[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	return nil
}

type fakeNotifier struct {
	events []realtime.Event
}

func (n *fakeNotifier) NotifyNearby(event realtime.Event) {
	n.events = append(n.events, event)
}

func newTestService() (*Service, *fakeStore, *fakeNotifier) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, notifier, 72*time.Hour, logger), store, notifier
}

func createOpenReport(t *testing.T, svc *Service, reporterID string) *Report {
	t.Helper()
	report, err := svc.Create(context.Background(), reporterID, CreateReportInput{
		Title:     "injured dog",
		Latitude:  18.52,
		Longitude: 73.85,
		Severity:  SeverityHigh,
	})
	require.NoError(t, err)
	return report
}

func TestCreateYieldsOpenReportAndNotifies(t *testing.T) {
	svc, _, notifier := newTestService()

	report := createOpenReport(t, svc, "reporter")

	assert.Equal(t, StatusOpen, report.Status)
	assert.NotEmpty(t, report.ID)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, realtime.EventNewReport, notifier.events[0].Kind)
	require.NotNil(t, notifier.events[0].Origin)
	assert.Equal(t, 18.52, notifier.events[0].Origin.Lat)
}

func TestCreateRejectsInvalidCoordinate(t *testing.T) {
	svc, _, notifier := newTestService()

	_, err := svc.Create(context.Background(), "reporter", CreateReportInput{
		Latitude:  120,
		Longitude: 73.85,
	})
	assert.ErrorIs(t, err, geocell.ErrInvalidCoordinate)
	assert.Empty(t, notifier.events)
}

func TestCreateRejectsUnknownSeverity(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), "reporter", CreateReportInput{
		Latitude:  18.52,
		Longitude: 73.85,
		Severity:  "catastrophic",
	})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRespondCreatesOfferedResponse(t *testing.T) {
	svc, _, notifier := newTestService()
	report := createOpenReport(t, svc, "reporter")

	response, err := svc.Respond(context.Background(), report.ID, "volunteer", "on my way")
	require.NoError(t, err)

	assert.Equal(t, ResponseStatusOffered, response.Status)
	assert.Equal(t, report.ID, response.ReportID)
	require.Len(t, notifier.events, 2)
	assert.Equal(t, realtime.EventReportResponse, notifier.events[1].Kind)
}

func TestRespondByReporterForbidden(t *testing.T) {
	svc, _, _ := newTestService()
	report := createOpenReport(t, svc, "reporter")

	_, err := svc.Respond(context.Background(), report.ID, "reporter", "myself")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRespondToMissingReport(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Respond(context.Background(), "nope", "volunteer", "hi")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClaimHappyPath(t *testing.T) {
	svc, store, notifier := newTestService()
	report := createOpenReport(t, svc, "reporter")
	offer, err := svc.Respond(context.Background(), report.ID, "v1", "coming")
	require.NoError(t, err)

	accepted, err := svc.Claim(context.Background(), report.ID, "reporter", offer.ID)
	require.NoError(t, err)

	assert.Equal(t, ResponseStatusAccepted, accepted.Status)
	stored, err := store.ReportByID(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusClaimed, stored.Status)
	assert.Equal(t, realtime.EventReportClaimed, notifier.events[len(notifier.events)-1].Kind)
}

func TestClaimByNonReporterForbidden(t *testing.T) {
	svc, _, _ := newTestService()
	report := createOpenReport(t, svc, "reporter")
	offer, err := svc.Respond(context.Background(), report.ID, "v1", "coming")
	require.NoError(t, err)

	_, err = svc.Claim(context.Background(), report.ID, "v1", offer.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestClaimOnClaimedReportInvalidState(t *testing.T) {
	svc, _, _ := newTestService()
	report := createOpenReport(t, svc, "reporter")
	offer1, err := svc.Respond(context.Background(), report.ID, "v1", "first")
	require.NoError(t, err)
	offer2, err := svc.Respond(context.Background(), report.ID, "v2", "second")
	require.NoError(t, err)

	_, err = svc.Claim(context.Background(), report.ID, "reporter", offer1.ID)
	require.NoError(t, err)

	_, err = svc.Claim(context.Background(), report.ID, "reporter", offer2.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestClaimWithForeignResponse(t *testing.T) {
	svc, _, _ := newTestService()
	reportA := createOpenReport(t, svc, "reporter")
	reportB := createOpenReport(t, svc, "reporter")
	offerB, err := svc.Respond(context.Background(), reportB.ID, "v1", "hello")
	require.NoError(t, err)

	_, err = svc.Claim(context.Background(), reportA.ID, "reporter", offerB.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatusFollowsLifecycle(t *testing.T) {
	svc, store, _ := newTestService()
	report := createOpenReport(t, svc, "reporter")
	offer, err := svc.Respond(context.Background(), report.ID, "v1", "coming")
	require.NoError(t, err)
	_, err = svc.Claim(context.Background(), report.ID, "reporter", offer.ID)
	require.NoError(t, err)

	err = svc.UpdateStatus(context.Background(), report.ID, "v1", StatusArrived, offer.ID)
	require.NoError(t, err)
	err = svc.UpdateStatus(context.Background(), report.ID, "reporter", StatusResolved, offer.ID)
	require.NoError(t, err)

	stored, err := store.ReportByID(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, stored.Status)

	mirrored, err := store.ResponseByID(context.Background(), offer.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusResolved), mirrored.Status)
}

func TestUpdateStatusSkipsLifecycleViolations(t *testing.T) {
	svc, _, _ := newTestService()
	report := createOpenReport(t, svc, "reporter")

	// open -> arrived skips claimed.
	err := svc.UpdateStatus(context.Background(), report.ID, "reporter", StatusArrived, "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestUpdateStatusCannotClaim(t *testing.T) {
	svc, store, _ := newTestService()
	report := createOpenReport(t, svc, "reporter")
	offer, err := svc.Respond(context.Background(), report.ID, "v1", "coming")
	require.NoError(t, err)

	// A volunteer with a merely offered response must not claim the
	// report through the status route.
	err = svc.UpdateStatus(context.Background(), report.ID, "v1", StatusClaimed, offer.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	// Not even the reporter: claiming always accepts a response.
	err = svc.UpdateStatus(context.Background(), report.ID, "reporter", StatusClaimed, offer.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	stored, err := store.ReportByID(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, stored.Status)
	response, err := store.ResponseByID(context.Background(), offer.ID)
	require.NoError(t, err)
	assert.Equal(t, ResponseStatusOffered, response.Status)
}

func TestUpdateStatusByOfferedResponderForbidden(t *testing.T) {
	svc, _, _ := newTestService()
	report := createOpenReport(t, svc, "reporter")
	offer1, err := svc.Respond(context.Background(), report.ID, "v1", "first")
	require.NoError(t, err)
	offer2, err := svc.Respond(context.Background(), report.ID, "v2", "second")
	require.NoError(t, err)
	_, err = svc.Claim(context.Background(), report.ID, "reporter", offer1.ID)
	require.NoError(t, err)

	// v2's response was never accepted; owning it grants nothing.
	err = svc.UpdateStatus(context.Background(), report.ID, "v2", StatusResolved, offer2.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestNoTransitionOutOfClosed(t *testing.T) {
	svc, _, _ := newTestService()
	report := createOpenReport(t, svc, "reporter")
	offer, err := svc.Respond(context.Background(), report.ID, "v1", "coming")
	require.NoError(t, err)
	_, err = svc.Claim(context.Background(), report.ID, "reporter", offer.ID)
	require.NoError(t, err)
	require.NoError(t, svc.UpdateStatus(context.Background(), report.ID, "reporter", StatusClosed, ""))

	err = svc.UpdateStatus(context.Background(), report.ID, "reporter", StatusResolved, "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestUpdateStatusByStrangerForbidden(t *testing.T) {
	svc, _, _ := newTestService()
	report := createOpenReport(t, svc, "reporter")
	offer, err := svc.Respond(context.Background(), report.ID, "v1", "coming")
	require.NoError(t, err)
	_, err = svc.Claim(context.Background(), report.ID, "reporter", offer.ID)
	require.NoError(t, err)

	err = svc.UpdateStatus(context.Background(), report.ID, "stranger", StatusResolved, "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestNearbyFiltersByRadius(t *testing.T) {
	svc, _, _ := newTestService()
	near := createOpenReport(t, svc, "reporter")
	_, err := svc.Create(context.Background(), "reporter", CreateReportInput{
		Title:     "far away",
		Latitude:  19.5,
		Longitude: 74.5,
	})
	require.NoError(t, err)

	reports, err := svc.Nearby(context.Background(), geocell.Coordinate{Lat: 18.521, Lng: 73.851}, 5)
	require.NoError(t, err)

	require.Len(t, reports, 1)
	assert.Equal(t, near.ID, reports[0].ID)
}

func TestExpiredIsAdvisory(t *testing.T) {
	svc, store, _ := newTestService()
	report := createOpenReport(t, svc, "reporter")

	store.reports[report.ID].CreatedAt = time.Now().Add(-96 * time.Hour)

	got, err := svc.Get(context.Background(), report.ID)
	require.NoError(t, err)
	assert.True(t, got.Expired)
	assert.Equal(t, StatusOpen, got.Status, "expiry must not touch stored status")
}
