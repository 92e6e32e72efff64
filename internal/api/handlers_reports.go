package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/matheodrd/httphelper/handler"

	"rescuegrid/internal/geocell"
	"rescuegrid/internal/rescue"
)

func (s *Server) createReport() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		in, err := s.decodeCreateReport(r)
		if err != nil {
			return writeError(w, http.StatusBadRequest, err.Error())
		}
		if in.Latitude == nil || in.Longitude == nil {
			return writeError(w, http.StatusBadRequest, "latitude and longitude are required")
		}

		user := userFrom(r)
		report, err := s.reports.Create(r.Context(), user.ID, rescue.CreateReportInput{
			Title:        in.Title,
			Description:  in.Description,
			Latitude:     *in.Latitude,
			Longitude:    *in.Longitude,
			Severity:     rescue.Severity(in.Severity),
			Category:     in.Category,
			LocationText: in.LocationText,
			Photos:       in.Photos,
		})
		if err != nil {
			s.logger.Error("create report failed", "error", err, "userID", user.ID)
			return writeDomainError(w, err)
		}

		return writeJSON(w, http.StatusCreated, map[string]any{"report": report})
	})
}

type createReportInput struct {
	Title        string
	Description  string
	Latitude     *float64
	Longitude    *float64
	Severity     string
	Category     string
	LocationText string
	Photos       []string
}

// decodeCreateReport accepts either a JSON body or a multipart form
// with attached photos, the way the mobile client submits.
func (s *Server) decodeCreateReport(r *http.Request) (*createReportInput, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			Title        string   `json:"title"`
			Description  string   `json:"description"`
			Latitude     *float64 `json:"latitude"`
			Longitude    *float64 `json:"longitude"`
			Severity     string   `json:"severity"`
			Category     string   `json:"category"`
			LocationText string   `json:"location_text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, errInvalidBody
		}
		return &createReportInput{
			Title:        req.Title,
			Description:  req.Description,
			Latitude:     req.Latitude,
			Longitude:    req.Longitude,
			Severity:     req.Severity,
			Category:     req.Category,
			LocationText: req.LocationText,
		}, nil
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return nil, errInvalidBody
	}

	in := &createReportInput{
		Title:        r.FormValue("title"),
		Description:  r.FormValue("description"),
		Severity:     r.FormValue("severity"),
		Category:     r.FormValue("category"),
		LocationText: r.FormValue("location_text"),
	}
	if v := r.FormValue("latitude"); v != "" {
		lat, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, errInvalidBody
		}
		in.Latitude = &lat
	}
	if v := r.FormValue("longitude"); v != "" {
		lng, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, errInvalidBody
		}
		in.Longitude = &lng
	}

	saved, err := s.saveUploads(r)
	if err != nil {
		return nil, err
	}
	for _, paths := range saved {
		in.Photos = append(in.Photos, paths...)
	}
	return in, nil
}

func (s *Server) nearbyReports() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		lat, errLat := strconv.ParseFloat(queryValue(r, "lat", "latitude"), 64)
		lng, errLng := strconv.ParseFloat(queryValue(r, "lng", "longitude"), 64)
		if errLat != nil || errLng != nil {
			return writeError(w, http.StatusBadRequest, "lat and lng required")
		}

		radiusKm := 5.0
		if v := r.URL.Query().Get("radiusKm"); v != "" {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil || parsed <= 0 {
				return writeError(w, http.StatusBadRequest, "invalid radiusKm")
			}
			radiusKm = parsed
		}

		reports, err := s.reports.Nearby(r.Context(), geocell.Coordinate{Lat: lat, Lng: lng}, radiusKm)
		if err != nil {
			s.logger.Error("nearby query failed", "error", err)
			return writeDomainError(w, err)
		}

		if reports == nil {
			reports = []*rescue.Report{}
		}
		return writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
	})
}

func (s *Server) getReport() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		report, err := s.reports.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			return writeDomainError(w, err)
		}
		return writeJSON(w, http.StatusOK, map[string]any{"report": report})
	})
}

func (s *Server) respondToReport() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		var req struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return writeError(w, http.StatusBadRequest, "invalid request body")
		}

		user := userFrom(r)
		response, err := s.reports.Respond(r.Context(), chi.URLParam(r, "id"), user.ID, req.Message)
		if err != nil {
			return writeDomainError(w, err)
		}

		return writeJSON(w, http.StatusCreated, map[string]any{"response": response})
	})
}

func (s *Server) claimReport() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		var req struct {
			ResponseID string `json:"responseId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return writeError(w, http.StatusBadRequest, "invalid request body")
		}
		if req.ResponseID == "" {
			return writeError(w, http.StatusBadRequest, "responseId required")
		}

		user := userFrom(r)
		response, err := s.reports.Claim(r.Context(), chi.URLParam(r, "id"), user.ID, req.ResponseID)
		if err != nil {
			return writeDomainError(w, err)
		}

		return writeJSON(w, http.StatusOK, map[string]any{"ok": true, "response": response})
	})
}

func (s *Server) updateReportStatus() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		var req struct {
			Status     string `json:"status"`
			ResponseID string `json:"responseId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return writeError(w, http.StatusBadRequest, "invalid request body")
		}
		if req.Status == "" {
			return writeError(w, http.StatusBadRequest, "status required")
		}

		user := userFrom(r)
		err := s.reports.UpdateStatus(r.Context(), chi.URLParam(r, "id"), user.ID,
			rescue.Status(req.Status), req.ResponseID)
		if err != nil {
			return writeDomainError(w, err)
		}

		return writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
}

func queryValue(r *http.Request, keys ...string) string {
	for _, key := range keys {
		if v := r.URL.Query().Get(key); v != "" {
			return v
		}
	}
	return ""
}
