package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spotbook/internal/domain"
	"spotbook/internal/interval"
	"spotbook/internal/models"
)

type createBookingRequest struct {
	ResourceID int64  `json:"resource_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

type modifyBookingRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type bookingResponse struct {
	ID          int64  `json:"id"`
	ResourceID  int64  `json:"resource_id"`
	RequesterID int64  `json:"requester_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Status      string `json:"status"`
	Version     int64  `json:"version"`
}

func toBookingResponse(b *models.Booking) bookingResponse {
	return bookingResponse{
		ID:          b.ID,
		ResourceID:  b.ResourceID,
		RequesterID: b.RequesterID,
		StartDate:   b.StartDate.Format(models.DateLayout),
		EndDate:     b.EndDate.Format(models.DateLayout),
		Status:      b.Status,
		Version:     b.Version,
	}
}

func toBookingResponses(bookings []*models.Booking) []bookingResponse {
	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	return out
}

// actorID reads the trusted identity header. The transport layer does not
// authenticate actors, it only relays who the caller claims to act as.
func (s *HTTPServer) actorID(r *http.Request) (int64, error) {
	header := strings.TrimSpace(strings.ToLower(s.cfg.Auth.HeaderActor))
	if header == "" {
		header = "x-actor-id"
	}

	raw := strings.TrimSpace(r.Header.Get(header))
	if raw == "" {
		return 0, errors.New("missing actor header")
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid actor header")
	}
	return id, nil
}

// writeDomainError maps the service's sentinel errors to HTTP statuses.
// ImmutableState shares Forbidden's status but keeps its own message so
// clients can tell a permissions problem from a closed lifecycle window.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "booking or resource not found")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "actor is not allowed to perform this operation")
	case errors.Is(err, domain.ErrImmutableState):
		writeError(w, http.StatusForbidden, "booking can no longer be changed")
	case errors.Is(err, domain.ErrInvalidInterval):
		writeError(w, http.StatusBadRequest, "invalid booking interval")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "interval conflicts with an existing booking")
	case errors.Is(err, domain.ErrVersionConflict):
		writeError(w, http.StatusConflict, "booking was changed concurrently, retry")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createBooking(w, r)
	case http.MethodGet:
		s.listBookings(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) createBooking(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body createBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.ResourceID <= 0 {
		writeError(w, http.StatusBadRequest, "resource_id is required")
		return
	}

	iv, err := interval.Parse(body.StartDate, body.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	booking, err := s.service.CreateBooking(r.Context(), actor, body.ResourceID, iv)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toBookingResponse(booking))
}

func (s *HTTPServer) listBookings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if raw := strings.TrimSpace(query.Get("resource_id")); raw != "" {
		resourceID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || resourceID <= 0 {
			writeError(w, http.StatusBadRequest, "invalid resource_id")
			return
		}
		bookings, err := s.service.ListBookingsByResource(r.Context(), resourceID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bookings": toBookingResponses(bookings)})
		return
	}

	if raw := strings.TrimSpace(query.Get("requester_id")); raw != "" {
		requesterID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || requesterID <= 0 {
			writeError(w, http.StatusBadRequest, "invalid requester_id")
			return
		}
		bookings, err := s.service.ListBookingsByRequester(r.Context(), requesterID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bookings": toBookingResponses(bookings)})
		return
	}

	writeError(w, http.StatusBadRequest, "resource_id or requester_id is required")
}

func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/v1/bookings/"
	raw := strings.TrimPrefix(r.URL.Path, prefix)
	if raw == "" || strings.Contains(raw, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	bookingID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || bookingID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getBooking(w, r, bookingID)
	case http.MethodPatch:
		s.modifyBooking(w, r, bookingID)
	case http.MethodDelete:
		s.cancelBooking(w, r, bookingID)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) getBooking(w http.ResponseWriter, r *http.Request, bookingID int64) {
	booking, err := s.service.GetBooking(r.Context(), bookingID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

func (s *HTTPServer) modifyBooking(w http.ResponseWriter, r *http.Request, bookingID int64) {
	actor, err := s.actorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body modifyBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	iv, err := interval.Parse(body.StartDate, body.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	booking, err := s.service.ModifyBooking(r.Context(), actor, bookingID, iv)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

func (s *HTTPServer) cancelBooking(w http.ResponseWriter, r *http.Request, bookingID int64) {
	actor, err := s.actorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.service.CancelBooking(r.Context(), actor, bookingID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *HTTPServer) handleResources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resources, err := s.catalog.ListResources(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resources": resources})
}

func (s *HTTPServer) handleResourceByID(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/v1/resources/"
	raw := strings.TrimPrefix(r.URL.Path, prefix)
	if raw == "" || strings.Contains(raw, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	resourceID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || resourceID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid resource id")
		return
	}

	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := s.catalog.DeleteResource(r.Context(), resourceID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusNotImplemented, "export is not configured")
		return
	}

	query := r.URL.Query()
	startStr := strings.TrimSpace(query.Get("start_date"))
	endStr := strings.TrimSpace(query.Get("end_date"))
	if startStr == "" || endStr == "" {
		writeError(w, http.StatusBadRequest, "start_date and end_date are required")
		return
	}

	start, err := time.Parse(models.DateLayout, startStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}
	end, err := time.Parse(models.DateLayout, endStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}
	if !start.Before(end) {
		writeError(w, http.StatusBadRequest, "start_date must be before end_date")
		return
	}

	path, err := s.exporter.ExportSchedule(r.Context(), start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote("bookings.xlsx"))
	http.ServeFile(w, r, path)
}
