package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/report"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const (
	defaultAdminListLimit = 100
	maxAdminListLimit     = 1000
	maxExportDays         = 366
	xlsxContentType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// Below the request timeout so the handler answers before it fires.
	maxWatchWait = 10 * time.Second
	watchBuffer  = 32
)

func (s *HTTPServer) registerAdminRoutes(r *mux.Router) {
	r.Use(s.svc.Admin.Middleware)

	r.HandleFunc("/login", s.handleAdminLogin).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleAdminLogout).Methods(http.MethodPost)
	r.HandleFunc("/session", s.handleAdminSession).Methods(http.MethodGet)

	protected := r.NewRoute().Subrouter()
	protected.Use(RequireAdmin)
	protected.HandleFunc("/bookings", s.handleAdminBookings).Methods(http.MethodGet)
	protected.HandleFunc("/bookings/watch", s.handleAdminWatch).Methods(http.MethodGet)
	protected.HandleFunc("/bookings/{id:[0-9]+}", s.handleAdminDeleteBooking).Methods(http.MethodDelete)
	protected.HandleFunc("/stats", s.handleAdminStats).Methods(http.MethodGet)
	protected.HandleFunc("/export.xlsx", s.handleAdminExport).Methods(http.MethodGet)
	protected.HandleFunc("/sync/failed", s.handleAdminFailedSync).Methods(http.MethodGet)
}

type sessionResponse struct {
	Authenticated bool       `json:"authenticated"`
	Subject       string     `json:"subject,omitempty"`
	IssuedAt      *time.Time `json:"issuedAt,omitempty"`
}

func toSessionResponse(session AdminSession) sessionResponse {
	if a, ok := session.(Authenticated); ok {
		issued := a.IssuedAt
		return sessionResponse{Authenticated: true, Subject: a.Subject, IssuedAt: &issued}
	}
	return sessionResponse{}
}

func (s *HTTPServer) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Username == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	session, err := s.svc.Admin.Login(w, body.Username, body.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			zerolog.Ctx(r.Context()).Warn().Str("username", body.Username).Msg("admin login rejected")
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		writeDomainError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Str("subject", session.Subject).Msg("admin logged in")
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func (s *HTTPServer) handleAdminLogout(w http.ResponseWriter, _ *http.Request) {
	s.svc.Admin.Logout(w)
	writeJSON(w, http.StatusOK, sessionResponse{})
}

func (s *HTTPServer) handleAdminSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSessionResponse(SessionFromContext(r.Context())))
}

// bookingFilter reads the venue and date query parameters.
func bookingFilter(r *http.Request) (models.BookingFilter, error) {
	q := r.URL.Query()
	filter := models.BookingFilter{VenueID: strings.TrimSpace(q.Get("venue"))}
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		date, err := models.ParseDate(raw)
		if err != nil {
			return filter, errors.New("invalid date format; expected YYYY-MM-DD")
		}
		filter.Date = date
	}
	return filter, nil
}

func (s *HTTPServer) handleAdminBookings(w http.ResponseWriter, r *http.Request) {
	filter, err := bookingFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter.Limit = defaultAdminListLimit

	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if limit > maxAdminListLimit {
			limit = maxAdminListLimit
		}
		filter.Limit = limit
	}

	bookings, err := s.svc.Bookings.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

// handleAdminWatch long-polls for bookings created after the request
// arrives. It answers with the first matching bookings or an empty list
// once wait seconds pass; clients re-issue the request to keep watching.
func (s *HTTPServer) handleAdminWatch(w http.ResponseWriter, r *http.Request) {
	if s.svc.Events == nil {
		writeError(w, http.StatusNotImplemented, "Change notifications are not available")
		return
	}

	filter, err := bookingFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	wait := maxWatchWait
	if raw := strings.TrimSpace(r.URL.Query().Get("wait")); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			writeError(w, http.StatusBadRequest, "wait must be a positive number of seconds")
			return
		}
		if d := time.Duration(secs) * time.Second; d < wait {
			wait = d
		}
	}

	ch, stop := s.svc.Events.Watch(filter, watchBuffer)
	defer stop()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	bookings := []*models.Booking{}
	select {
	case b, ok := <-ch:
		if ok {
			bookings = append(bookings, b)
		}
	drain:
		for {
			select {
			case b, ok := <-ch:
				if !ok {
					break drain
				}
				bookings = append(bookings, b)
			default:
				break drain
			}
		}
	case <-timer.C:
	case <-r.Context().Done():
	}

	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleAdminDeleteBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	if err := s.svc.Bookings.Delete(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	subject := ""
	if a, ok := SessionFromContext(r.Context()).(Authenticated); ok {
		subject = a.Subject
	}
	zerolog.Ctx(r.Context()).Info().Int64("booking_id", id).Str("subject", subject).Msg("booking deleted by admin")
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *HTTPServer) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Bookings.Stats(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *HTTPServer) handleAdminExport(w http.ResponseWriter, r *http.Request) {
	if s.svc.Exporter == nil {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	from, to, err := parseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := s.svc.Exporter.Write(r.Context(), &buf, from, to); err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName(from, to)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *HTTPServer) handleAdminFailedSync(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.svc.Bookings.FailedSyncTasks(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []models.SyncTask{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// parseRange reads an inclusive YYYY-MM-DD range.
func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	fromStr, toStr = strings.TrimSpace(fromStr), strings.TrimSpace(toStr)
	if fromStr == "" || toStr == "" {
		return time.Time{}, time.Time{}, errors.New("from and to are required")
	}
	from, err := models.ParseDate(fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid from date; expected YYYY-MM-DD")
	}
	to, err := models.ParseDate(toStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid to date; expected YYYY-MM-DD")
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("to must not be before from")
	}
	if to.Sub(from) > maxExportDays*24*time.Hour {
		return time.Time{}, time.Time{}, fmt.Errorf("range must not exceed %d days", maxExportDays)
	}
	return from, to, nil
}
