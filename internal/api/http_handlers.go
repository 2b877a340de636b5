package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/conversation"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/domain"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

var errNotAwaitingPayment = errors.New("conversation is not awaiting payment")

type createOrderRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Receipt  string  `json:"receipt"`
}

func (s *HTTPServer) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var body createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	order, err := s.svc.Orders.CreateOrder(r.Context(), body.Amount, body.Currency, body.Receipt)
	if err != nil {
		if errors.Is(err, domain.ErrMissingFields) {
			writeError(w, http.StatusBadRequest, "Missing required fields")
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("create order failed")
		writeError(w, http.StatusInternalServerError, "Failed to create order")
		return
	}
	writeOrder(w, order)
}

func (s *HTTPServer) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var body models.PaymentConfirmation
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !body.Complete() {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if s.svc.Verifier == nil {
		writeError(w, http.StatusInternalServerError, "Payment verification failed")
		return
	}

	if s.svc.Verifier.Verify(body) == models.Verified {
		writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
		return
	}
	writeJSON(w, http.StatusBadRequest, map[string]bool{"verified": false})
}

// writeOrder returns the gateway's order exactly as it was received.
func writeOrder(w http.ResponseWriter, order *models.Order) {
	if len(order.Raw) == 0 {
		writeJSON(w, http.StatusOK, order)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(order.Raw)
}

func (s *HTTPServer) handleListVenues(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"venues": s.svc.Venues.List()})
}

func (s *HTTPServer) handleGetVenue(w http.ResponseWriter, r *http.Request) {
	venue, err := s.svc.Venues.Get(mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, venue)
}

func (s *HTTPServer) handleVenueSlots(w http.ResponseWriter, r *http.Request) {
	venue, err := s.svc.Venues.Get(mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	date, err := models.ParseDate(dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	slots, stale, err := s.svc.Slots.SlotsWithFallback(r.Context(), date, venue)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots, "stale": stale})
}

func (s *HTTPServer) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	res, err := s.converse(r, id, true, models.Input{Kind: models.InputStart})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *HTTPServer) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	session, err := s.svc.Sessions.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *HTTPServer) handleConversationMessage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var input models.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if input.Kind == "" && input.Text != "" {
		input.Kind = models.InputText
	}
	if input.Kind == "" {
		writeError(w, http.StatusBadRequest, "kind is required")
		return
	}

	if !s.svc.Sessions.Allow(r.Context(), id) {
		writeError(w, http.StatusTooManyRequests, "Too many messages")
		return
	}

	res, err := s.converse(r, id, false, input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// converse runs one engine step under the session lock and returns the
// result with the session as stored.
func (s *HTTPServer) converse(r *http.Request, id string, create bool, input models.Input) (conversation.Result, error) {
	var res conversation.Result
	saved, err := s.svc.Sessions.Update(r.Context(), id, create, func(cur models.Session) (models.Session, error) {
		out, err := s.svc.Engine.Handle(r.Context(), cur, input)
		if err != nil {
			return cur, err
		}
		res = out
		return out.Session, nil
	})
	if err != nil {
		return conversation.Result{}, err
	}
	res.Session = *saved
	return res, nil
}

func (s *HTTPServer) handleConversationOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	currency := s.svc.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}

	var order *models.Order
	_, err := s.svc.Sessions.Update(r.Context(), id, false, func(cur models.Session) (models.Session, error) {
		if cur.Stage != models.StagePayment || cur.TotalAmount <= 0 {
			return cur, errNotAwaitingPayment
		}
		o, err := s.svc.Orders.CreateOrder(r.Context(), float64(cur.TotalAmount), currency, receiptFor(id))
		if err != nil {
			return cur, err
		}
		order = o
		cur.OrderID = o.ID
		return cur, nil
	})
	switch {
	case err == nil:
		writeOrder(w, order)
	case errors.Is(err, errNotAwaitingPayment):
		writeError(w, http.StatusConflict, "Conversation is not awaiting payment")
	case errors.Is(err, domain.ErrGateway):
		zerolog.Ctx(r.Context()).Error().Err(err).Str("session_id", id).Msg("create order failed")
		writeError(w, http.StatusInternalServerError, "Failed to create order")
	default:
		writeDomainError(w, r, err)
	}
}

// receiptFor derives a gateway receipt (at most 40 chars) from a session id.
func receiptFor(sessionID string) string {
	compact := strings.ReplaceAll(sessionID, "-", "")
	if len(compact) > 32 {
		compact = compact[:32]
	}
	return "rcpt_" + compact
}

func (s *HTTPServer) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	booking, err := s.svc.Bookings.GetByTicket(r.Context(), mux.Vars(r)["ticket"])
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}
