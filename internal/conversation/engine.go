package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/domain"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"

	"github.com/rs/zerolog"
)

// NavigateHome asks the client to leave the booking view.
const NavigateHome = "home"

// Result is what one input produced. Session is the state to store.
type Result struct {
	Session  models.Session            `json:"session"`
	Replies  []models.Reply            `json:"replies"`
	Slots    []models.SlotAvailability `json:"slots,omitempty"`
	Booking  *models.Booking           `json:"booking,omitempty"`
	Navigate string                    `json:"navigate,omitempty"`
}

func (r *Result) say(code string, args ...interface{}) {
	r.Replies = append(r.Replies, reply(code, args...))
}

// Engine drives a booking conversation one input at a time. It keeps no
// per-session state; callers load and store the session around Handle.
type Engine struct {
	catalog        domain.Catalog
	availability   domain.AvailabilityCalculator
	verifier       domain.PaymentVerifier
	finalizer      domain.BookingFinalizer
	now            func() time.Time
	maxBookingDays int
	logger         *zerolog.Logger
}

type Options struct {
	Now            func() time.Time
	MaxBookingDays int
	Logger         *zerolog.Logger
}

func NewEngine(
	catalog domain.Catalog,
	availability domain.AvailabilityCalculator,
	verifier domain.PaymentVerifier,
	finalizer domain.BookingFinalizer,
	opts Options,
) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxBookingDays <= 0 {
		opts.MaxBookingDays = models.DefaultMaxBookingDays
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	return &Engine{
		catalog:        catalog,
		availability:   availability,
		verifier:       verifier,
		finalizer:      finalizer,
		now:            opts.Now,
		maxBookingDays: opts.MaxBookingDays,
		logger:         opts.Logger,
	}
}

// Handle applies input to session. Domain failures become replies and keep
// the session usable; the returned error is reserved for broken invariants.
func (e *Engine) Handle(ctx context.Context, session models.Session, input models.Input) (Result, error) {
	res := Result{Session: session}
	s := &res.Session
	now := e.now()

	switch input.Kind {
	case models.InputBookAgain, models.InputStart:
		s.Reset(now)
		return res, e.greet(&res)
	case models.InputReturnHome:
		s.Reset(now)
		res.Navigate = NavigateHome
		return res, nil
	}

	if input.Text != "" {
		s.LastInput = input.Text
	}
	if !accepted(s.Stage, input.Kind) {
		res.say(CodeUnhandled)
		return res, nil
	}

	var err error
	switch s.Stage {
	case models.StageInitial:
		err = e.greet(&res)
	case models.StageName:
		err = e.onName(&res, input)
	case models.StageEmail:
		err = e.onEmail(&res, input)
	case models.StagePhone:
		err = e.onPhone(&res, input)
	case models.StageMuseum:
		err = e.onMuseum(&res, input)
	case models.StageDate:
		err = e.onDate(ctx, &res, input)
	case models.StageTime:
		err = e.onTime(ctx, &res, input)
	case models.StageVisitors:
		err = e.onVisitors(&res, input)
	case models.StagePayment:
		err = e.onPayment(ctx, &res, input)
	default:
		res.say(CodeUnhandled)
	}
	if err != nil {
		return Result{Session: session}, err
	}
	return res, nil
}

func (e *Engine) greet(res *Result) error {
	res.say(CodeGreeting)
	res.say(CodeNameAsk)
	return advance(&res.Session, models.StageName)
}

func (e *Engine) onName(res *Result, input models.Input) error {
	name, err := ValidateName(input.Text)
	if err != nil {
		res.say(CodeInvalidName)
		return nil
	}
	res.Session.Name = name
	res.say(CodeNameConfirm, name)
	res.say(CodeEmailAsk)
	return advance(&res.Session, models.StageEmail)
}

func (e *Engine) onEmail(res *Result, input models.Input) error {
	email, err := ValidateEmail(input.Text)
	if err != nil {
		res.say(CodeInvalidEmail)
		return nil
	}
	res.Session.Email = email
	res.say(CodeEmailConfirm, email)
	res.say(CodePhoneAsk)
	return advance(&res.Session, models.StagePhone)
}

func (e *Engine) onPhone(res *Result, input models.Input) error {
	phone, err := ValidatePhone(input.Text)
	if err != nil {
		res.say(CodeInvalidPhone)
		return nil
	}
	res.Session.Phone = phone
	res.say(CodePhoneConfirm, phone)
	res.say(CodeMuseumSelect)
	return advance(&res.Session, models.StageMuseum)
}

func (e *Engine) onMuseum(res *Result, input models.Input) error {
	id := input.VenueID
	if id == "" {
		id = strings.TrimSpace(input.Text)
	}
	venue, err := e.catalog.Get(id)
	if err != nil {
		res.say(CodeMuseumRequired)
		return nil
	}
	res.Session.VenueID = venue.ID
	res.say(CodeDateAsk, venue.Name)
	return advance(&res.Session, models.StageDate)
}

func (e *Engine) onDate(ctx context.Context, res *Result, input models.Input) error {
	venue, ok := e.sessionVenue(res)
	if !ok {
		return nil
	}

	raw := input.Date
	if raw == "" {
		raw = input.Text
	}
	today := models.NormalizeDate(e.now())
	last := today.AddDate(0, 0, e.maxBookingDays)
	date, err := models.ParseDate(raw)
	if err != nil || date.Before(today) || date.After(last) {
		res.say(CodeInvalidDate, last.Format(models.DateLayout))
		return nil
	}

	slots, err := e.availability.ComputeSlots(ctx, date, venue)
	if err != nil {
		e.logger.Warn().Err(err).Str("session_id", res.Session.ID).Str("venue_id", venue.ID).Msg("time slots unavailable")
		res.say(CodeTimeSlotsFetch)
		return nil
	}
	res.Slots = slots
	if !models.AnyAvailable(slots) {
		res.say(CodeNoTimeSlots, date.Format(models.DateLayout))
		return nil
	}

	res.Session.Date = date
	res.say(CodeTimeSelect)
	return advance(&res.Session, models.StageTime)
}

func (e *Engine) onTime(ctx context.Context, res *Result, input models.Input) error {
	venue, ok := e.sessionVenue(res)
	if !ok {
		return nil
	}

	label := input.Slot
	if label == "" {
		label = strings.TrimSpace(input.Text)
	}

	slots, err := e.availability.ComputeSlots(ctx, res.Session.Date, venue)
	if err != nil {
		e.logger.Warn().Err(err).Str("session_id", res.Session.ID).Msg("slot re-check failed")
		res.say(CodeTimeSlotsFetch)
		return nil
	}
	res.Slots = slots

	slot, found := models.FindSlot(slots, label)
	if !found || !slot.IsAvailable {
		res.say(CodeSlotUnavailable)
		return nil
	}

	res.Session.TimeSlot = slot.Time
	res.say(CodeVisitorAsk)
	return advance(&res.Session, models.StageVisitors)
}

func (e *Engine) onVisitors(res *Result, input models.Input) error {
	venue, ok := e.sessionVenue(res)
	if !ok {
		return nil
	}
	if input.Visitors == nil || input.Visitors.Validate() != nil || input.Visitors.Total() == 0 {
		res.say(CodeInvalidVisitors)
		return nil
	}

	res.Session.Visitors = *input.Visitors
	res.Session.TotalAmount = venue.Pricing.Total(res.Session.Visitors)
	res.Session.OrderID = ""
	res.say(CodeConfirmBooking, res.Session.TotalAmount)
	return advance(&res.Session, models.StagePayment)
}

func (e *Engine) onPayment(ctx context.Context, res *Result, input models.Input) error {
	s := &res.Session
	confirmation := input.Payment
	if confirmation == nil || !confirmation.Complete() {
		res.say(CodePaymentRejected)
		return nil
	}

	log := e.logger.With().Str("session_id", s.ID).Str("order_id", confirmation.OrderID).Logger()

	// only the order minted for this session's amount can pay for it
	verified := e.verifier.Verify(*confirmation) == models.Verified
	if verified && confirmation.OrderID != s.OrderID {
		log.Warn().Str("expected_order_id", s.OrderID).Msg("payment for a different order")
		verified = false
	}
	if !verified {
		e.recordFailed(ctx, draftFrom(s, confirmation), domain.ErrVerificationRejected.Error())
		res.say(CodePaymentRejected)
		return nil
	}

	booking := draftFrom(s, confirmation)
	err := e.finalizer.Finalize(ctx, booking)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrPaymentReused):
		log.Warn().Str("payment_id", confirmation.PaymentID).Msg("payment already used by another booking")
		e.recordFailed(ctx, draftFrom(s, confirmation), domain.ErrPaymentReused.Error())
		res.say(CodePaymentRejected)
		return nil
	case errors.Is(err, domain.ErrCapacity):
		log.Warn().Str("slot", s.TimeSlot).Msg("slot filled during payment")
		e.recordFailed(ctx, draftFrom(s, confirmation), "slot capacity exceeded")
		if venue, verr := e.catalog.Get(s.VenueID); verr == nil {
			if slots, serr := e.availability.ComputeSlots(ctx, s.Date, venue); serr == nil {
				res.Slots = slots
			}
		}
		s.TimeSlot = ""
		res.say(CodeSlotFull)
		return advance(s, models.StageTime)
	default:
		log.Error().Err(err).Msg("booking finalization failed")
		res.say(CodeBookingFailed)
		return nil
	}

	s.BookingID = booking.ID
	s.TicketID = booking.TicketID
	res.Booking = booking
	res.say(CodeBookingSuccess, booking.TicketID)
	if booking.SyncStatus == models.SyncUnsynced {
		res.say(CodePendingSync)
	}
	return advance(s, models.StageComplete)
}

func (e *Engine) recordFailed(ctx context.Context, booking *models.Booking, reason string) {
	if err := e.finalizer.RecordFailed(ctx, booking, reason); err != nil {
		e.logger.Error().Err(err).Str("payment_id", booking.PaymentID).Msg("failed to record failed booking")
	}
}

// sessionVenue resolves the venue chosen earlier in the conversation.
func (e *Engine) sessionVenue(res *Result) (models.Venue, bool) {
	venue, err := e.catalog.Get(res.Session.VenueID)
	if err != nil {
		res.say(CodeMuseumRequired)
		return models.Venue{}, false
	}
	return venue, true
}

func draftFrom(s *models.Session, confirmation *models.PaymentConfirmation) *models.Booking {
	return &models.Booking{
		Name:      s.Name,
		Email:     s.Email,
		Phone:     s.Phone,
		VenueID:   s.VenueID,
		Date:      s.Date,
		TimeSlot:  s.TimeSlot,
		Visitors:  s.Visitors,
		OrderID:   confirmation.OrderID,
		PaymentID: confirmation.PaymentID,
		SessionID: s.ID,
	}
}
