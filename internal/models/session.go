package models

import (
	"fmt"
	"time"
)

// Stage is the position of a conversation in the booking flow.
type Stage int

const (
	StageInitial Stage = iota
	StageName
	StageEmail
	StagePhone
	StageMuseum
	StageDate
	StageTime
	StageVisitors
	StagePayment
	StageComplete
)

var stageNames = [...]string{
	StageInitial:  "initial",
	StageName:     "name",
	StageEmail:    "email",
	StagePhone:    "phone",
	StageMuseum:   "museum",
	StageDate:     "date",
	StageTime:     "time",
	StageVisitors: "visitors",
	StagePayment:  "payment",
	StageComplete: "complete",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

func (s Stage) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(stageNames) {
		return nil, fmt.Errorf("unknown stage %d", int(s))
	}
	return []byte(stageNames[s]), nil
}

func (s *Stage) UnmarshalText(text []byte) error {
	st, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ParseStage maps a stage name back to its value.
func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return StageInitial, fmt.Errorf("unknown stage %q", name)
}

// Session is the transient state of one booking conversation.
type Session struct {
	ID          string        `json:"id"`
	Stage       Stage         `json:"stage"`
	Name        string        `json:"name,omitempty"`
	Email       string        `json:"email,omitempty"`
	Phone       string        `json:"phone,omitempty"`
	VenueID     string        `json:"venue_id,omitempty"`
	Date        time.Time     `json:"date,omitempty"`
	TimeSlot    string        `json:"time_slot,omitempty"`
	Visitors    VisitorCounts `json:"visitors"`
	TotalAmount int64         `json:"total_amount"`
	OrderID     string        `json:"order_id,omitempty"`
	LastInput   string        `json:"last_input,omitempty"`
	BookingID   int64         `json:"booking_id,omitempty"`
	TicketID    string        `json:"ticket_id,omitempty"`
	ChatID      int64         `json:"chat_id,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// NewSession returns an empty conversation in the initial stage.
func NewSession(id string, now time.Time) *Session {
	return &Session{ID: id, Stage: StageInitial, CreatedAt: now, UpdatedAt: now}
}

// Reset clears collected data and returns to the initial stage, keeping
// identity and transport fields.
func (s *Session) Reset(now time.Time) {
	*s = Session{ID: s.ID, ChatID: s.ChatID, Stage: StageInitial, CreatedAt: s.CreatedAt, UpdatedAt: now}
}

// InputKind identifies what the user did.
type InputKind string

const (
	InputStart       InputKind = "start"
	InputText        InputKind = "text"
	InputEdit        InputKind = "edit"
	InputSelectVenue InputKind = "select_venue"
	InputSelectDate  InputKind = "select_date"
	InputSelectSlot  InputKind = "select_slot"
	InputVisitors    InputKind = "set_visitors"
	InputPayment     InputKind = "payment"
	InputBookAgain   InputKind = "book_again"
	InputReturnHome  InputKind = "return_home"
)

// Input is one user event delivered to the conversation engine.
type Input struct {
	Kind     InputKind            `json:"kind"`
	Text     string               `json:"text,omitempty"`
	VenueID  string               `json:"venue_id,omitempty"`
	Date     string               `json:"date,omitempty"`
	Slot     string               `json:"slot,omitempty"`
	Visitors *VisitorCounts       `json:"visitors,omitempty"`
	Payment  *PaymentConfirmation `json:"payment,omitempty"`
}

// Reply is a message produced by the engine. Code is stable; Text is the
// default English rendering.
type Reply struct {
	Code      string `json:"code"`
	Text      string `json:"text"`
	Component string `json:"component,omitempty"`
}
