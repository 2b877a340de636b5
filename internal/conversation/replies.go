package conversation

import (
	"fmt"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"
)

// Reply codes. Clients translate by code; Text is the English default.
const (
	CodeGreeting        = "Greeting"
	CodeNameAsk         = "NameAsk"
	CodeNameConfirm     = "NameConfirm"
	CodeInvalidName     = "InvalidName"
	CodeEmailAsk        = "EmailAsk"
	CodeEmailConfirm    = "EmailConfirm"
	CodeInvalidEmail    = "InvalidEmail"
	CodePhoneAsk        = "PhoneAsk"
	CodePhoneConfirm    = "PhoneConfirm"
	CodeInvalidPhone    = "InvalidPhone"
	CodeMuseumSelect    = "MuseumSelect"
	CodeMuseumRequired  = "MuseumRequired"
	CodeDateAsk         = "DateAsk"
	CodeInvalidDate     = "InvalidDate"
	CodeNoTimeSlots     = "NoTimeSlots"
	CodeTimeSlotsFetch  = "TimeSlotsFetch"
	CodeTimeSelect      = "TimeSelect"
	CodeSlotUnavailable = "SlotUnavailable"
	CodeVisitorAsk      = "VisitorAsk"
	CodeInvalidVisitors = "InvalidVisitors"
	CodeConfirmBooking  = "ConfirmBooking"
	CodePaymentRejected = "PaymentRejected"
	CodeSlotFull        = "SlotFull"
	CodeBookingFailed   = "BookingFailed"
	CodeBookingSuccess  = "BookingSuccess"
	CodePendingSync     = "PendingSync"
	CodeUnhandled       = "Unhandled"
)

// UI component hints attached to replies.
const (
	ComponentInitial   = "initial"
	ComponentEmail     = "emailInput"
	ComponentPhone     = "phoneInput"
	ComponentMuseum    = "museumSelection"
	ComponentDate      = "dateSelection"
	ComponentTime      = "timeSelection"
	ComponentVisitors  = "visitorSelection"
	ComponentPayment   = "payment"
	ComponentConfirmed = "bookingConfirmation"
)

type template struct {
	text      string
	component string
}

var templates = map[string]template{
	CodeGreeting:        {"Hello! I'm your museum booking assistant. I can help you book tickets, check museum timings, or answer any questions you have.", ComponentInitial},
	CodeNameAsk:         {"To get started, may I know your name?", ""},
	CodeNameConfirm:     {"Nice to meet you, %s!", ""},
	CodeInvalidName:     {"I didn't quite catch that. Could you please provide your full name?", ""},
	CodeEmailAsk:        {"Could you please share your email address for the booking confirmation?", ComponentEmail},
	CodeEmailConfirm:    {"Thank you! I'll send the booking confirmation to %s.", ""},
	CodeInvalidEmail:    {"That email address doesn't look quite right. Could you please check and try again?", ComponentEmail},
	CodePhoneAsk:        {"Could I have your phone number for important updates about your visit?", ComponentPhone},
	CodePhoneConfirm:    {"Perfect! I'll send any important updates to %s.", ""},
	CodeInvalidPhone:    {"I need a valid phone number to proceed. Please provide a number with country code.", ComponentPhone},
	CodeMuseumSelect:    {"Which museum would you like to visit?", ComponentMuseum},
	CodeMuseumRequired:  {"Please choose one of the listed museums first.", ComponentMuseum},
	CodeDateAsk:         {"When would you like to visit %s?", ComponentDate},
	CodeInvalidDate:     {"Please pick a date between today and %s.", ComponentDate},
	CodeNoTimeSlots:     {"Sorry, there are no time slots left on %s. Please choose another date.", ComponentDate},
	CodeTimeSlotsFetch:  {"I couldn't load the time slots right now. Please try again in a moment.", ComponentDate},
	CodeTimeSelect:      {"Please choose a time slot.", ComponentTime},
	CodeSlotUnavailable: {"That time slot is no longer available. Please choose another one.", ComponentTime},
	CodeVisitorAsk:      {"How many visitors will be joining? We have special rates for children and seniors.", ComponentVisitors},
	CodeInvalidVisitors: {"Please select at least one visitor.", ComponentVisitors},
	CodeConfirmBooking:  {"Great! I've got all the details. Total amount: ₹%d. Would you like to proceed with the payment?", ComponentPayment},
	CodePaymentRejected: {"We couldn't verify your payment. Please try again.", ComponentPayment},
	CodeSlotFull:        {"Sorry, that slot filled up while you were paying. Your payment will be refunded; please choose another time slot.", ComponentTime},
	CodeBookingFailed:   {"I apologize, but I couldn't complete the booking. Shall we try again?", ComponentPayment},
	CodeBookingSuccess:  {"Wonderful! Your booking is confirmed. Your ticket number is %s.", ComponentConfirmed},
	CodePendingSync:     {"Your ticket is valid. Our records will finish updating shortly.", ""},
	CodeUnhandled:       {"I'm not sure how to help with that. Would you like to start booking tickets?", ""},
}

func reply(code string, args ...interface{}) models.Reply {
	tpl, ok := templates[code]
	if !ok {
		return models.Reply{Code: code, Text: code}
	}
	text := tpl.text
	if len(args) > 0 {
		text = fmt.Sprintf(text, args...)
	}
	return models.Reply{Code: code, Text: text, Component: tpl.component}
}
