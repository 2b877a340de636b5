package models

import "encoding/json"

// PaymentConfirmation is what the checkout widget hands back after payment.
type PaymentConfirmation struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// Complete reports whether every field is present.
func (p PaymentConfirmation) Complete() bool {
	return p.OrderID != "" && p.PaymentID != "" && p.Signature != ""
}

// VerificationResult is the outcome of checking a payment signature.
type VerificationResult int

const (
	Rejected VerificationResult = iota
	Verified
)

func (r VerificationResult) String() string {
	if r == Verified {
		return "verified"
	}
	return "rejected"
}

// Order is a gateway order. Raw keeps the gateway response as received.
type Order struct {
	ID       string          `json:"id"`
	Amount   int64           `json:"amount"`
	Currency string          `json:"currency"`
	Receipt  string          `json:"receipt"`
	Status   string          `json:"status"`
	Raw      json.RawMessage `json:"-"`
}
