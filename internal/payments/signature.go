package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"
)

// Sign returns the hex HMAC-SHA256 of "orderID|paymentID" keyed by secret,
// the signature the gateway attaches to a successful payment.
func Sign(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a gateway signature in constant time. Any missing input is
// rejected.
func Verify(orderID, paymentID, signature, secret string) models.VerificationResult {
	if orderID == "" || paymentID == "" || signature == "" || secret == "" {
		return models.Rejected
	}
	expected := Sign(orderID, paymentID, secret)
	if hmac.Equal([]byte(expected), []byte(signature)) {
		return models.Verified
	}
	return models.Rejected
}

// Verifier binds the gateway secret. It only runs server-side.
type Verifier struct {
	secret string
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

func (v *Verifier) Verify(c models.PaymentConfirmation) models.VerificationResult {
	return Verify(c.OrderID, c.PaymentID, c.Signature, v.secret)
}
