package backend

import "strings"

// User is the backend's view of an account. Credits is a floating point
// balance owned by the backend.
type User struct {
	ID      string  `json:"_id"`
	Email   string  `json:"email"`
	Name    string  `json:"name"`
	Credits float64 `json:"credits"`
}

// Complete reports whether the record carries an id.
func (u *User) Complete() bool {
	return u != nil && strings.TrimSpace(u.ID) != ""
}

// PaymentRequest is sent to every provider's create endpoint.
type PaymentRequest struct {
	UserID   string            `json:"userId"`
	Email    string            `json:"email"`
	Name     string            `json:"name,omitempty"`
	Amount   float64           `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type StripePayment struct {
	ClientSecret string  `json:"clientSecret"`
	Amount       float64 `json:"amount"`
}

// PaymentIntentID extracts "pi_..." from a client secret of the form
// "pi_123_secret_abc".
func (p *StripePayment) PaymentIntentID() string {
	secret := strings.TrimSpace(p.ClientSecret)
	if i := strings.Index(secret, "_secret_"); i > 0 {
		return secret[:i]
	}
	return ""
}

type RazorpayOrder struct {
	ID       string  `json:"id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Key      string  `json:"key"`
}

type RazorpayVerification struct {
	PaymentID string `json:"razorpay_payment_id"`
	OrderID   string `json:"razorpay_order_id"`
	Signature string `json:"razorpay_signature"`
}

type CreditRequest struct {
	UserID   string         `json:"userId"`
	Amount   float64        `json:"amount"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
