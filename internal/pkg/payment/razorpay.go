package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ManuelReschke/CreditFox/app/models"
	"github.com/ManuelReschke/CreditFox/internal/pkg/backend"
)

// RazorpayCheckout is the config for the Razorpay checkout widget.
type RazorpayCheckout struct {
	Attempt  *models.PaymentAttempt `json:"attempt"`
	OrderID  string                 `json:"order_id"`
	Key      string                 `json:"key"`
	Amount   float64                `json:"amount"`
	Currency string                 `json:"currency"`
	Name     string                 `json:"name"`
	Email    string                 `json:"email"`
}

// RazorpayVerifyInput is the widget's success handler payload.
type RazorpayVerifyInput struct {
	AttemptID string `json:"attempt_id"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// StartRazorpay creates a Razorpay order through the backend.
func (s *Service) StartRazorpay(ctx context.Context, user *backend.User, in CheckoutInput) (*RazorpayCheckout, error) {
	a, release, err := s.begin(ctx, models.PaymentProviderRazorpay, user, in)
	if err != nil {
		return nil, err
	}
	defer release()

	order, err := s.backend.CreateRazorpayOrder(ctx, s.paymentRequest(user, a))
	if err != nil {
		s.fail(a, models.FailureOrderCreation, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrOrderCreation, err)
	}
	if err := s.transition(a, models.AttemptStateAwaiting, map[string]interface{}{"provider_order_id": order.ID}); err != nil {
		return nil, err
	}

	currency := order.Currency
	if currency == "" {
		currency = a.Currency
	}
	return &RazorpayCheckout{
		Attempt:  a,
		OrderID:  order.ID,
		Key:      order.Key,
		Amount:   order.Amount,
		Currency: currency,
		Name:     user.Name,
		Email:    user.Email,
	}, nil
}

// VerifyRazorpay checks the widget's signature through the backend and
// credits the attempt on success.
func (s *Service) VerifyRazorpay(ctx context.Context, userID string, in RazorpayVerifyInput) (*models.PaymentAttempt, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var (
		a   *models.PaymentAttempt
		err error
	)
	if strings.TrimSpace(in.AttemptID) != "" {
		a, err = s.ownedAttempt(userID, models.PaymentProviderRazorpay, in.AttemptID)
	} else {
		a, err = s.repo.GetAttemptByProviderOrderID(models.PaymentProviderRazorpay, in.OrderID)
		if err == nil && a.UserID != userID {
			err = ErrAttemptNotFound
		}
	}
	if err != nil {
		return nil, err
	}
	if a.ProviderOrderID != in.OrderID {
		return a, fmt.Errorf("%w: order does not match attempt", ErrInvalidInput)
	}
	if a.State != models.AttemptStateAwaiting {
		return settled(a)
	}

	if err := s.verifying(a, in.PaymentID); err != nil {
		return s.reload(a, err)
	}

	if s.cfg.RazorpayKeySecret != "" && !VerifyRazorpaySignature(in.OrderID, in.PaymentID, in.Signature, s.cfg.RazorpayKeySecret) {
		s.fail(a, models.FailureVerification, "signature mismatch")
		return a, ErrVerification
	}

	resp, err := s.backend.VerifyRazorpayPayment(ctx, backend.RazorpayVerification{
		PaymentID: in.PaymentID,
		OrderID:   in.OrderID,
		Signature: in.Signature,
	})
	if err != nil {
		s.fail(a, models.FailureVerification, err.Error())
		return a, fmt.Errorf("%w: %v", ErrVerification, err)
	}
	if resp.Message != RazorpaySuccessMessage {
		s.fail(a, models.FailureVerification, resp.Message)
		return a, fmt.Errorf("%w: %s", ErrVerification, resp.Message)
	}

	if err := s.credit(ctx, a); err != nil {
		return a, err
	}
	return a, nil
}

// VerifyRazorpaySignature checks HMAC_SHA256(order_id|payment_id) against
// the hex signature returned by the checkout widget.
func VerifyRazorpaySignature(orderID, paymentID, signature, secret string) bool {
	sig, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(signature)))
	if err != nil || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hmac.Equal(mac.Sum(nil), sig)
}
