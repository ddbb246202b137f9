package payment

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid payment input")
	ErrAttemptNotFound   = errors.New("payment attempt not found")
	ErrAttemptInProgress = errors.New("a payment is already in progress")
	ErrInvalidTransition = errors.New("invalid payment state transition")
	ErrProviderMismatch  = errors.New("payment attempt belongs to another provider")
	ErrPaymentPending    = errors.New("payment is still processing")
	ErrWebhookDisabled   = errors.New("webhook secret not configured")
	ErrInvalidSignature  = errors.New("invalid webhook signature")

	// One sentinel per failure category.
	ErrOrderCreation       = errors.New("could not create payment order")
	ErrProviderInteraction = errors.New("payment was not completed")
	ErrVerification        = errors.New("payment verification failed")
	ErrCreditMutation      = errors.New("failed to add credits")
)

// CreditFailureReason is stored on attempts that were paid but not credited.
const CreditFailureReason = "Payment successful, but failed to add credits. Please contact support."

// RazorpaySuccessMessage is the only backend reply treated as a verified payment.
const RazorpaySuccessMessage = "Payment verified successfully"
