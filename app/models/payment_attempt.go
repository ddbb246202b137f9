package models

import "time"

// Payment providers supported by the checkout flow.
const (
	PaymentProviderStripe   = "stripe"
	PaymentProviderRazorpay = "razorpay"
	PaymentProviderPayPal   = "paypal"
)

// Attempt states. Every attempt moves forward through
// idle -> creating_order -> awaiting_provider_interaction -> verifying
// and ends in credited or failed. A failed attempt is reopened for
// verification when the provider later confirms the payment.
const (
	AttemptStateIdle          = "idle"
	AttemptStateCreatingOrder = "creating_order"
	AttemptStateAwaiting      = "awaiting_provider_interaction"
	AttemptStateVerifying     = "verifying"
	AttemptStateCredited      = "credited"
	AttemptStateFailed        = "failed"
)

// Failure categories recorded on failed attempts.
const (
	FailureIdentity            = "identity"
	FailureOrderCreation       = "order_creation"
	FailureProviderInteraction = "provider_interaction"
	FailureVerification        = "verification"
	FailureCreditMutation      = "credit_mutation"
)

// PaymentAttempt is one checkout run for one provider. The authoritative
// balance stays in the backend; this row is the local audit trail.
type PaymentAttempt struct {
	ID                uint       `gorm:"primaryKey" json:"-"`
	UUID              string     `gorm:"type:varchar(36);uniqueIndex;not null" json:"id"`
	UserID            string     `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Email             string     `gorm:"type:varchar(200);default:''" json:"email"`
	Provider          string     `gorm:"type:varchar(20);not null;index:idx_payment_attempts_provider_order,priority:1;index:idx_payment_attempts_provider_state,priority:1" json:"provider"`
	State             string     `gorm:"type:varchar(40);not null;default:'idle';index:idx_payment_attempts_provider_state,priority:2" json:"state"`
	Amount            float64    `gorm:"not null" json:"amount"`
	Currency          string     `gorm:"type:varchar(3);not null" json:"currency"`
	USDAmount         float64    `gorm:"not null" json:"usd_amount"`
	BonusPercent      int        `gorm:"not null;default:0" json:"bonus_percent"`
	Credits           float64    `gorm:"not null" json:"credits"`
	ProviderOrderID   string     `gorm:"type:varchar(191);default:'';index:idx_payment_attempts_provider_order,priority:2" json:"provider_order_id,omitempty"`
	ProviderPaymentID string     `gorm:"type:varchar(191);default:''" json:"provider_payment_id,omitempty"`
	FailureCategory   string     `gorm:"type:varchar(32);default:''" json:"failure_category,omitempty"`
	FailureReason     string     `gorm:"type:text" json:"failure_reason,omitempty"`
	CreditedAt        *time.Time `gorm:"type:timestamp;default:null" json:"credited_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	appliedCredit bool
}

// IsTerminal reports whether the attempt reached credited or failed.
func (a *PaymentAttempt) IsTerminal() bool {
	return a.State == AttemptStateCredited || a.State == AttemptStateFailed
}

// MarkCreditApplied records that the credit mutation ran on this copy of
// the attempt. It is not persisted.
func (a *PaymentAttempt) MarkCreditApplied() {
	a.appliedCredit = true
}

// CreditApplied reports whether this copy of the attempt was credited by
// the call that returned it, as opposed to loaded as already credited.
func (a *PaymentAttempt) CreditApplied() bool {
	return a.appliedCredit
}
