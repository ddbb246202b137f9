package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ManuelReschke/CreditFox/app/models"
	"github.com/ManuelReschke/CreditFox/internal/pkg/backend"
	"github.com/ManuelReschke/CreditFox/internal/pkg/bonus"
	"github.com/ManuelReschke/CreditFox/internal/pkg/ledger"
	"github.com/ManuelReschke/CreditFox/internal/pkg/metrics"
)

// Backend is the order side of the external backend.
type Backend interface {
	CreateStripePayment(ctx context.Context, in backend.PaymentRequest) (*backend.StripePayment, error)
	CreateRazorpayOrder(ctx context.Context, in backend.PaymentRequest) (*backend.RazorpayOrder, error)
	VerifyRazorpayPayment(ctx context.Context, in backend.RazorpayVerification) (*backend.MessageResponse, error)
	PayPalCheckoutURL(in backend.PaymentRequest) (string, error)
}

// Creditor adds purchased credits to the backend ledger.
type Creditor interface {
	AddCredits(ctx context.Context, userID string, amount float64, reference string, metadata map[string]any) (*ledger.Result, error)
}

// Config holds provider secrets. Empty values switch the matching
// server-side check off.
type Config struct {
	StripePublishableKey string
	StripeWebhookSecret  string
	RazorpayKeySecret    string
}

// Service runs the checkout state machine for all providers.
type Service struct {
	repo     Repository
	backend  Backend
	credits  Creditor
	quotes   *bonus.Calculator
	locker   Locker
	intents  IntentFetcher
	cfg      Config
	validate *validator.Validate
	now      func() time.Time
}

// NewService wires a payment service. intents may be nil, in which case the
// Stripe status reported by the browser is trusted.
func NewService(repo Repository, b Backend, c Creditor, quotes *bonus.Calculator, locker Locker, intents IntentFetcher, cfg Config) *Service {
	if quotes == nil {
		quotes = bonus.NewCalculator(nil)
	}
	return &Service{
		repo:     repo,
		backend:  b,
		credits:  c,
		quotes:   quotes,
		locker:   locker,
		intents:  intents,
		cfg:      cfg,
		validate: validator.New(),
		now:      time.Now,
	}
}

// CheckoutInput is what the browser submits to start any checkout.
type CheckoutInput struct {
	Amount   float64 `json:"amount" validate:"gt=0"`
	Currency string  `json:"currency" validate:"required,len=3,uppercase"`
}

// Get returns an attempt owned by userID.
func (s *Service) Get(ctx context.Context, userID, attemptID string) (*models.PaymentAttempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a, err := s.repo.GetAttemptByUUID(strings.TrimSpace(attemptID))
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, ErrAttemptNotFound
	}
	return a, nil
}

// IdentityFailed records a checkout that could not start because the
// paying user was not resolved.
func (s *Service) IdentityFailed(provider string, err error) {
	metrics.PaymentFailuresTotal.WithLabelValues(provider, models.FailureIdentity).Inc()
	log.Warnf("[Payment] %s checkout without resolved user: %v", provider, err)
}

// begin validates the input, takes the per-user lock and persists a new
// attempt in creating_order.
func (s *Service) begin(ctx context.Context, provider string, user *backend.User, in CheckoutInput) (*models.PaymentAttempt, func(), error) {
	if user == nil || !user.Complete() {
		return nil, nil, fmt.Errorf("%w: user required", ErrInvalidInput)
	}
	in.Currency = bonus.NormalizeCurrency(in.Currency)
	if err := s.validate.Struct(in); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	q, err := s.quotes.Quote(in.Amount, in.Currency)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	release := func() {}
	if s.locker != nil {
		release, err = s.locker.Acquire(ctx, user.ID, provider)
		if err != nil {
			return nil, nil, err
		}
	}

	a := &models.PaymentAttempt{
		UUID:         uuid.NewString(),
		UserID:       user.ID,
		Email:        user.Email,
		Provider:     provider,
		State:        models.AttemptStateIdle,
		Amount:       q.Amount,
		Currency:     q.Currency,
		USDAmount:    q.USDAmount,
		BonusPercent: q.BonusPercent,
		Credits:      q.Credits,
	}
	if err := s.repo.CreateAttempt(a); err != nil {
		release()
		return nil, nil, fmt.Errorf("create attempt: %w", err)
	}
	if err := s.transition(a, models.AttemptStateCreatingOrder, nil); err != nil {
		release()
		return nil, nil, err
	}
	metrics.PaymentAttemptsTotal.WithLabelValues(provider, "started").Inc()
	return a, release, nil
}

func (s *Service) paymentRequest(user *backend.User, a *models.PaymentAttempt) backend.PaymentRequest {
	return backend.PaymentRequest{
		UserID:   user.ID,
		Email:    user.Email,
		Name:     user.Name,
		Amount:   a.Amount,
		Currency: a.Currency,
		Metadata: map[string]string{
			"attempt_id":    a.UUID,
			"credits":       strconv.FormatFloat(a.Credits, 'f', 2, 64),
			"bonus_percent": strconv.Itoa(a.BonusPercent),
		},
	}
}

// transition moves a to state to, guarded on its current state.
func (s *Service) transition(a *models.PaymentAttempt, to string, updates map[string]interface{}) error {
	if !CanTransition(a.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.State, to)
	}
	ok, err := s.repo.TransitionAttempt(a.UUID, a.State, to, updates)
	if err != nil {
		return fmt.Errorf("transition attempt %s: %w", a.UUID, err)
	}
	if !ok {
		return fmt.Errorf("%w: attempt %s is no longer %s", ErrAttemptInProgress, a.UUID, a.State)
	}
	a.State = to
	applyUpdates(a, updates)
	return nil
}

// fail moves a to failed with the given category. Errors are logged only,
// the caller reports the original failure.
func (s *Service) fail(a *models.PaymentAttempt, category, reason string) {
	err := s.transition(a, models.AttemptStateFailed, map[string]interface{}{
		"failure_category": category,
		"failure_reason":   reason,
	})
	if err != nil {
		log.Errorf("[Payment] could not fail attempt %s (%s): %v", a.UUID, category, err)
		return
	}
	metrics.PaymentAttemptsTotal.WithLabelValues(a.Provider, "failed").Inc()
	metrics.PaymentFailuresTotal.WithLabelValues(a.Provider, category).Inc()
	log.Warnf("[Payment] attempt %s (%s) failed [%s]: %s", a.UUID, a.Provider, category, reason)
}

// verifying claims an awaiting attempt for verification. Only one caller
// wins; a loser sees the attempt as already handled.
func (s *Service) verifying(a *models.PaymentAttempt, paymentID string) error {
	updates := map[string]interface{}{}
	if paymentID != "" {
		updates["provider_payment_id"] = paymentID
	}
	return s.transition(a, models.AttemptStateVerifying, updates)
}

// reopen moves a recoverable failed attempt back to verifying after the
// provider confirmed the payment. The earlier failure is kept in the log
// only.
func (s *Service) reopen(a *models.PaymentAttempt, paymentID string) error {
	category, reason := a.FailureCategory, a.FailureReason
	updates := map[string]interface{}{
		"failure_category": "",
		"failure_reason":   "",
	}
	if paymentID != "" {
		updates["provider_payment_id"] = paymentID
	}
	if err := s.transition(a, models.AttemptStateVerifying, updates); err != nil {
		return err
	}
	metrics.PaymentAttemptsTotal.WithLabelValues(a.Provider, "reopened").Inc()
	log.Warnf("[Payment] attempt %s (%s) reopened after provider success, was failed [%s]: %s", a.UUID, a.Provider, category, reason)
	return nil
}

// credit adds the purchased credits for a verified attempt.
func (s *Service) credit(ctx context.Context, a *models.PaymentAttempt) error {
	_, err := s.credits.AddCredits(ctx, a.UserID, a.Credits, a.UUID, map[string]any{
		"provider":      a.Provider,
		"attempt_id":    a.UUID,
		"amount":        a.Amount,
		"currency":      a.Currency,
		"bonus_percent": a.BonusPercent,
		"payment_id":    a.ProviderPaymentID,
	})
	if err != nil {
		s.fail(a, models.FailureCreditMutation, CreditFailureReason)
		return fmt.Errorf("%w: %v", ErrCreditMutation, err)
	}
	a.MarkCreditApplied()

	now := s.now()
	if err := s.transition(a, models.AttemptStateCredited, map[string]interface{}{"credited_at": &now}); err != nil {
		// credits were added; the row is only out of date
		log.Errorf("[Payment] attempt %s credited but not marked: %v", a.UUID, err)
		return nil
	}
	metrics.PaymentAttemptsTotal.WithLabelValues(a.Provider, "credited").Inc()
	log.Infof("[Payment] attempt %s (%s) credited %.2f credits to user %s", a.UUID, a.Provider, a.Credits, a.UserID)
	return nil
}

// ownedAttempt loads an attempt and checks owner and provider.
func (s *Service) ownedAttempt(userID, provider, attemptID string) (*models.PaymentAttempt, error) {
	a, err := s.repo.GetAttemptByUUID(strings.TrimSpace(attemptID))
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, ErrAttemptNotFound
	}
	if a.Provider != provider {
		return nil, ErrProviderMismatch
	}
	return a, nil
}

// settled handles confirms for attempts that already left awaiting.
func settled(a *models.PaymentAttempt) (*models.PaymentAttempt, error) {
	switch a.State {
	case models.AttemptStateCredited:
		return a, nil
	case models.AttemptStateFailed:
		return a, fmt.Errorf("%w: attempt already failed", ErrInvalidTransition)
	default:
		return a, fmt.Errorf("%w: attempt is %s", ErrAttemptInProgress, a.State)
	}
}

func isLost(err error) bool {
	return errors.Is(err, ErrAttemptInProgress)
}

func applyUpdates(a *models.PaymentAttempt, updates map[string]interface{}) {
	for k, v := range updates {
		switch k {
		case "provider_order_id":
			a.ProviderOrderID, _ = v.(string)
		case "provider_payment_id":
			a.ProviderPaymentID, _ = v.(string)
		case "failure_category":
			a.FailureCategory, _ = v.(string)
		case "failure_reason":
			a.FailureReason, _ = v.(string)
		case "credited_at":
			a.CreditedAt, _ = v.(*time.Time)
		}
	}
}
