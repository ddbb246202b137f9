package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/ManuelReschke/CreditFox/app/models"
	"github.com/ManuelReschke/CreditFox/internal/pkg/backend"
	"github.com/ManuelReschke/CreditFox/internal/pkg/metrics"
)

const (
	stripeStatusSucceeded      = string(stripe.PaymentIntentStatusSucceeded)
	stripeStatusProcessing     = string(stripe.PaymentIntentStatusProcessing)
	stripeStatusRequiresAction = string(stripe.PaymentIntentStatusRequiresAction)
)

// IntentFetcher reads the current status of a PaymentIntent from Stripe.
type IntentFetcher interface {
	PaymentIntentStatus(ctx context.Context, id string) (string, error)
}

type stripeIntents struct {
	sc *stripe.Client
}

// NewStripeIntentFetcher returns nil when no secret key is configured.
func NewStripeIntentFetcher(secretKey string) IntentFetcher {
	if strings.TrimSpace(secretKey) == "" {
		return nil
	}
	return &stripeIntents{sc: stripe.NewClient(secretKey)}
}

func (f *stripeIntents) PaymentIntentStatus(ctx context.Context, id string) (string, error) {
	pi, err := f.sc.V1PaymentIntents.Retrieve(ctx, id, nil)
	if err != nil {
		return "", err
	}
	return string(pi.Status), nil
}

// StripeCheckout is what the browser needs to mount the PaymentElement.
type StripeCheckout struct {
	Attempt         *models.PaymentAttempt `json:"attempt"`
	ClientSecret    string                 `json:"client_secret"`
	PaymentIntentID string                 `json:"payment_intent_id"`
	PublishableKey  string                 `json:"publishable_key"`
}

// StripeConfirmInput is posted after stripe.confirmPayment resolves.
type StripeConfirmInput struct {
	AttemptID       string `json:"attempt_id" validate:"required"`
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
	Status          string `json:"status"`
	Error           string `json:"error"`
}

// StartStripe creates a PaymentIntent through the backend.
func (s *Service) StartStripe(ctx context.Context, user *backend.User, in CheckoutInput) (*StripeCheckout, error) {
	a, release, err := s.begin(ctx, models.PaymentProviderStripe, user, in)
	if err != nil {
		return nil, err
	}
	defer release()

	sp, err := s.backend.CreateStripePayment(ctx, s.paymentRequest(user, a))
	if err != nil {
		s.fail(a, models.FailureOrderCreation, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrOrderCreation, err)
	}

	intentID := sp.PaymentIntentID()
	if err := s.transition(a, models.AttemptStateAwaiting, map[string]interface{}{"provider_order_id": intentID}); err != nil {
		return nil, err
	}
	return &StripeCheckout{
		Attempt:         a,
		ClientSecret:    sp.ClientSecret,
		PaymentIntentID: intentID,
		PublishableKey:  s.cfg.StripePublishableKey,
	}, nil
}

// ConfirmStripe credits an attempt once its PaymentIntent succeeded.
func (s *Service) ConfirmStripe(ctx context.Context, userID string, in StripeConfirmInput) (*models.PaymentAttempt, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	a, err := s.ownedAttempt(userID, models.PaymentProviderStripe, in.AttemptID)
	if err != nil {
		return nil, err
	}
	if a.ProviderOrderID != "" && a.ProviderOrderID != in.PaymentIntentID {
		return a, fmt.Errorf("%w: payment intent does not match attempt", ErrInvalidInput)
	}
	if Recoverable(a) && s.intents != nil {
		return s.recoverStripe(ctx, a, in.PaymentIntentID)
	}
	if a.State != models.AttemptStateAwaiting {
		return settled(a)
	}

	status := strings.TrimSpace(in.Status)
	if s.intents != nil {
		remote, err := s.intents.PaymentIntentStatus(ctx, in.PaymentIntentID)
		if err != nil {
			return a, fmt.Errorf("%w: %v", ErrVerification, err)
		}
		if status == stripeStatusSucceeded && remote != stripeStatusSucceeded && !stripePending(remote) {
			log.Warnf("[Payment] attempt %s: browser reported succeeded, stripe says %s", a.UUID, remote)
			s.fail(a, models.FailureVerification, "payment intent status "+remote)
			return a, ErrVerification
		}
		status = remote
	}

	switch {
	case status == stripeStatusSucceeded:
	case stripePending(status):
		metrics.PaymentAttemptsTotal.WithLabelValues(a.Provider, "pending").Inc()
		return a, ErrPaymentPending
	default:
		reason := strings.TrimSpace(in.Error)
		if reason == "" {
			reason = "payment intent status " + status
		}
		s.fail(a, models.FailureProviderInteraction, reason)
		return a, ErrProviderInteraction
	}

	if err := s.verifying(a, in.PaymentIntentID); err != nil {
		return s.reload(a, err)
	}
	if err := s.credit(ctx, a); err != nil {
		return a, err
	}
	return a, nil
}

// recoverStripe credits a failed attempt when Stripe reports its intent as
// succeeded after all, e.g. once the sweeper gave up on a slow checkout.
func (s *Service) recoverStripe(ctx context.Context, a *models.PaymentAttempt, intentID string) (*models.PaymentAttempt, error) {
	remote, err := s.intents.PaymentIntentStatus(ctx, intentID)
	if err != nil || remote != stripeStatusSucceeded {
		return settled(a)
	}
	if err := s.reopen(a, intentID); err != nil {
		return s.reload(a, err)
	}
	if err := s.credit(ctx, a); err != nil {
		return a, err
	}
	return a, nil
}

func stripePending(status string) bool {
	return status == stripeStatusProcessing || status == stripeStatusRequiresAction
}

// reload re-reads an attempt after losing a transition race.
func (s *Service) reload(a *models.PaymentAttempt, cause error) (*models.PaymentAttempt, error) {
	if !isLost(cause) {
		return a, cause
	}
	fresh, err := s.repo.GetAttemptByUUID(a.UUID)
	if err != nil {
		return a, cause
	}
	return settled(fresh)
}

// HandleStripeWebhook verifies and applies a Stripe event. Redelivered events
// that were already processed are acknowledged without side effects.
func (s *Service) HandleStripeWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	if strings.TrimSpace(s.cfg.StripeWebhookSecret) == "" {
		return ErrWebhookDisabled
	}
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, s.cfg.StripeWebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	eventType := string(event.Type)

	var pi stripe.PaymentIntent
	var attempt *models.PaymentAttempt
	if strings.HasPrefix(eventType, "payment_intent.") && event.Data != nil {
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return fmt.Errorf("decode payment_intent: %w", err)
		}
		attempt, err = s.repo.GetAttemptByProviderOrderID(models.PaymentProviderStripe, pi.ID)
		if err != nil && !errors.Is(err, ErrAttemptNotFound) {
			return err
		}
	}

	record := &models.BillingWebhookEvent{
		Provider:        models.PaymentProviderStripe,
		ProviderEventID: event.ID,
		EventType:       eventType,
		PayloadJSON:     string(payload),
	}
	if attempt != nil {
		record.AttemptUUID = attempt.UUID
	}
	created, stored, err := s.repo.CreateWebhookEventIfNotExists(record)
	if err != nil {
		return fmt.Errorf("store webhook event: %w", err)
	}
	if !created && stored.Processed() {
		metrics.WebhookEventsTotal.WithLabelValues(models.PaymentProviderStripe, eventType, "duplicate").Inc()
		return nil
	}

	procErr := s.applyStripeEvent(ctx, eventType, &pi, attempt)
	msg := ""
	result := "processed"
	if procErr != nil {
		msg = procErr.Error()
		result = "error"
	}
	if err := s.repo.MarkWebhookProcessed(stored.ID, msg); err != nil {
		log.Errorf("[Payment] failed to mark stripe event %s processed: %v", event.ID, err)
	}
	metrics.WebhookEventsTotal.WithLabelValues(models.PaymentProviderStripe, eventType, result).Inc()

	// retrying these cannot change the outcome
	if errors.Is(procErr, ErrCreditMutation) || isLost(procErr) {
		return nil
	}
	return procErr
}

func (s *Service) applyStripeEvent(ctx context.Context, eventType string, pi *stripe.PaymentIntent, a *models.PaymentAttempt) error {
	switch eventType {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
	default:
		log.Infof("[Payment] stripe webhook ignored (type %s)", eventType)
		return nil
	}
	if a == nil {
		log.Infof("[Payment] stripe webhook %s for unknown intent %s", eventType, pi.ID)
		return nil
	}

	if eventType == "payment_intent.succeeded" {
		switch {
		case a.State == models.AttemptStateAwaiting:
			if err := s.verifying(a, pi.ID); err != nil {
				return err
			}
		case Recoverable(a):
			if err := s.reopen(a, pi.ID); err != nil {
				return err
			}
		case a.State == models.AttemptStateIdle, a.State == models.AttemptStateCreatingOrder:
			// not processed, so Stripe redelivers once the order is stored
			return fmt.Errorf("attempt %s is still %s", a.UUID, a.State)
		case a.State == models.AttemptStateFailed:
			log.Errorf("[Payment] stripe reports %s paid but attempt %s failed [%s]: %s", pi.ID, a.UUID, a.FailureCategory, a.FailureReason)
			return nil
		default:
			return nil
		}
		return s.credit(ctx, a)
	}

	if a.IsTerminal() || a.State == models.AttemptStateVerifying {
		return nil
	}
	reason := "payment failed"
	if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
		reason = pi.LastPaymentError.Msg
	}
	s.fail(a, models.FailureProviderInteraction, reason)
	return nil
}
