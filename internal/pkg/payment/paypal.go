package payment

import (
	"context"
	"fmt"

	"github.com/ManuelReschke/CreditFox/app/models"
	"github.com/ManuelReschke/CreditFox/internal/pkg/backend"
)

// StartPayPal returns the backend URL the browser is redirected to. The
// attempt stays in awaiting_provider_interaction since the PayPal callback
// is handled by the backend.
func (s *Service) StartPayPal(ctx context.Context, user *backend.User, in CheckoutInput) (*models.PaymentAttempt, string, error) {
	a, release, err := s.begin(ctx, models.PaymentProviderPayPal, user, in)
	if err != nil {
		return nil, "", err
	}
	defer release()

	target, err := s.backend.PayPalCheckoutURL(s.paymentRequest(user, a))
	if err != nil {
		s.fail(a, models.FailureOrderCreation, err.Error())
		return nil, "", fmt.Errorf("%w: %v", ErrOrderCreation, err)
	}
	if err := s.transition(a, models.AttemptStateAwaiting, nil); err != nil {
		return nil, "", err
	}
	return a, target, nil
}

// Cancel fails an awaiting attempt after the widget reported an error or the
// user closed it.
func (s *Service) Cancel(ctx context.Context, userID, attemptID, reason string) (*models.PaymentAttempt, error) {
	a, err := s.Get(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	if a.State != models.AttemptStateAwaiting {
		return settled(a)
	}
	if reason == "" {
		reason = "cancelled by user"
	}
	s.fail(a, models.FailureProviderInteraction, reason)
	if a.State != models.AttemptStateFailed {
		return s.reload(a, ErrAttemptInProgress)
	}
	return a, nil
}
