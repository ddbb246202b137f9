package payment

import "github.com/ManuelReschke/CreditFox/app/models"

var transitions = map[string][]string{
	models.AttemptStateIdle:          {models.AttemptStateCreatingOrder, models.AttemptStateFailed},
	models.AttemptStateCreatingOrder: {models.AttemptStateAwaiting, models.AttemptStateFailed},
	models.AttemptStateAwaiting:      {models.AttemptStateVerifying, models.AttemptStateFailed},
	models.AttemptStateVerifying:     {models.AttemptStateCredited, models.AttemptStateFailed},
	// reopened when the provider reports success after we gave up
	models.AttemptStateFailed: {models.AttemptStateVerifying},
}

// CanTransition reports whether an attempt may move from one state to another.
// Credited has no outgoing edges.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Recoverable reports whether a failed attempt may still be credited when
// the provider confirms the payment. Attempts that failed on order
// creation never reached the provider, and credit-mutation failures are
// not retried.
func Recoverable(a *models.PaymentAttempt) bool {
	if a.State != models.AttemptStateFailed {
		return false
	}
	switch a.FailureCategory {
	case models.FailureProviderInteraction, models.FailureVerification:
		return true
	}
	return false
}
