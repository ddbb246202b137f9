package router

import (
	"strings"

	"gorm.io/gorm"

	"github.com/ManuelReschke/CreditFox/app/controllers"
	"github.com/ManuelReschke/CreditFox/internal/pkg/backend"
	"github.com/ManuelReschke/CreditFox/internal/pkg/env"
	"github.com/ManuelReschke/CreditFox/internal/pkg/identity"
	"github.com/ManuelReschke/CreditFox/internal/pkg/ledger"
	"github.com/ManuelReschke/CreditFox/internal/pkg/lookup"
	"github.com/ManuelReschke/CreditFox/internal/pkg/payment"
)

// Services holds everything the routers hand to controllers and middleware.
type Services struct {
	Resolver *identity.Resolver
	Payments *payment.Service
	Lookups  *lookup.Service
}

// NewServices wires the backend client, ledger, payment and lookup services
// from the environment.
func NewServices(db *gorm.DB) *Services {
	b := backend.NewClientFromEnv()

	var recorder ledger.Recorder
	if db != nil {
		recorder = ledger.NewGormRecorder(db)
	}
	credits := ledger.NewClient(b, recorder)

	payments := payment.NewService(
		payment.NewRepository(db),
		b,
		credits,
		nil,
		payment.NewRedisLocker(),
		payment.NewStripeIntentFetcher(env.GetEnv("STRIPE_SECRET_KEY", "")),
		payment.Config{
			StripePublishableKey: strings.TrimSpace(env.GetEnv("STRIPE_PUBLISHABLE_KEY", "")),
			StripeWebhookSecret:  strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
			RazorpayKeySecret:    strings.TrimSpace(env.GetEnv("RAZORPAY_KEY_SECRET", "")),
		},
	)

	return &Services{
		Resolver: identity.NewResolver(b),
		Payments: payments,
		Lookups:  lookup.NewService(credits, lookup.CostsFromEnv()),
	}
}

func (s *Services) paymentController() *controllers.PaymentController {
	return controllers.NewPaymentController(s.Payments)
}
