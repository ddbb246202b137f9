package controllers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/ManuelReschke/CreditFox/app/models"
	"github.com/ManuelReschke/CreditFox/internal/pkg/bonus"
	"github.com/ManuelReschke/CreditFox/internal/pkg/constants"
	"github.com/ManuelReschke/CreditFox/internal/pkg/payment"
	"github.com/ManuelReschke/CreditFox/internal/pkg/usercontext"
)

// PaymentController serves the checkout endpoints of all providers.
type PaymentController struct {
	payments *payment.Service
}

func NewPaymentController(svc *payment.Service) *PaymentController {
	return &PaymentController{payments: svc}
}

// creditedResponse carries the optimistic balance the SPA patches locally.
// Replays of an attempt credited earlier add nothing, the resolved balance
// already includes it.
func creditedResponse(c *fiber.Ctx, a *models.PaymentAttempt) error {
	balance := 0.0
	if u := usercontext.GetUser(c); u != nil {
		balance = u.Credits
		if a.CreditApplied() {
			balance += a.Credits
		}
	}
	return c.JSON(fiber.Map{
		"attempt": a,
		"credits": balance,
		"message": "Credits added successfully",
	})
}

func attemptError(c *fiber.Ctx, a *models.PaymentAttempt, err error) error {
	status, body := errorBody(err)
	if a != nil {
		body["attempt"] = a
	}
	return c.Status(status).JSON(body)
}

func (pc *PaymentController) parseCheckout(c *fiber.Ctx) (payment.CheckoutInput, error) {
	var in payment.CheckoutInput
	if err := c.BodyParser(&in); err != nil {
		return in, payment.ErrInvalidInput
	}
	if strings.TrimSpace(in.Currency) == "" {
		in.Currency = bonus.CurrencyForCountry(clientCountry(c))
	}
	return in, nil
}

// HandleStripeStart handles POST /api/payments/stripe
func (pc *PaymentController) HandleStripeStart(c *fiber.Ctx) error {
	in, err := pc.parseCheckout(c)
	if err != nil {
		return jsonError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	co, err := pc.payments.StartStripe(ctx, usercontext.GetUser(c), in)
	if err != nil {
		return jsonError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(co)
}

// HandleStripeConfirm handles POST /api/payments/stripe/confirm
func (pc *PaymentController) HandleStripeConfirm(c *fiber.Ctx) error {
	var in payment.StripeConfirmInput
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, payment.ErrInvalidInput)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	a, err := pc.payments.ConfirmStripe(ctx, usercontext.GetUser(c).ID, in)
	if err != nil {
		return attemptError(c, a, err)
	}
	return creditedResponse(c, a)
}

// HandleRazorpayStart handles POST /api/payments/razorpay
func (pc *PaymentController) HandleRazorpayStart(c *fiber.Ctx) error {
	in, err := pc.parseCheckout(c)
	if err != nil {
		return jsonError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	co, err := pc.payments.StartRazorpay(ctx, usercontext.GetUser(c), in)
	if err != nil {
		return jsonError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(co)
}

// HandleRazorpayVerify handles POST /api/payments/razorpay/verify
func (pc *PaymentController) HandleRazorpayVerify(c *fiber.Ctx) error {
	var in payment.RazorpayVerifyInput
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, payment.ErrInvalidInput)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	a, err := pc.payments.VerifyRazorpay(ctx, usercontext.GetUser(c).ID, in)
	if err != nil {
		return attemptError(c, a, err)
	}
	return creditedResponse(c, a)
}

// HandlePayPalCheckout handles GET /payments/paypal/checkout and redirects
// the browser to the backend's PayPal endpoint.
func (pc *PaymentController) HandlePayPalCheckout(c *fiber.Ctx) error {
	in := payment.CheckoutInput{
		Amount:   c.QueryFloat("amount"),
		Currency: c.Query("currency", bonus.CurrencyForCountry(clientCountry(c))),
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	_, target, err := pc.payments.StartPayPal(ctx, usercontext.GetUser(c), in)
	if err != nil {
		_, body := errorBody(err)
		return flash.WithError(c, fiber.Map{"type": "error", "message": body["message"]}).Redirect(constants.PublicRoute)
	}
	return c.Redirect(target, fiber.StatusSeeOther)
}

// HandleGetAttempt handles GET /api/payments/:id
func (pc *PaymentController) HandleGetAttempt(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	a, err := pc.payments.Get(ctx, usercontext.GetUser(c).ID, c.Params("id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(fiber.Map{"attempt": a})
}

// HandleCancelAttempt handles POST /api/payments/:id/cancel
func (pc *PaymentController) HandleCancelAttempt(c *fiber.Ctx) error {
	var in struct {
		Reason string `json:"reason"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return jsonError(c, payment.ErrInvalidInput)
		}
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	reason := strings.TrimSpace(in.Reason)
	if len(reason) > 300 {
		reason = reason[:300]
	}
	a, err := pc.payments.Cancel(ctx, usercontext.GetUser(c).ID, c.Params("id"), reason)
	if err != nil {
		return attemptError(c, a, err)
	}
	return c.JSON(fiber.Map{"attempt": a})
}

// HandleStripeWebhook handles POST /webhooks/stripe
func (pc *PaymentController) HandleStripeWebhook(c *fiber.Ctx) error {
	sig := strings.TrimSpace(c.Get("Stripe-Signature"))
	if sig == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature", "message": "missing Stripe signature"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := pc.payments.HandleStripeWebhook(ctx, c.Body(), sig); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(fiber.Map{"received": true})
}

// IdentityFailed counts checkouts rejected before a user was resolved.
func (pc *PaymentController) IdentityFailed(provider string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if status := c.Response().StatusCode(); usercontext.GetUser(c) == nil && status >= fiber.StatusBadRequest {
			pc.payments.IdentityFailed(provider, fmt.Errorf("resolve user: status %d", status))
		}
		return err
	}
}
