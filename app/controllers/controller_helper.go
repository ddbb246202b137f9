package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CreditFox/internal/pkg/ledger"
	"github.com/ManuelReschke/CreditFox/internal/pkg/lookup"
	"github.com/ManuelReschke/CreditFox/internal/pkg/payment"
)

const requestTimeout = 20 * time.Second

// requestContext bounds a handler's backend and provider calls.
func requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), requestTimeout)
}

type errorMapping struct {
	err     error
	status  int
	code    string
	message string
}

// Checked in order; the first match wins.
var errorMappings = []errorMapping{
	{payment.ErrInvalidInput, fiber.StatusBadRequest, "invalid_input", ""},
	{payment.ErrProviderMismatch, fiber.StatusBadRequest, "invalid_input", ""},
	{lookup.ErrUnknownKind, fiber.StatusBadRequest, "invalid_input", ""},
	{payment.ErrInvalidSignature, fiber.StatusBadRequest, "invalid_signature", ""},
	{payment.ErrAttemptNotFound, fiber.StatusNotFound, "not_found", ""},
	{payment.ErrAttemptInProgress, fiber.StatusConflict, "in_progress", ""},
	{payment.ErrInvalidTransition, fiber.StatusConflict, "invalid_state", ""},
	{payment.ErrPaymentPending, fiber.StatusAccepted, "pending", ""},
	{payment.ErrProviderInteraction, fiber.StatusPaymentRequired, "payment_failed", ""},
	{payment.ErrVerification, fiber.StatusPaymentRequired, "verification_failed", "Payment verification failed."},
	{lookup.ErrInsufficientCredits, fiber.StatusPaymentRequired, "insufficient_credits", "Not enough credits for this lookup."},
	{payment.ErrOrderCreation, fiber.StatusBadGateway, "order_creation_failed", "Could not start the payment. Please try again."},
	{payment.ErrCreditMutation, fiber.StatusBadGateway, "credit_mutation_failed", payment.CreditFailureReason},
	{ledger.ErrMutationFailed, fiber.StatusBadGateway, "credit_mutation_failed", "Could not update your credits. Please try again."},
	{payment.ErrWebhookDisabled, fiber.StatusServiceUnavailable, "webhook_disabled", ""},
}

// errorBody maps err to a status and the JSON error body used by every API
// handler.
func errorBody(err error) (int, fiber.Map) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			return m.status, fiber.Map{"error": m.code, "message": msg}
		}
	}
	log.Errorf("[API] unmapped error: %v", err)
	return fiber.StatusInternalServerError, fiber.Map{
		"error":   "internal_server_error",
		"message": "Something went wrong. Please try again.",
	}
}

func jsonError(c *fiber.Ctx, err error) error {
	status, body := errorBody(err)
	return c.Status(status).JSON(body)
}

// clientCountry returns the ISO country set by the CDN, if any.
func clientCountry(c *fiber.Ctx) string {
	return strings.ToUpper(strings.TrimSpace(c.Get("CF-IPCountry")))
}
