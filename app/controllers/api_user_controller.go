package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CreditFox/internal/pkg/bonus"
	"github.com/ManuelReschke/CreditFox/internal/pkg/lookup"
	"github.com/ManuelReschke/CreditFox/internal/pkg/payment"
	"github.com/ManuelReschke/CreditFox/internal/pkg/usercontext"
)

var quoteCalculator = bonus.NewCalculator(nil)

// HandleAPIMe returns the resolved backend user and the login behind it.
func HandleAPIMe(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"user":    usercontext.GetUser(c),
		"session": usercontext.GetUserContext(c),
	})
}

// HandleBonusQuote handles GET /api/bonus?amount=&currency=
func HandleBonusQuote(c *fiber.Ctx) error {
	currency := strings.TrimSpace(c.Query("currency"))
	if currency == "" {
		currency = bonus.CurrencyForCountry(clientCountry(c))
	}
	q, err := quoteCalculator.Quote(c.QueryFloat("amount"), currency)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_input",
			"message": err.Error(),
		})
	}
	return c.JSON(q)
}

// LookupController charges credits for OSINT lookups.
type LookupController struct {
	lookups *lookup.Service
}

func NewLookupController(svc *lookup.Service) *LookupController {
	return &LookupController{lookups: svc}
}

// HandleDebit handles POST /api/lookups/:kind/debit
func (lc *LookupController) HandleDebit(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := lc.lookups.Debit(ctx, usercontext.GetUser(c), c.Params("kind"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(res)
}

// HandleLookupCosts handles GET /api/lookups/costs
func (lc *LookupController) HandleLookupCosts(c *fiber.Ctx) error {
	out := fiber.Map{}
	for _, k := range []string{lookup.KindEmail, lookup.KindPhone, lookup.KindUsername} {
		cost, err := lc.lookups.Cost(k)
		if err != nil {
			return jsonError(c, payment.ErrInvalidInput)
		}
		out[k] = cost
	}
	return c.JSON(out)
}
