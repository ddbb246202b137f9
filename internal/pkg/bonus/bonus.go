package bonus

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Tier thresholds in USD. Each bound is inclusive on its upper end.
const (
	MinBonusUSD  = 10.0
	TierOneMax   = 100.0
	TierTwoMax   = 1000.0
	TierThreeMax = 10000.0
)

var ErrUnsupportedCurrency = errors.New("unsupported currency")
var ErrInvalidAmount = errors.New("amount must be a positive number")

// Tier is the bonus granted for a normalized USD amount.
type Tier struct {
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// Quote is the priced result of a checkout amount.
type Quote struct {
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	USDAmount    float64 `json:"usd_amount"`
	BonusPercent int     `json:"bonus_percent"`
	Message      string  `json:"message"`
	Credits      float64 `json:"credits"`
}

// DefaultRates converts one unit of a currency into USD. The table is static;
// drift against live rates is accepted.
var DefaultRates = map[string]float64{
	"USD": 1,
	"INR": 0.012,
	"EUR": 1.08,
	"GBP": 1.27,
	"CAD": 0.73,
	"AUD": 0.66,
	"SGD": 0.74,
	"AED": 0.27,
}

// Percent returns the bonus percentage for a USD amount.
func Percent(usd float64) int {
	switch {
	case usd > TierThreeMax:
		return 20
	case usd > TierTwoMax:
		return 15
	case usd > TierOneMax:
		return 10
	case usd >= MinBonusUSD:
		return 5
	default:
		return 0
	}
}

// ForUSD returns the tier and a human readable message for a USD amount.
func ForUSD(usd float64) Tier {
	p := Percent(usd)
	if p == 0 {
		return Tier{
			Percent: 0,
			Message: fmt.Sprintf("Add at least $%.0f to unlock a 5%% bonus", MinBonusUSD),
		}
	}

	msg := fmt.Sprintf("You get a %d%% bonus on this purchase", p)
	if next, at := nextTier(usd); next > 0 {
		msg += fmt.Sprintf(" (%d%% above $%.0f)", next, at)
	}
	return Tier{Percent: p, Message: msg}
}

func nextTier(usd float64) (int, float64) {
	switch {
	case usd > TierThreeMax:
		return 0, 0
	case usd > TierTwoMax:
		return 20, TierThreeMax
	case usd > TierOneMax:
		return 15, TierTwoMax
	default:
		return 10, TierOneMax
	}
}

// Calculator prices amounts in any configured currency.
type Calculator struct {
	rates map[string]float64
}

// NewCalculator copies rates; nil uses DefaultRates.
func NewCalculator(rates map[string]float64) *Calculator {
	if rates == nil {
		rates = DefaultRates
	}
	cp := make(map[string]float64, len(rates))
	for k, v := range rates {
		cp[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return &Calculator{rates: cp}
}

// ToUSD converts amount in currency to USD.
func (c *Calculator) ToUSD(amount float64, currency string) (float64, error) {
	rate, ok := c.rates[NormalizeCurrency(currency)]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, currency)
	}
	return amount * rate, nil
}

// Supports reports whether currency has a conversion rate.
func (c *Calculator) Supports(currency string) bool {
	_, ok := c.rates[NormalizeCurrency(currency)]
	return ok
}

// Quote prices amount, applies the bonus tier and computes purchased credits
// (one credit per USD plus bonus).
func (c *Calculator) Quote(amount float64, currency string) (Quote, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Quote{}, ErrInvalidAmount
	}
	cur := NormalizeCurrency(currency)
	usd, err := c.ToUSD(amount, cur)
	if err != nil {
		return Quote{}, err
	}
	// tiers and credits use the exact conversion, rounding is for display
	tier := ForUSD(usd)
	return Quote{
		Amount:       amount,
		Currency:     cur,
		USDAmount:    round2(usd),
		BonusPercent: tier.Percent,
		Message:      tier.Message,
		Credits:      round2(usd * (1 + float64(tier.Percent)/100)),
	}, nil
}

func NormalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
