package bonus

import (
	"errors"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentTiers(t *testing.T) {
	tests := []struct {
		usd  float64
		want int
	}{
		{usd: 0, want: 0},
		{usd: 9.99, want: 0},
		{usd: 10, want: 5},
		{usd: 50, want: 5},
		{usd: 100, want: 5},
		{usd: 100.01, want: 10},
		{usd: 1000, want: 10},
		{usd: 1000.01, want: 15},
		{usd: 5000, want: 15},
		{usd: 10000, want: 15},
		{usd: 10000.01, want: 20},
		{usd: 1e9, want: 20},
	}

	for _, tt := range tests {
		if got := Percent(tt.usd); got != tt.want {
			t.Fatalf("Percent(%v) = %d, want %d", tt.usd, got, tt.want)
		}
	}
}

func TestPercentIsMonotonic(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	amounts := make([]float64, 0, 2000)
	for i := 0; i < 2000; i++ {
		amounts = append(amounts, r.Float64()*20000)
	}
	amounts = append(amounts, 10, 100, 1000, 10000)
	sort.Float64s(amounts)

	for i := 1; i < len(amounts); i++ {
		if Percent(amounts[i-1]) > Percent(amounts[i]) {
			t.Fatalf("bonus decreased between %v and %v", amounts[i-1], amounts[i])
		}
	}
}

func TestForUSDIsIdempotent(t *testing.T) {
	for _, usd := range []float64{5, 10, 150, 2500, 20000} {
		assert.Equal(t, ForUSD(usd), ForUSD(usd))
	}
}

func TestForUSDMessages(t *testing.T) {
	assert.Contains(t, ForUSD(5).Message, "unlock")
	assert.Contains(t, ForUSD(50).Message, "5% bonus")
	assert.Contains(t, ForUSD(50).Message, "10% above $100")
	assert.NotContains(t, ForUSD(20000).Message, "above")
}

func TestCalculatorQuote(t *testing.T) {
	calc := NewCalculator(nil)

	q, err := calc.Quote(50, "usd")
	require.NoError(t, err)
	assert.Equal(t, "USD", q.Currency)
	assert.Equal(t, 50.0, q.USDAmount)
	assert.Equal(t, 5, q.BonusPercent)
	assert.Equal(t, 52.5, q.Credits)

	q, err = calc.Quote(10000, "INR")
	require.NoError(t, err)
	assert.Equal(t, 120.0, q.USDAmount)
	assert.Equal(t, 10, q.BonusPercent)
	assert.Equal(t, 132.0, q.Credits)

	q, err = calc.Quote(5, "USD")
	require.NoError(t, err)
	assert.Equal(t, 0, q.BonusPercent)
	assert.Equal(t, 5.0, q.Credits)
}

func TestCalculatorQuoteTiersOnUnroundedAmount(t *testing.T) {
	calc := NewCalculator(nil)

	// 833 INR is 9.996 USD, just below the first threshold
	q, err := calc.Quote(833, "INR")
	require.NoError(t, err)
	assert.Equal(t, 10.0, q.USDAmount)
	assert.Equal(t, 0, q.BonusPercent)
	assert.Equal(t, 10.0, q.Credits)

	q, err = calc.Quote(100.004, "USD")
	require.NoError(t, err)
	assert.Equal(t, 100.0, q.USDAmount)
	assert.Equal(t, 10, q.BonusPercent)
	assert.Equal(t, 110.0, q.Credits)

	q, err = calc.Quote(10000.004, "USD")
	require.NoError(t, err)
	assert.Equal(t, 10000.0, q.USDAmount)
	assert.Equal(t, 20, q.BonusPercent)
	assert.Equal(t, 12000.0, q.Credits)
}

func TestCalculatorQuoteErrors(t *testing.T) {
	calc := NewCalculator(map[string]float64{"usd": 1})

	_, err := calc.Quote(0, "USD")
	assert.True(t, errors.Is(err, ErrInvalidAmount))

	_, err = calc.Quote(10, "XYZ")
	assert.True(t, errors.Is(err, ErrUnsupportedCurrency))

	assert.True(t, calc.Supports(" usd "))
	assert.False(t, calc.Supports("EUR"))
}

func TestCurrencyForCountry(t *testing.T) {
	assert.Equal(t, "INR", CurrencyForCountry("in"))
	assert.Equal(t, "EUR", CurrencyForCountry("DE"))
	assert.Equal(t, "GBP", CurrencyForCountry("GB"))
	assert.Equal(t, "USD", CurrencyForCountry(""))
	assert.Equal(t, "USD", CurrencyForCountry("BR"))
}
