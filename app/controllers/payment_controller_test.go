package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/CreditFox/app/models"
	"github.com/ManuelReschke/CreditFox/internal/pkg/backend"
	"github.com/ManuelReschke/CreditFox/internal/pkg/ledger"
	"github.com/ManuelReschke/CreditFox/internal/pkg/lookup"
	"github.com/ManuelReschke/CreditFox/internal/pkg/payment"
	"github.com/ManuelReschke/CreditFox/internal/pkg/usercontext"
)

// attemptStore is a minimal payment.Repository for handler tests.
type attemptStore struct {
	mu       sync.Mutex
	attempts map[string]models.PaymentAttempt
}

func (s *attemptStore) CreateAttempt(a *models.PaymentAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[a.UUID] = *a
	return nil
}

func (s *attemptStore) GetAttemptByUUID(id string) (*models.PaymentAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok {
		return nil, payment.ErrAttemptNotFound
	}
	return &a, nil
}

func (s *attemptStore) GetAttemptByProviderOrderID(provider, orderID string) (*models.PaymentAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attempts {
		if a.Provider == provider && a.ProviderOrderID == orderID {
			return &a, nil
		}
	}
	return nil, payment.ErrAttemptNotFound
}

func (s *attemptStore) TransitionAttempt(id, from, to string, updates map[string]interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok || a.State != from {
		return false, nil
	}
	a.State = to
	if v, ok := updates["provider_order_id"].(string); ok {
		a.ProviderOrderID = v
	}
	s.attempts[id] = a
	return true, nil
}

func (s *attemptStore) ListStaleAttempts(providers, states []string, before time.Time, limit int) ([]models.PaymentAttempt, error) {
	return nil, nil
}

func (s *attemptStore) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	return true, event, nil
}

func (s *attemptStore) MarkWebhookProcessed(id uint, processingError string) error {
	return nil
}

// fakeBackendServer answers the backend endpoints the handlers reach.
func fakeBackendServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var mu sync.Mutex
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.URL.Path)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/payment/stripe/createPayment":
			_, _ = io.WriteString(w, `{"clientSecret":"pi_42_secret_xyz","amount":5000}`)
		case "/api/payment/razorpay/createPayment":
			_, _ = io.WriteString(w, `{"id":"order_9","amount":100000,"currency":"INR","key":"rzp_test"}`)
		case "/api/payment/razorpay/verifyPayment":
			_, _ = io.WriteString(w, `{"message":"Payment verified successfully"}`)
		case "/api/credits/add/":
			_, _ = io.WriteString(w, `{"message":"Credits added"}`)
		case "/api/credits/remove/":
			_, _ = io.WriteString(w, `{"message":"Credits removed"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestApp(t *testing.T, user *backend.User) (*fiber.App, *[]string) {
	t.Helper()
	srv, calls := fakeBackendServer(t)
	bc := backend.NewClient(srv.URL, srv.Client())
	lc := ledger.NewClient(bc, nil)
	svc := payment.NewService(&attemptStore{attempts: map[string]models.PaymentAttempt{}}, bc, lc, nil, nil, nil, payment.Config{StripePublishableKey: "pk_test"})
	pc := NewPaymentController(svc)
	lk := NewLookupController(lookup.NewService(lc, map[string]float64{lookup.KindEmail: 1, lookup.KindPhone: 2, lookup.KindUsername: 1}))

	app := fiber.New()
	withUser := func(c *fiber.Ctx) error {
		if user != nil {
			cp := *user
			usercontext.SetUser(c, &cp)
		}
		return c.Next()
	}
	app.Get("/api/bonus", HandleBonusQuote)
	app.Get("/payments/paypal/return", HandlePayPalReturn)
	app.Get("/flash", HandleFlashMessage)
	api := app.Group("/api", withUser)
	api.Post("/payments/stripe", pc.HandleStripeStart)
	api.Post("/payments/stripe/confirm", pc.HandleStripeConfirm)
	api.Post("/payments/razorpay", pc.HandleRazorpayStart)
	api.Post("/payments/razorpay/verify", pc.HandleRazorpayVerify)
	api.Get("/payments/:id", pc.HandleGetAttempt)
	api.Post("/payments/:id/cancel", pc.HandleCancelAttempt)
	api.Post("/lookups/:kind/debit", lk.HandleDebit)
	api.Get("/lookups/costs", lk.HandleLookupCosts)
	app.Get("/payments/paypal/checkout", withUser, pc.HandlePayPalCheckout)
	return app, calls
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestErrorBody(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{payment.ErrInvalidInput, fiber.StatusBadRequest, "invalid_input"},
		{payment.ErrAttemptNotFound, fiber.StatusNotFound, "not_found"},
		{payment.ErrAttemptInProgress, fiber.StatusConflict, "in_progress"},
		{payment.ErrVerification, fiber.StatusPaymentRequired, "verification_failed"},
		{lookup.ErrInsufficientCredits, fiber.StatusPaymentRequired, "insufficient_credits"},
		{payment.ErrOrderCreation, fiber.StatusBadGateway, "order_creation_failed"},
		{errors.Join(payment.ErrCreditMutation, backend.ErrUnreachable), fiber.StatusBadGateway, "credit_mutation_failed"},
		{errors.New("boom"), fiber.StatusInternalServerError, "internal_server_error"},
	}
	for _, tc := range cases {
		status, body := errorBody(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, body["error"])
		assert.NotEmpty(t, body["message"])
	}

	_, body := errorBody(payment.ErrCreditMutation)
	assert.Equal(t, payment.CreditFailureReason, body["message"])
}

func TestHandleBonusQuote(t *testing.T) {
	app, _ := newTestApp(t, nil)

	status, body := doJSON(t, app, "GET", "/api/bonus?amount=50&currency=USD", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 5.0, body["bonus_percent"])
	assert.Equal(t, 52.5, body["credits"])

	req := httptest.NewRequest("GET", "/api/bonus?amount=10000", nil)
	req.Header.Set("CF-IPCountry", "in")
	resp, err := app.Test(req)
	require.NoError(t, err)
	var q map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&q))
	assert.Equal(t, "INR", q["currency"])
	assert.Equal(t, 10.0, q["bonus_percent"])

	status, _ = doJSON(t, app, "GET", "/api/bonus?amount=10&currency=XYZ", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestStripeCheckoutOverHTTP(t *testing.T) {
	app, calls := newTestApp(t, &backend.User{ID: "u1", Email: "a@example.com", Credits: 3})

	status, body := doJSON(t, app, "POST", "/api/payments/stripe", `{"amount":50,"currency":"USD"}`)
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, "pi_42_secret_xyz", body["client_secret"])
	assert.Equal(t, "pi_42", body["payment_intent_id"])
	assert.Equal(t, "pk_test", body["publishable_key"])
	attemptID := body["attempt"].(map[string]any)["id"].(string)

	status, body = doJSON(t, app, "POST", "/api/payments/stripe/confirm",
		`{"attempt_id":"`+attemptID+`","payment_intent_id":"pi_42","status":"succeeded"}`)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, 55.5, body["credits"])
	assert.Equal(t, models.AttemptStateCredited, body["attempt"].(map[string]any)["state"])
	assert.Contains(t, *calls, "/api/credits/add/")

	status, body = doJSON(t, app, "GET", "/api/payments/"+attemptID, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, models.AttemptStateCredited, body["attempt"].(map[string]any)["state"])

	status, _ = doJSON(t, app, "GET", "/api/payments/does-not-exist", "")
	assert.Equal(t, fiber.StatusNotFound, status)

	// a replayed confirm must not add the purchase on top of the balance again
	status, body = doJSON(t, app, "POST", "/api/payments/stripe/confirm",
		`{"attempt_id":"`+attemptID+`","payment_intent_id":"pi_42","status":"succeeded"}`)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, 3.0, body["credits"])
	assert.Equal(t, 1, countCalls(*calls, "/api/credits/add/"))
}

func countCalls(calls []string, path string) int {
	n := 0
	for _, c := range calls {
		if c == path {
			n++
		}
	}
	return n
}

func TestCancelAttemptOverHTTP(t *testing.T) {
	app, _ := newTestApp(t, &backend.User{ID: "u1", Email: "a@example.com"})

	status, body := doJSON(t, app, "POST", "/api/payments/stripe", `{"amount":20,"currency":"USD"}`)
	require.Equal(t, fiber.StatusCreated, status, body)
	attemptID := body["attempt"].(map[string]any)["id"].(string)

	status, body = doJSON(t, app, "POST", "/api/payments/"+attemptID+"/cancel", `{"reason":`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid_input", body["error"])

	status, body = doJSON(t, app, "GET", "/api/payments/"+attemptID, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, models.AttemptStateAwaiting, body["attempt"].(map[string]any)["state"])

	status, body = doJSON(t, app, "POST", "/api/payments/"+attemptID+"/cancel", "")
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, models.AttemptStateFailed, body["attempt"].(map[string]any)["state"])
}

func TestRazorpayCheckoutOverHTTP(t *testing.T) {
	app, _ := newTestApp(t, &backend.User{ID: "u1", Email: "a@example.com", Name: "Ada"})

	status, body := doJSON(t, app, "POST", "/api/payments/razorpay", `{"amount":1000,"currency":"INR"}`)
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, "order_9", body["order_id"])
	assert.Equal(t, "rzp_test", body["key"])
	assert.Equal(t, "Ada", body["name"])

	status, body = doJSON(t, app, "POST", "/api/payments/razorpay/verify",
		`{"razorpay_payment_id":"pay_1","razorpay_order_id":"order_9","razorpay_signature":"sig"}`)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, models.AttemptStateCredited, body["attempt"].(map[string]any)["state"])

	status, body = doJSON(t, app, "POST", "/api/payments/razorpay/verify", `{"razorpay_order_id":"order_9"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid_input", body["error"])
}

func TestPayPalCheckoutRedirects(t *testing.T) {
	app, _ := newTestApp(t, &backend.User{ID: "u1", Email: "a@example.com"})

	resp, err := app.Test(httptest.NewRequest("GET", "/payments/paypal/checkout?amount=25&currency=USD", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	loc := resp.Header.Get("Location")
	assert.Contains(t, loc, "/api/payment/paypal/createPayment?")
	assert.Contains(t, loc, "userId=u1")
	assert.Contains(t, loc, "amount=25.00")

	// flash redirects use fiber's default 302
	resp, err = app.Test(httptest.NewRequest("GET", "/payments/paypal/checkout?amount=0", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	// the SPA picks the message up on the next request
	req := httptest.NewRequest("GET", "/flash", nil)
	for _, ck := range resp.Cookies() {
		req.AddCookie(ck)
	}
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/flash", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/payments/paypal/return", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
}

func TestLookupDebitOverHTTP(t *testing.T) {
	app, calls := newTestApp(t, &backend.User{ID: "u1", Email: "a@example.com", Credits: 1})

	status, body := doJSON(t, app, "POST", "/api/lookups/phone/debit", "")
	assert.Equal(t, fiber.StatusPaymentRequired, status)
	assert.Equal(t, "insufficient_credits", body["error"])
	assert.NotContains(t, *calls, "/api/credits/remove/")

	status, body = doJSON(t, app, "POST", "/api/lookups/email/debit", "")
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, 0.0, body["remaining"])
	assert.Contains(t, *calls, "/api/credits/remove/")

	status, _ = doJSON(t, app, "POST", "/api/lookups/ssn/debit", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = doJSON(t, app, "GET", "/api/lookups/costs", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 2.0, body["phone"])
	assert.Equal(t, 1.0, body["email"])
}
