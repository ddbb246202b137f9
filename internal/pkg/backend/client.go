package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ManuelReschke/CreditFox/internal/pkg/env"
	"github.com/ManuelReschke/CreditFox/internal/pkg/metrics"
)

const (
	defaultBackendURL = "http://localhost:5000"
	maxResponseBytes  = 1 << 20
)

// ErrUnreachable wraps transport failures (DNS, refused connection, timeout).
var ErrUnreachable = errors.New("backend unreachable")

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend %s failed: status=%d message=%s", e.Endpoint, e.Status, e.Message)
	}
	return fmt.Sprintf("backend %s failed: status=%d", e.Endpoint, e.Status)
}

// Client talks to the REST backend that owns users, credits and the
// server side of every payment provider.
type Client struct {
	BaseURL string
	APIKey  string

	HTTPClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTPClient: httpClient,
	}
}

func NewClientFromEnv() *Client {
	c := NewClient(env.GetEnv("BACKEND_URL", defaultBackendURL), &http.Client{
		Timeout: env.GetEnvDuration("BACKEND_TIMEOUT", 15*time.Second),
	})
	c.APIKey = strings.TrimSpace(env.GetEnv("BACKEND_API_KEY", ""))
	return c
}

// FindUserByEmail loads the user record for email.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	q := url.Values{}
	q.Set("email", strings.TrimSpace(email))

	var out struct {
		Data User `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/findbyemail?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *Client) CreateStripePayment(ctx context.Context, in PaymentRequest) (*StripePayment, error) {
	var out StripePayment
	if err := c.do(ctx, http.MethodPost, "/api/payment/stripe/createPayment", in, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.ClientSecret) == "" {
		return nil, errors.New("backend stripe createPayment returned empty clientSecret")
	}
	return &out, nil
}

func (c *Client) CreateRazorpayOrder(ctx context.Context, in PaymentRequest) (*RazorpayOrder, error) {
	var out RazorpayOrder
	if err := c.do(ctx, http.MethodPost, "/api/payment/razorpay/createPayment", in, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.ID) == "" {
		return nil, errors.New("backend razorpay createPayment returned empty order id")
	}
	return &out, nil
}

func (c *Client) VerifyRazorpayPayment(ctx context.Context, in RazorpayVerification) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.do(ctx, http.MethodPost, "/api/payment/razorpay/verifyPayment", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PayPalCheckoutURL builds the backend URL the browser is redirected to. The
// backend answers with a redirect to PayPal's hosted checkout.
func (c *Client) PayPalCheckoutURL(in PaymentRequest) (string, error) {
	u, err := url.Parse(c.BaseURL + "/api/payment/paypal/createPayment")
	if err != nil {
		return "", fmt.Errorf("invalid BACKEND_URL: %w", err)
	}
	q := u.Query()
	q.Set("userId", in.UserID)
	q.Set("email", in.Email)
	q.Set("amount", strconv.FormatFloat(in.Amount, 'f', 2, 64))
	q.Set("currency", in.Currency)
	if ref := in.Metadata["attempt_id"]; ref != "" {
		q.Set("reference", ref)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) AddCredits(ctx context.Context, in CreditRequest) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.do(ctx, http.MethodPost, "/api/credits/add/", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemoveCredits(ctx context.Context, in CreditRequest) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.do(ctx, http.MethodPost, "/api/credits/remove/", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	endpoint := endpointName(path)
	start := time.Now()
	statusLabel := "error"
	defer func() {
		metrics.BackendRequestDuration.WithLabelValues(endpoint, statusLabel).Observe(time.Since(start).Seconds())
	}()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", endpoint, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnreachable, endpoint, err)
	}
	defer resp.Body.Close()
	statusLabel = strconv.Itoa(resp.StatusCode/100) + "xx"

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Endpoint: endpoint, Status: resp.StatusCode, Message: messageFromBody(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

func endpointName(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return strings.TrimSuffix(path, "/")
}

func messageFromBody(raw []byte) string {
	var m MessageResponse
	if err := json.Unmarshal(raw, &m); err == nil && m.Message != "" {
		return m.Message
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
