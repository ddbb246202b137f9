package router

import (
	"context"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The swagger UI serves this file as is, so it has to stay valid.
func TestOpenAPIDocumentIsValid(t *testing.T) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile("../../../public/docs/v1/openapi.yml")
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))

	for _, path := range []string{
		"/api/me",
		"/api/bonus",
		"/api/payments/stripe",
		"/api/payments/stripe/confirm",
		"/api/payments/razorpay",
		"/api/payments/razorpay/verify",
		"/api/payments/{id}",
		"/api/payments/{id}/cancel",
		"/api/lookups/costs",
		"/api/lookups/{kind}/debit",
		"/payments/paypal/checkout",
		"/webhooks/stripe",
	} {
		assert.NotNil(t, doc.Paths.Find(path), path)
	}
}
