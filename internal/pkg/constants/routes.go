package constants

// Static route constants
const (
	PublicRoute = "/"

	PayPalCheckoutRoute = "/payments/paypal/checkout"
	PayPalReturnRoute   = "/payments/paypal/return"

	// Goth keeps its own session on these paths
	AuthPrefix = "/auth/"

	WebhookPrefix      = "/webhooks/"
	StripeWebhookRoute = WebhookPrefix + "stripe"

	// the SPA reads flash messages left by page redirects here
	FlashMessageRoute = "/flash"
)
