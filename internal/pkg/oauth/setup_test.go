package oauth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ManuelReschke/CreditFox/internal/pkg/env"
)

func TestCallbackURL(t *testing.T) {
	env.Env = map[string]string{"PUBLIC_DOMAIN": "https://credits.example.com/"}
	assert.Equal(t, "https://credits.example.com/auth/google/callback", CallbackURL("google"))

	env.Env = map[string]string{"APP_PORT": "4100"}
	assert.Equal(t, "http://localhost:4100/auth/google/callback", CallbackURL("google"))
	env.Env = nil
}
