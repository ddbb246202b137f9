package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ManuelReschke/CreditFox/internal/pkg/backend"
)

const lookupTimeout = 15 * time.Second

var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrIncompleteRecord       = errors.New("failed to load user")
	ErrLookupFailed           = errors.New("user lookup failed")
)

// UserFinder loads a user record by email.
type UserFinder interface {
	FindUserByEmail(ctx context.Context, email string) (*backend.User, error)
}

// Resolver turns a session or query email into a backend user record.
// Concurrent lookups for the same email share one backend call.
type Resolver struct {
	finder UserFinder
	group  singleflight.Group
}

func NewResolver(finder UserFinder) *Resolver {
	return &Resolver{finder: finder}
}

// Resolve returns the user for email. There is no retry; callers surface
// ErrLookupFailed with a retry affordance.
func (r *Resolver) Resolve(ctx context.Context, email string) (*backend.User, error) {
	key := NormalizeEmail(email)
	if key == "" {
		return nil, ErrAuthenticationRequired
	}

	// the shared lookup outlives any single caller's cancellation
	ch := r.group.DoChan(key, func() (interface{}, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		return r.finder.FindUserByEmail(lctx, key)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, res.Err)
	}

	u, _ := res.Val.(*backend.User)
	if !u.Complete() {
		return nil, ErrIncompleteRecord
	}
	cp := *u
	return &cp, nil
}

// PickEmail prefers the authenticated session email over the query email.
func PickEmail(sessionEmail, queryEmail string) string {
	if e := NormalizeEmail(sessionEmail); e != "" {
		return e
	}
	return NormalizeEmail(queryEmail)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
