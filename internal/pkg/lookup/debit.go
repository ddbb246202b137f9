package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ManuelReschke/CreditFox/internal/pkg/backend"
	"github.com/ManuelReschke/CreditFox/internal/pkg/env"
	"github.com/ManuelReschke/CreditFox/internal/pkg/ledger"
)

const (
	KindEmail    = "email"
	KindPhone    = "phone"
	KindUsername = "username"
)

var (
	ErrUnknownKind         = errors.New("unknown lookup kind")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// Debiter removes credits from the backend ledger.
type Debiter interface {
	RemoveCredits(ctx context.Context, userID string, amount float64, reference string) (*ledger.Result, error)
}

// Result is returned to the browser after a successful debit. Remaining is
// the optimistic balance; the backend stays authoritative.
type Result struct {
	Kind      string  `json:"kind"`
	Cost      float64 `json:"cost"`
	Remaining float64 `json:"remaining"`
	Reference string  `json:"reference"`
	Message   string  `json:"message"`
}

// Service charges credits before a lookup runs.
type Service struct {
	debiter Debiter
	costs   map[string]float64
}

func NewService(d Debiter, costs map[string]float64) *Service {
	return &Service{debiter: d, costs: costs}
}

// CostsFromEnv reads LOOKUP_COST_EMAIL, LOOKUP_COST_PHONE and
// LOOKUP_COST_USERNAME, each defaulting to one credit.
func CostsFromEnv() map[string]float64 {
	costs := map[string]float64{}
	for _, k := range []string{KindEmail, KindPhone, KindUsername} {
		costs[k] = env.GetEnvFloat("LOOKUP_COST_"+strings.ToUpper(k), 1)
	}
	return costs
}

// Cost returns the price of one lookup of kind.
func (s *Service) Cost(kind string) (float64, error) {
	cost, ok := s.costs[strings.ToLower(strings.TrimSpace(kind))]
	if !ok {
		return 0, ErrUnknownKind
	}
	return cost, nil
}

// Debit charges user for one lookup of kind.
func (s *Service) Debit(ctx context.Context, user *backend.User, kind string) (*Result, error) {
	cost, err := s.Cost(kind)
	if err != nil {
		return nil, err
	}
	if user.Credits < cost {
		return nil, fmt.Errorf("%w: %.2f available, %.2f required", ErrInsufficientCredits, user.Credits, cost)
	}

	kind = strings.ToLower(strings.TrimSpace(kind))
	ref := fmt.Sprintf("lookup:%s:%s", kind, uuid.NewString())
	res, err := s.debiter.RemoveCredits(ctx, user.ID, cost, ref)
	if err != nil {
		return nil, err
	}
	return &Result{
		Kind:      kind,
		Cost:      cost,
		Remaining: user.Credits - cost,
		Reference: ref,
		Message:   res.Message,
	}, nil
}
