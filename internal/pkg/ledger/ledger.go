package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CreditFox/app/models"
	"github.com/ManuelReschke/CreditFox/internal/pkg/backend"
	"github.com/ManuelReschke/CreditFox/internal/pkg/metrics"
)

var (
	ErrInvalidMutation = errors.New("user id and a positive amount are required")
	ErrMutationFailed  = errors.New("credit mutation failed")
)

// Mutator is the backend side of the ledger.
type Mutator interface {
	AddCredits(ctx context.Context, in backend.CreditRequest) (*backend.MessageResponse, error)
	RemoveCredits(ctx context.Context, in backend.CreditRequest) (*backend.MessageResponse, error)
}

// Recorder persists the local audit row of a mutation.
type Recorder interface {
	RecordMutation(m *models.CreditMutation) error
}

// Result is what a caller needs to patch its local view of the balance.
type Result struct {
	Message string
	Amount  float64
}

// Client calls the backend ledger. It never retries and never reconciles;
// failures are logged and recorded, then returned to the caller.
type Client struct {
	backend  Mutator
	recorder Recorder
}

func NewClient(m Mutator, r Recorder) *Client {
	return &Client{backend: m, recorder: r}
}

// AddCredits credits userID. reference ties the call to a payment attempt.
func (c *Client) AddCredits(ctx context.Context, userID string, amount float64, reference string, metadata map[string]any) (*Result, error) {
	return c.mutate(ctx, models.CreditDirectionAdd, userID, amount, reference, metadata)
}

// RemoveCredits debits userID, e.g. before a lookup runs.
func (c *Client) RemoveCredits(ctx context.Context, userID string, amount float64, reference string) (*Result, error) {
	return c.mutate(ctx, models.CreditDirectionRemove, userID, amount, reference, nil)
}

func (c *Client) mutate(ctx context.Context, direction, userID string, amount float64, reference string, metadata map[string]any) (*Result, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || amount <= 0 {
		return nil, ErrInvalidMutation
	}

	req := backend.CreditRequest{UserID: userID, Amount: amount, Metadata: metadata}
	var (
		resp *backend.MessageResponse
		err  error
	)
	if direction == models.CreditDirectionAdd {
		resp, err = c.backend.AddCredits(ctx, req)
	} else {
		resp, err = c.backend.RemoveCredits(ctx, req)
	}

	row := &models.CreditMutation{
		UserID:    userID,
		Direction: direction,
		Amount:    amount,
		Reference: reference,
		Succeeded: err == nil,
	}
	if resp != nil {
		row.Message = resp.Message
	}
	if err != nil {
		row.Error = err.Error()
	}
	c.record(row)

	if err != nil {
		metrics.CreditMutationsTotal.WithLabelValues(direction, "failed").Inc()
		log.Errorf("[Ledger] %s %.2f credits for user %s (ref %s) failed: %v", direction, amount, userID, reference, err)
		return nil, fmt.Errorf("%w: %v", ErrMutationFailed, err)
	}
	metrics.CreditMutationsTotal.WithLabelValues(direction, "ok").Inc()
	return &Result{Message: row.Message, Amount: amount}, nil
}

func (c *Client) record(row *models.CreditMutation) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordMutation(row); err != nil {
		log.Errorf("[Ledger] failed to record %s mutation for user %s: %v", row.Direction, row.UserID, err)
	}
}

type gormRecorder struct {
	db *gorm.DB
}

// NewGormRecorder stores mutations in the credit_mutations table.
func NewGormRecorder(db *gorm.DB) Recorder {
	return &gormRecorder{db: db}
}

func (r *gormRecorder) RecordMutation(m *models.CreditMutation) error {
	return r.db.Create(m).Error
}
