package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/CreditFox/app/models"
	"github.com/ManuelReschke/CreditFox/internal/pkg/backend"
)

type fakeMutator struct {
	adds    []backend.CreditRequest
	removes []backend.CreditRequest
	err     error
}

func (f *fakeMutator) AddCredits(ctx context.Context, in backend.CreditRequest) (*backend.MessageResponse, error) {
	f.adds = append(f.adds, in)
	if f.err != nil {
		return nil, f.err
	}
	return &backend.MessageResponse{Message: "Credits added"}, nil
}

func (f *fakeMutator) RemoveCredits(ctx context.Context, in backend.CreditRequest) (*backend.MessageResponse, error) {
	f.removes = append(f.removes, in)
	if f.err != nil {
		return nil, f.err
	}
	return &backend.MessageResponse{Message: "Credits removed"}, nil
}

type memRecorder struct {
	rows []models.CreditMutation
	err  error
}

func (m *memRecorder) RecordMutation(row *models.CreditMutation) error {
	m.rows = append(m.rows, *row)
	return m.err
}

func TestAddCredits(t *testing.T) {
	m := &fakeMutator{}
	rec := &memRecorder{}
	c := NewClient(m, rec)

	res, err := c.AddCredits(context.Background(), "u1", 52.5, "att-1", map[string]any{"provider": "stripe"})
	require.NoError(t, err)
	assert.Equal(t, "Credits added", res.Message)
	assert.Equal(t, 52.5, res.Amount)

	require.Len(t, m.adds, 1)
	assert.Equal(t, "stripe", m.adds[0].Metadata["provider"])

	require.Len(t, rec.rows, 1)
	assert.Equal(t, models.CreditDirectionAdd, rec.rows[0].Direction)
	assert.True(t, rec.rows[0].Succeeded)
	assert.Equal(t, "att-1", rec.rows[0].Reference)
}

func TestRemoveCreditsFailureIsRecordedNotRetried(t *testing.T) {
	m := &fakeMutator{err: backend.ErrUnreachable}
	rec := &memRecorder{}
	c := NewClient(m, rec)

	_, err := c.RemoveCredits(context.Background(), "u1", 1, "lookup:email")
	assert.True(t, errors.Is(err, ErrMutationFailed))
	assert.Len(t, m.removes, 1)

	require.Len(t, rec.rows, 1)
	assert.False(t, rec.rows[0].Succeeded)
	assert.NotEmpty(t, rec.rows[0].Error)
}

func TestRecorderFailureDoesNotMaskSuccess(t *testing.T) {
	c := NewClient(&fakeMutator{}, &memRecorder{err: errors.New("db down")})
	_, err := c.AddCredits(context.Background(), "u1", 5, "att-2", nil)
	assert.NoError(t, err)
}

func TestValidation(t *testing.T) {
	c := NewClient(&fakeMutator{}, nil)
	_, err := c.AddCredits(context.Background(), " ", 5, "", nil)
	assert.True(t, errors.Is(err, ErrInvalidMutation))
	_, err = c.RemoveCredits(context.Background(), "u1", 0, "")
	assert.True(t, errors.Is(err, ErrInvalidMutation))
}
