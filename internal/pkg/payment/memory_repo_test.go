package payment

import (
	"sync"
	"time"

	"github.com/ManuelReschke/CreditFox/app/models"
)

// memRepo is an in-memory Repository with the same conditional-update
// semantics as the GORM one.
type memRepo struct {
	mu       sync.Mutex
	attempts map[string]*models.PaymentAttempt
	events   map[string]*models.BillingWebhookEvent
	nextID   uint
}

func newMemRepo() *memRepo {
	return &memRepo{
		attempts: map[string]*models.PaymentAttempt{},
		events:   map[string]*models.BillingWebhookEvent{},
	}
}

func (r *memRepo) CreateAttempt(a *models.PaymentAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	a.ID = r.nextID
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	cp := *a
	r.attempts[a.UUID] = &cp
	return nil
}

func (r *memRepo) GetAttemptByUUID(id string) (*models.PaymentAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memRepo) GetAttemptByProviderOrderID(provider, orderID string) (*models.PaymentAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.attempts {
		if a.Provider == provider && a.ProviderOrderID == orderID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAttemptNotFound
}

func (r *memRepo) TransitionAttempt(id, from, to string, updates map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok || a.State != from {
		return false, nil
	}
	a.State = to
	applyUpdates(a, updates)
	a.UpdatedAt = time.Now()
	return true, nil
}

func (r *memRepo) ListStaleAttempts(providers, states []string, before time.Time, limit int) ([]models.PaymentAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PaymentAttempt
	for _, a := range r.attempts {
		if contains(providers, a.Provider) && contains(states, a.State) && a.UpdatedAt.Before(before) {
			out = append(out, *a)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := event.Provider + ":" + event.ProviderEventID
	if stored, ok := r.events[key]; ok {
		cp := *stored
		return false, &cp, nil
	}
	r.nextID++
	event.ID = r.nextID
	cp := *event
	r.events[key] = &cp
	out := cp
	return true, &out, nil
}

func (r *memRepo) MarkWebhookProcessed(id uint, processingError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.ProcessingError = processingError
		}
	}
	return nil
}

func (r *memRepo) age(id string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[id].UpdatedAt = time.Now().Add(-d)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
