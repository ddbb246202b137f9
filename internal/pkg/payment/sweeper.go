package payment

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CreditFox/app/models"
)

const (
	DefaultAttemptTTL    = 2 * time.Hour
	DefaultSweepInterval = 5 * time.Minute
	sweepBatch           = 100
)

// Sweeper fails Stripe and Razorpay attempts the user walked away from.
// PayPal attempts are settled by the backend and never expire here.
type Sweeper struct {
	svc      *Service
	ttl      time.Duration
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

func NewSweeper(svc *Service, ttl, interval time.Duration) *Sweeper {
	if ttl <= 0 {
		ttl = DefaultAttemptTTL
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{svc: svc, ttl: ttl, interval: interval, stopCh: make(chan struct{})}
}

// Start runs the sweeper in the background until Stop is called.
func (sw *Sweeper) Start() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.running {
		return
	}
	sw.running = true
	sw.wg.Add(1)
	go sw.loop()
}

// Stop halts the sweeper and waits for the current pass to finish.
func (sw *Sweeper) Stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if !sw.running {
		return
	}
	close(sw.stopCh)
	sw.running = false
	sw.wg.Wait()
	log.Info("[Sweeper] stopped")
}

func (sw *Sweeper) loop() {
	defer sw.wg.Done()
	log.Infof("[Sweeper] running (ttl=%s, interval=%s)", sw.ttl, sw.interval)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()
	for {
		select {
		case <-sw.stopCh:
			return
		case <-ticker.C:
			sw.SweepOnce()
		}
	}
}

// SweepOnce fails every stale attempt and returns how many were failed.
func (sw *Sweeper) SweepOnce() int {
	cutoff := sw.svc.now().Add(-sw.ttl)
	stale, err := sw.svc.repo.ListStaleAttempts(
		[]string{models.PaymentProviderStripe, models.PaymentProviderRazorpay},
		[]string{models.AttemptStateCreatingOrder, models.AttemptStateAwaiting},
		cutoff,
		sweepBatch,
	)
	if err != nil {
		log.Errorf("[Sweeper] listing stale attempts failed: %v", err)
		return 0
	}

	n := 0
	for i := range stale {
		a := &stale[i]
		sw.svc.fail(a, models.FailureProviderInteraction, "abandoned")
		if a.State == models.AttemptStateFailed {
			n++
		}
	}
	if n > 0 {
		log.Infof("[Sweeper] failed %d abandoned attempts", n)
	}
	return n
}
