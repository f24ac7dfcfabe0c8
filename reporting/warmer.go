package reporting

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fthliqml/badminton-booking-system-api/booking"
)

// Warmer periodically recomputes today's dashboard so the first request
// after an invalidation or a day change is served from cache.
type Warmer struct {
	service  *Service
	interval time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	wg      sync.WaitGroup
	running bool
}

// NewWarmer returns a stopped warmer. A non-positive interval means one minute.
func NewWarmer(s *Service, interval time.Duration) *Warmer {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Warmer{service: s, interval: interval}
}

// Start runs one warm-up immediately, then one per interval. Calling Start
// on a running warmer does nothing.
func (w *Warmer) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.stop = make(chan struct{})
	w.wg.Add(1)
	go w.run(w.stop)
	w.service.log.Info("report warmer started", zap.Duration("interval", w.interval))
}

// Stop halts the loop and waits for an in-flight warm-up to finish.
func (w *Warmer) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.stop)
	w.wg.Wait()
	w.running = false
	w.service.log.Info("report warmer stopped")
}

func (w *Warmer) run(stop <-chan struct{}) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Warm(context.Background())
	for {
		select {
		case <-ticker.C:
			w.Warm(context.Background())
		case <-stop:
			return
		}
	}
}

// Warm computes and caches today's dashboard and daily summary. Failures
// are logged and the next tick retries.
func (w *Warmer) Warm(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()

	today := booking.Today(w.service.clock)
	if _, err := w.service.Dashboard(ctx, today); err != nil {
		w.service.log.Warn("dashboard warm-up failed", zap.Error(err))
		return
	}
	if _, err := w.service.DailySummary(ctx, today); err != nil {
		w.service.log.Warn("daily summary warm-up failed", zap.Error(err))
	}
}
