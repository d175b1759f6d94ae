package mutations

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/wayfarer-travel/wayfarer-api/internal/ports/out/clock"
)

// Sweeper is the slice of the ledger store the reaper needs.
type Sweeper interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// Reaper deletes ledger records older than the TTL on a fixed interval.
// Expiry is advisory cleanup: an expired key becomes eligible for reuse,
// which is safe because the client is assumed to have abandoned it.
type Reaper struct {
	sweeper  Sweeper
	ttl      time.Duration
	interval time.Duration
	clock    clock.Clock
	log      *slog.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewReaper(sweeper Sweeper, ttl, interval time.Duration, clk clock.Clock, log *slog.Logger) *Reaper {
	if log == nil {
		log = slog.Default()
	}
	return &Reaper{
		sweeper:  sweeper,
		ttl:      ttl,
		interval: interval,
		clock:    clk,
		log:      log,
	}
}

// Start launches the background sweep loop. Calling Start on a running
// reaper is a no-op.
func (r *Reaper) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		return
	}
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.run(r.stop, r.done)
}

// Stop terminates the loop and waits for an in-flight sweep to finish.
func (r *Reaper) Stop() {
	r.mu.Lock()
	stop, done := r.stop, r.done
	r.stop, r.done = nil, nil
	r.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (r *Reaper) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := r.SweepOnce(context.Background()); err != nil {
				r.log.Error("ledger sweep failed", "error", err)
			}
		}
	}
}

// SweepOnce deletes records created before now minus the TTL.
func (r *Reaper) SweepOnce(ctx context.Context) (int64, error) {
	cutoff := r.clock.Now().UTC().Add(-r.ttl)
	n, err := r.sweeper.DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.log.Info("ledger sweep", "deleted", n, "cutoff", cutoff)
	}
	return n, nil
}
