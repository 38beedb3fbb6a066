// Package janitor evicts pending registrations whose backstop deadline passed
// from stores that do not expire records on their own.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/anonbox/internal/metrics"
	"github.com/robfig/cron/v3"
)

// Sweeper is satisfied by *memory.PendingStore.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

type Janitor struct {
	store  Sweeper
	spec   string
	logger *slog.Logger
	now    func() time.Time
}

func New(store Sweeper, spec string, logger *slog.Logger) *Janitor {
	return &Janitor{
		store:  store,
		spec:   spec,
		logger: logger.With("component", "janitor"),
		now:    time.Now,
	}
}

// Start runs sweeps on the cron schedule until ctx is cancelled, then waits for
// any in-flight sweep to finish.
func (j *Janitor) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(j.spec, func() { j.Sweep(ctx) }); err != nil {
		return fmt.Errorf("schedule janitor %q: %w", j.spec, err)
	}

	j.logger.Info("janitor started", "spec", j.spec)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	j.logger.Info("janitor shut down")
	return nil
}

// Sweep runs one eviction cycle and returns the number of records removed.
func (j *Janitor) Sweep(ctx context.Context) int {
	start := time.Now()
	defer func() {
		metrics.JanitorCycleDuration.Observe(time.Since(start).Seconds())
	}()

	n, err := j.store.Sweep(ctx, j.now())
	if err != nil {
		j.logger.Error("sweep pending registrations", "error", err)
		return 0
	}
	if n > 0 {
		metrics.PendingSweptTotal.Add(float64(n))
		j.logger.Info("evicted abandoned registrations", "count", n)
	}
	return n
}
