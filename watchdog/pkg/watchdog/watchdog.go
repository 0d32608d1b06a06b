// Package watchdog periodically sweeps for epochs whose scheduled end time
// has passed and closes them through the ledger engine. The engine tolerates
// sweeps that race an explicit close, so the loop can run anywhere without
// coordination.
package watchdog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/norugfun/ledger/ledger/pkg/store"
	"github.com/norugfun/ledger/utils/pkg/retry"
)

// Ledger is the slice of the engine the watchdog drives.
type Ledger interface {
	DueEpochs(ctx context.Context) ([]store.EpochRecord, error)
	AutoCheckAndClose(ctx context.Context, epochID uint64) (bool, error)
}

type Config struct {
	Logger        *slog.Logger
	Clock         clockwork.Clock
	Ledger        Ledger
	SweepInterval time.Duration

	// SubmitRate bounds how fast close submissions are issued within one
	// sweep, so a large backlog does not stampede the store.
	SubmitRate  rate.Limit
	SubmitBurst int

	Retry retry.Config
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Ledger == nil {
		return errors.New("ledger is required")
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.SubmitRate == 0 {
		cfg.SubmitRate = rate.Every(50 * time.Millisecond)
	}
	if cfg.SubmitBurst <= 0 {
		cfg.SubmitBurst = 5
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	return nil
}

type Watchdog struct {
	log     *slog.Logger
	cfg     Config
	limiter *rate.Limiter
	sweepMu sync.Mutex

	readyOnce sync.Once
	readyCh   chan struct{}
}

func New(cfg Config) (*Watchdog, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Watchdog{
		log:     cfg.Logger,
		cfg:     cfg,
		limiter: rate.NewLimiter(cfg.SubmitRate, cfg.SubmitBurst),
		readyCh: make(chan struct{}),
	}, nil
}

func (w *Watchdog) Ready() bool {
	select {
	case <-w.readyCh:
		return true
	default:
		return false
	}
}

func (w *Watchdog) WaitReady(ctx context.Context) error {
	select {
	case <-w.readyCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while waiting for watchdog: %w", ctx.Err())
	}
}

func (w *Watchdog) Start(ctx context.Context) {
	go func() {
		w.log.Info("watchdog: starting sweep loop", "interval", w.cfg.SweepInterval)

		w.safeSweep(ctx)

		ticker := w.cfg.Clock.NewTicker(w.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				w.safeSweep(ctx)
			}
		}
	}()
}

func (w *Watchdog) safeSweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("watchdog: sweep panicked", "panic", r)
			SweepsTotal.WithLabelValues("panic").Inc()
		}
	}()

	if err := w.Sweep(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		w.log.Error("watchdog: sweep failed", "error", err)
	}
}

// Sweep closes every epoch whose end time has passed. Epochs another caller
// closed between listing and submission are skipped, not errors.
func (w *Watchdog) Sweep(ctx context.Context) error {
	w.sweepMu.Lock()
	defer w.sweepMu.Unlock()

	sweepStart := w.cfg.Clock.Now()
	w.log.Debug("watchdog: sweep started")
	defer func() {
		duration := w.cfg.Clock.Since(sweepStart)
		SweepDuration.Observe(duration.Seconds())
		w.readyOnce.Do(func() { close(w.readyCh) })
	}()

	due, err := w.cfg.Ledger.DueEpochs(ctx)
	if err != nil {
		SweepsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to list due epochs: %w", err)
	}

	var closed, skipped int
	for _, epoch := range due {
		if err := w.limiter.Wait(ctx); err != nil {
			return err
		}

		var didClose bool
		err := retry.Do(ctx, w.cfg.Retry, func() error {
			var err error
			didClose, err = w.cfg.Ledger.AutoCheckAndClose(ctx, epoch.EpochID)
			return err
		})
		if err != nil {
			SweepsTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("failed to close epoch %d: %w", epoch.EpochID, err)
		}

		if didClose {
			closed++
			EpochsClosedTotal.Inc()
			w.log.Info("watchdog: closed epoch", "epoch_id", epoch.EpochID)
		} else {
			skipped++
		}
	}

	SweepsTotal.WithLabelValues("success").Inc()
	if closed > 0 || skipped > 0 {
		w.log.Info("watchdog: sweep completed", "closed", closed, "skipped", skipped)
	}
	return nil
}
