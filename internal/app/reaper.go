package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xuniversity/auth-service/internal/repository"
)

const reapTimeout = 30 * time.Second

// sessionReaper periodically deletes expired session rows. Lookups already
// exclude expired sessions, so the reaper only reclaims storage; skipped or
// failed runs are harmless.
type sessionReaper struct {
	sessions repository.SessionRepository
	interval time.Duration
	logger   *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func newSessionReaper(sessions repository.SessionRepository, interval time.Duration, logger *zap.Logger) *sessionReaper {
	return &sessionReaper{
		sessions: sessions,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the reap loop. A non-positive interval disables reaping.
func (r *sessionReaper) Start(ctx context.Context) {
	if r.interval <= 0 {
		close(r.done)
		return
	}

	go func() {
		defer close(r.done)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.reap(ctx)
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			}
		}
	}()
}

// Stop terminates the loop and waits for an in-flight run to finish
func (r *sessionReaper) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

func (r *sessionReaper) reap(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, reapTimeout)
	defer cancel()

	deleted, err := r.sessions.DeleteExpired(ctx, time.Now())
	if err != nil {
		r.logger.Warn("Session reap failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		r.logger.Info("Expired sessions reaped", zap.Int64("deleted", deleted))
	}
}
