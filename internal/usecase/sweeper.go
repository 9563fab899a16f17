package usecase

import (
	"context"
	"log/slog"
	"time"

	"PageVault/internal/ports"
)

// Sweeper reconciles rows stuck at PENDING/PROCESSING: a crash between
// the placeholder insert and the completing update leaves them behind
// forever, so they are flipped to FAILED once older than the TTL.
type Sweeper struct {
	repository ports.ItemRepository
	interval   time.Duration
	ttl        time.Duration
	logger     *slog.Logger
	stop       chan struct{}
}

// NewSweeper builds a sweeper with the given cadence and staleness bound.
func NewSweeper(repo ports.ItemRepository, interval, ttl time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		repository: repo,
		interval:   interval,
		ttl:        ttl,
		logger:     logger,
	}
}

// Start launches the periodic sweep until ctx is done or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	if s.repository == nil || s.interval <= 0 {
		return
	}
	if s.stop != nil {
		return
	}

	s.stop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep(ctx)
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop halts the sweep goroutine.
func (s *Sweeper) Stop() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	s.stop = nil
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.ttl)
	swept, err := s.repository.FailStale(ctx, cutoff)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("sweep stale items", "error", err)
		}
		return
	}
	if swept > 0 && s.logger != nil {
		s.logger.Info("swept stale items", "count", swept, "older_than", cutoff)
	}
}
