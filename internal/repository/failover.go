package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"salonbook/internal/domain"
	"salonbook/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverStateRepository prefers primary and serves from fallback while primary is failing,
// probing primary again once per recovery interval.
type FailoverStateRepository struct {
	primary  domain.StateRepository
	fallback domain.StateRepository
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverStateRepository(primary, fallback domain.StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{primary: primary, fallback: fallback, logger: logger}
}

func (r *FailoverStateRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) > recoveryInterval {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

func (r *FailoverStateRepository) run(op string, fn func(domain.StateRepository) error) error {
	if r.usePrimary() {
		err := fn(r.primary)
		if err == nil {
			if r.isDown.Swap(false) {
				r.logger.Info().Msg("Primary state repository recovered")
			}
			return nil
		}
		r.logger.Error().Err(err).Str("op", op).Msg("Primary state repository failed, falling back to memory")
		r.isDown.Store(true)
		r.mu.Lock()
		r.lastCheck = time.Now()
		r.mu.Unlock()
	}
	return fn(r.fallback)
}

func (r *FailoverStateRepository) GetState(ctx context.Context, userID int64) (*models.UserState, error) {
	var state *models.UserState
	err := r.run("get", func(repo domain.StateRepository) error {
		var err error
		state, err = repo.GetState(ctx, userID)
		return err
	})
	return state, err
}

func (r *FailoverStateRepository) SetState(ctx context.Context, state *models.UserState) error {
	return r.run("set", func(repo domain.StateRepository) error { return repo.SetState(ctx, state) })
}

func (r *FailoverStateRepository) ClearState(ctx context.Context, userID int64) error {
	return r.run("clear", func(repo domain.StateRepository) error { return repo.ClearState(ctx, userID) })
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	var allowed bool
	err := r.run("rate_limit", func(repo domain.StateRepository) error {
		var err error
		allowed, err = repo.CheckRateLimit(ctx, userID, limit, window)
		return err
	})
	return allowed, err
}
