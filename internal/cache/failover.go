package cache

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverStore serves from primary and falls back to a local store while primary is failing.
// Invalidations that could not reach primary are replayed on it before it serves again.
type FailoverStore struct {
	primary  Store
	fallback Store
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time

	pendingKeys   map[string]struct{}
	pendingScopes map[string]struct{}
}

func NewFailoverStore(primary, fallback Store, logger *zerolog.Logger) *FailoverStore {
	return &FailoverStore{
		primary:       primary,
		fallback:      fallback,
		logger:        logger,
		pendingKeys:   make(map[string]struct{}),
		pendingScopes: make(map[string]struct{}),
	}
}

func (s *FailoverStore) markDown(err error) {
	s.logger.Error().Err(err).Msg("Primary cache failed, falling back to memory")
	s.isDown.Store(true)
	s.mu.Lock()
	s.lastCheck = time.Now()
	s.mu.Unlock()
}

// usePrimary reports whether primary should be tried, allowing one probe per recovery interval.
func (s *FailoverStore) usePrimary() bool {
	if !s.isDown.Load() {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Since(s.lastCheck) > recoveryInterval {
		s.lastCheck = time.Now()
		return true
	}
	return false
}

// run reports whether primary served the call.
func (s *FailoverStore) run(ctx context.Context, fn func(Store) error) (bool, error) {
	if s.usePrimary() {
		err := s.onPrimary(ctx, fn)
		if err == nil {
			return true, nil
		}
		s.markDown(err)
	}
	return false, fn(s.fallback)
}

func (s *FailoverStore) onPrimary(ctx context.Context, fn func(Store) error) error {
	if s.isDown.Load() {
		if err := s.replay(ctx); err != nil {
			return err
		}
	}
	if err := fn(s.primary); err != nil {
		return err
	}
	if s.isDown.Swap(false) {
		s.logger.Info().Msg("Primary cache recovered")
	}
	return nil
}

func (s *FailoverStore) remember(keys []string, scope string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		s.pendingKeys[k] = struct{}{}
	}
	if scope != "" {
		s.pendingScopes[scope] = struct{}{}
	}
}

// replay applies the invalidations missed while primary was down. On failure the
// unapplied ones are kept for the next probe.
func (s *FailoverStore) replay(ctx context.Context) error {
	s.mu.Lock()
	keys, scopes := s.pendingKeys, s.pendingScopes
	s.pendingKeys, s.pendingScopes = make(map[string]struct{}), make(map[string]struct{})
	s.mu.Unlock()

	restore := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for k := range keys {
			s.pendingKeys[k] = struct{}{}
		}
		for sc := range scopes {
			s.pendingScopes[sc] = struct{}{}
		}
	}

	if len(keys) > 0 {
		list := make([]string, 0, len(keys))
		for k := range keys {
			list = append(list, k)
		}
		sort.Strings(list)
		if err := s.primary.Invalidate(ctx, list...); err != nil {
			restore()
			return err
		}
		keys = nil
	}
	for sc := range scopes {
		if err := s.primary.DropScope(ctx, sc); err != nil {
			restore()
			return err
		}
		delete(scopes, sc)
	}
	return nil
}

func (s *FailoverStore) Get(ctx context.Context, scope, key string, out interface{}) (bool, error) {
	var found bool
	_, err := s.run(ctx, func(st Store) error {
		var err error
		found, err = st.Get(ctx, scope, key, out)
		return err
	})
	return found, err
}

func (s *FailoverStore) Set(ctx context.Context, scope, key string, val interface{}) error {
	_, err := s.run(ctx, func(st Store) error { return st.Set(ctx, scope, key, val) })
	return err
}

// Invalidate and DropScope clear the fallback as well as the active store.
func (s *FailoverStore) Invalidate(ctx context.Context, keys ...string) error {
	_ = s.fallback.Invalidate(ctx, keys...)
	served, err := s.run(ctx, func(st Store) error { return st.Invalidate(ctx, keys...) })
	if !served {
		s.remember(keys, "")
	}
	return err
}

func (s *FailoverStore) DropScope(ctx context.Context, scope string) error {
	_ = s.fallback.DropScope(ctx, scope)
	served, err := s.run(ctx, func(st Store) error { return st.DropScope(ctx, scope) })
	if !served {
		s.remember(nil, scope)
	}
	return err
}
