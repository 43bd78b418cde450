package validator

import (
	"context"
	"sync"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"
)

type slot struct {
	gen    uint64
	cancel context.CancelFunc
}

// Inflight keeps at most one live call per key. Starting a call cancels the
// previous call for the same key.
type Inflight struct {
	mu    sync.Mutex
	slots map[string]*slot
}

func NewInflight() *Inflight {
	return &Inflight{slots: make(map[string]*slot)}
}

func (f *Inflight) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	f.mu.Lock()
	s, ok := f.slots[key]
	if !ok {
		s = &slot{}
		f.slots[key] = s
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.cancel = cancel
	f.mu.Unlock()

	err := fn(ctx)

	f.mu.Lock()
	superseded := s.gen != gen
	if !superseded {
		delete(f.slots, key)
	}
	f.mu.Unlock()

	if superseded {
		return models.ErrSuperseded
	}
	return err
}
