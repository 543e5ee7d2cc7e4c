package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"docgpt/api/internal/diagnose"
)

// Memory keeps JSON snapshots so callers never share a *Workflow.
type Memory struct {
	ttl time.Duration
	now func() time.Time
	m   sync.Map // id -> memItem
}

type memItem struct {
	data     []byte
	lastSeen time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now}
}

func (s *Memory) Load(_ context.Context, id string) (*diagnose.Workflow, error) {
	v, ok := s.m.Load(id)
	if !ok {
		return nil, ErrNotFound
	}
	it := v.(memItem)
	if s.ttl > 0 && s.now().Sub(it.lastSeen) > s.ttl {
		s.m.Delete(id)
		return nil, ErrNotFound
	}
	var w diagnose.Workflow
	if err := json.Unmarshal(it.data, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *Memory) Save(_ context.Context, id string, w *diagnose.Workflow) error {
	b, err := json.Marshal(w)
	if err != nil {
		return err
	}
	s.m.Store(id, memItem{data: b, lastSeen: s.now()})
	return nil
}

func (s *Memory) Delete(_ context.Context, id string) error {
	s.m.Delete(id)
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (s *Memory) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	n := 0
	now := s.now()
	s.m.Range(func(k, v any) bool {
		if now.Sub(v.(memItem).lastSeen) > s.ttl {
			s.m.Delete(k)
			n++
		}
		return true
	})
	return n
}

// RunSweeper sweeps every interval until ctx is done.
func (s *Memory) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}
