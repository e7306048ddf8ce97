package lock

import (
	"context"
	"sync"
	"time"

	"github.com/eslsoft/storyquest/internal/entity"
	"github.com/eslsoft/storyquest/internal/infrastructure/metrics"
	"github.com/eslsoft/storyquest/internal/usecase"
)

// MemoryGuard keeps generation locks in process. Suitable for a single instance.
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]memoryLease
	now  func() time.Time
	seq  uint64
}

type memoryLease struct {
	id        uint64
	expiresAt time.Time
}

var _ usecase.GenerationGuard = (*MemoryGuard)(nil)

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{held: make(map[string]memoryLease), now: time.Now}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string, ttl time.Duration) (usecase.Lease, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if lease, ok := g.held[key]; ok && now.Before(lease.expiresAt) {
		metrics.GuardContention.Inc()
		return nil, entity.ErrGenerationInProgress
	}
	g.seq++
	g.held[key] = memoryLease{id: g.seq, expiresAt: now.Add(ttl)}
	return &memoryHandle{guard: g, key: key, id: g.seq}, nil
}

type memoryHandle struct {
	guard *MemoryGuard
	key   string
	id    uint64
}

func (h *memoryHandle) Extend(_ context.Context, ttl time.Duration) error {
	g := h.guard
	g.mu.Lock()
	defer g.mu.Unlock()
	cur, ok := g.held[h.key]
	now := g.now()
	if !ok || cur.id != h.id || !now.Before(cur.expiresAt) {
		return usecase.ErrLeaseLost
	}
	cur.expiresAt = now.Add(ttl)
	g.held[h.key] = cur
	return nil
}

func (h *memoryHandle) Release(context.Context) error {
	g := h.guard
	g.mu.Lock()
	defer g.mu.Unlock()
	if cur, ok := g.held[h.key]; ok && cur.id == h.id {
		delete(g.held, h.key)
	}
	return nil
}
