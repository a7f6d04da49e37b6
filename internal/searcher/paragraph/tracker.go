package paragraph

import (
	"context"
	"sync"
)

// Token identifies one search generation. The zero Token is never stale,
// so untracked callers can pass it freely.
type Token struct {
	tracker *Tracker
	gen     uint64
}

// Current reports whether no newer search has begun on the same tracker.
func (t Token) Current() bool {
	if t.tracker == nil {
		return true
	}
	return t.tracker.current(t.gen)
}

// Tracker hands out generation tokens for one search session. Starting a
// search cancels the previous one's context and makes its token stale.
type Tracker struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Begin starts a new generation derived from ctx.
func (t *Tracker) Begin(ctx context.Context) (context.Context, Token) {
	ctx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	t.gen++
	t.cancel = cancel
	return ctx, Token{tracker: t, gen: t.gen}
}

// End releases the context of tok if it is still the latest generation.
func (t *Tracker) End(tok Token) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tok.gen == t.gen && t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

func (t *Tracker) current(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return gen == t.gen
}
