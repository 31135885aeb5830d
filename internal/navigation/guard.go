// Package navigation guards screens that hold unsaved wizard input.
package navigation

import (
	"sync"
)

type Decision int

const (
	Allow Decision = iota
	Confirm
)

func (d Decision) String() string {
	if d == Confirm {
		return "confirm"
	}
	return "allow"
}

type lock struct {
	reason  string
	pending string // target awaiting confirmation
}

// Guard tracks one lock per user. Leaving a locked screen requires explicit confirmation.
type Guard struct {
	mu    sync.Mutex
	locks map[int64]*lock
}

func NewGuard() *Guard {
	return &Guard{locks: make(map[int64]*lock)}
}

// Lock marks the user's current screen as holding unsaved input.
func (g *Guard) Lock(userID int64, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if l, ok := g.locks[userID]; ok {
		l.reason = reason
		return
	}
	g.locks[userID] = &lock{reason: reason}
}

func (g *Guard) Unlock(userID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.locks, userID)
}

// Locked returns the lock reason.
func (g *Guard) Locked(userID int64) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[userID]
	if !ok {
		return "", false
	}
	return l.reason, true
}

// Attempt asks to navigate to target. On Confirm the returned reason describes the unsaved input
// and target is remembered until Resolve.
func (g *Guard) Attempt(userID int64, target string) (Decision, string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[userID]
	if !ok {
		return Allow, ""
	}
	l.pending = target
	return Confirm, l.reason
}

// Resolve answers a pending confirmation. Leaving drops the lock and returns the remembered target;
// staying keeps the lock.
func (g *Guard) Resolve(userID int64, leave bool) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[userID]
	if !ok || l.pending == "" {
		return "", false
	}
	target := l.pending
	l.pending = ""
	if !leave {
		return "", false
	}
	delete(g.locks, userID)
	return target, true
}
