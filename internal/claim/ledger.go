package claim

import (
	"context"
	"sync"
)

// Ledger records which normalized-email hashes have claimed a discount.
// Entries are permanent; Release exists only to undo a reservation whose
// email could not be delivered.
type Ledger interface {
	// Reserve inserts hash if absent and reports whether this call inserted it.
	Reserve(ctx context.Context, hash string) (bool, error)
	// Release removes a reservation.
	Release(ctx context.Context, hash string) error
	// Has reports whether hash has claimed.
	Has(ctx context.Context, hash string) (bool, error)
}

// MemoryLedger keeps claims in process memory (dev/test use).
type MemoryLedger struct {
	mu     sync.Mutex
	hashes map[string]struct{}
}

// NewMemoryLedger returns an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{hashes: make(map[string]struct{})}
}

// Reserve implements Ledger.
func (l *MemoryLedger) Reserve(_ context.Context, hash string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.hashes[hash]; ok {
		return false, nil
	}
	l.hashes[hash] = struct{}{}
	return true, nil
}

// Release implements Ledger.
func (l *MemoryLedger) Release(_ context.Context, hash string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.hashes, hash)
	return nil
}

// Has implements Ledger.
func (l *MemoryLedger) Has(_ context.Context, hash string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.hashes[hash]
	return ok, nil
}
