package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// DefaultTTL is the inactivity window after which a session expires.
const DefaultTTL = time.Hour

// Record is the server-side session state. WinStreak here is authoritative.
type Record struct {
	SessionID       string    `json:"sessionId"`
	WinStreak       int       `json:"winStreak"`
	GamesPlayed     int       `json:"gamesPlayed"`
	DiscountClaimed bool      `json:"discountClaimed"`
	ClaimedAt       int64     `json:"claimedAt,omitempty"` // unix millis of the last claim
	CreatedAt       time.Time `json:"createdAt"`
	LastActivity    time.Time `json:"lastActivity"`
	IP              string    `json:"ip"`
}

// Store persists session records with an inactivity TTL.
type Store interface {
	// Create stores a new record. It fails if the id is taken.
	Create(ctx context.Context, rec Record, ttl time.Duration) error
	// Get returns the record or ErrSessionNotFound.
	Get(ctx context.Context, id string) (Record, error)
	// Update atomically applies fn to the stored record, saves the result
	// and refreshes the TTL. It returns ErrSessionNotFound for a missing id.
	Update(ctx context.Context, id string, ttl time.Duration, fn func(*Record) error) (Record, error)
}

// MemoryStore keeps sessions in process memory (dev/test use).
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	rec       Record
	expiresAt time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]memoryEntry), now: time.Now}
}

// Create implements Store.
func (m *MemoryStore) Create(_ context.Context, rec Record, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.records[rec.SessionID]; ok && m.now().Before(e.expiresAt) {
		return errors.New("session id already exists")
	}
	m.records[rec.SessionID] = memoryEntry{rec: rec, expiresAt: m.now().Add(ttl)}
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(id)
	if !ok {
		return Record{}, ErrSessionNotFound
	}
	return e.rec, nil
}

// Update implements Store.
func (m *MemoryStore) Update(_ context.Context, id string, ttl time.Duration, fn func(*Record) error) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(id)
	if !ok {
		return Record{}, ErrSessionNotFound
	}
	rec := e.rec
	if err := fn(&rec); err != nil {
		return Record{}, err
	}
	m.records[id] = memoryEntry{rec: rec, expiresAt: m.now().Add(ttl)}
	return rec, nil
}

// lookup returns a live entry, evicting it if expired. Assumes mu is held.
func (m *MemoryStore) lookup(id string) (memoryEntry, bool) {
	e, ok := m.records[id]
	if !ok {
		return memoryEntry{}, false
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.records, id)
		return memoryEntry{}, false
	}
	return e, true
}
