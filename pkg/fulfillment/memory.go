package fulfillment

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/systechdigital/redemption-platform/pkg/common/models"
)

// MemoryStore is an in-memory implementation of ClaimStore, SalesStore and
// KeyStore with the same atomicity guarantees as the database-backed
// repositories. It backs the test suite and local development.
type MemoryStore struct {
	mu     sync.Mutex
	claims map[string]models.Claim
	sales  map[string]models.SalesRecord
	keys   map[string]models.Key
	order  []string // key insertion order, keeps Reserve deterministic
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		claims: make(map[string]models.Claim),
		sales:  make(map[string]models.SalesRecord),
		keys:   make(map[string]models.Key),
	}
}

func (m *MemoryStore) PutClaim(c models.Claim) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims[c.ClaimID] = c
}

func (m *MemoryStore) PutSalesRecord(r models.SalesRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sales[r.ActivationCode] = r
}

func (m *MemoryStore) PutKey(k models.Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.keys[k.ID]; !exists {
		m.order = append(m.order, k.ID)
	}
	m.keys[k.ID] = k
}

// ClaimStore

func (m *MemoryStore) ListEligible(ctx context.Context, limit int) ([]models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Claim
	for _, c := range m.claims {
		if c.Eligible() {
			out = append(out, c)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MemoryStore) Get(ctx context.Context, claimID string) (models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[claimID]
	if !ok {
		return models.Claim{}, ErrClaimNotFound
	}
	return c, nil
}

func (m *MemoryStore) SetStatus(ctx context.Context, claimID string, status models.ClaimOTTStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[claimID]
	if !ok {
		return ErrClaimNotFound
	}
	c.OTTStatus = status
	c.UpdatedAt = time.Now().UTC()
	m.claims[claimID] = c
	return nil
}

func (m *MemoryStore) MarkDelivered(ctx context.Context, claimID, ottCode, platform string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[claimID]
	if !ok {
		return ErrClaimNotFound
	}
	c.OTTStatus = models.OTTDelivered
	c.OTTCode = ottCode
	c.Platform = platform
	c.UpdatedAt = time.Now().UTC()
	m.claims[claimID] = c
	return nil
}

// SalesStore

func (m *MemoryStore) FindExact(ctx context.Context, code string) (models.SalesRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.sales[code]
	if !ok {
		return models.SalesRecord{}, ErrCodeNotFound
	}
	return r, nil
}

func (m *MemoryStore) FindFold(ctx context.Context, code string) (models.SalesRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for c, r := range m.sales {
		if strings.EqualFold(c, code) {
			return r, nil
		}
	}
	return models.SalesRecord{}, ErrCodeNotFound
}

func (m *MemoryStore) All(ctx context.Context) ([]models.SalesRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.SalesRecord, 0, len(m.sales))
	for _, r := range m.sales {
		out = append(out, r)
	}
	return out, nil
}

func (m *MemoryStore) Claim(ctx context.Context, code, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.sales[code]
	if !ok || r.Status != models.SalesAvailable {
		return false, nil
	}
	now := time.Now().UTC()
	r.Status = models.SalesClaimed
	r.ClaimedBy = email
	r.ClaimedAt = &now
	m.sales[code] = r
	return true, nil
}

func (m *MemoryStore) Release(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.sales[code]
	if !ok {
		return ErrCodeNotFound
	}
	r.Status = models.SalesAvailable
	r.ClaimedBy = ""
	r.ClaimedAt = nil
	m.sales[code] = r
	return nil
}

// KeyStore

func (m *MemoryStore) Reserve(ctx context.Context, product, email string) (models.Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		k := m.keys[id]
		if k.Status != models.KeyAvailable {
			continue
		}
		if product != "" && !strings.EqualFold(k.Product, product) {
			continue
		}
		now := time.Now().UTC()
		k.Status = models.KeyAssigned
		k.AssignedEmail = email
		k.AssignedAt = &now
		m.keys[id] = k
		return k, nil
	}
	return models.Key{}, ErrExhausted
}

func (m *MemoryStore) ReleaseKey(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[id]
	if !ok {
		return ErrExhausted
	}
	k.Status = models.KeyAvailable
	k.AssignedEmail = ""
	k.AssignedAt = nil
	m.keys[id] = k
	return nil
}

// Keys returns the store's KeyStore view. A separate view is needed because
// SalesStore and KeyStore both name their rollback method Release.
func (m *MemoryStore) Keys() KeyStore {
	return memKeyStore{m}
}

type memKeyStore struct {
	*MemoryStore
}

func (s memKeyStore) Release(ctx context.Context, id string) error {
	return s.ReleaseKey(ctx, id)
}

// SalesRecord returns a copy of the stored record, for assertions.
func (m *MemoryStore) SalesRecord(code string) (models.SalesRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.sales[code]
	return r, ok
}

// Key returns a copy of the stored key, for assertions.
func (m *MemoryStore) Key(id string) (models.Key, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[id]
	return k, ok
}

// Claim returns a copy of the stored claim, for assertions.
func (m *MemoryStore) ClaimByID(id string) (models.Claim, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	return c, ok
}

// MemoryLocker is a process-local Locker with the same expiry behavior as
// the redis implementation.
type MemoryLocker struct {
	mu      sync.Mutex
	held    bool
	expires time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{}
}

func (l *MemoryLocker) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if l.held && now.Before(l.expires) {
		return false, nil
	}
	l.held = true
	l.expires = now.Add(ttl)
	return true, nil
}

func (l *MemoryLocker) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}
