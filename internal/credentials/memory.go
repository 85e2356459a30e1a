package credentials

import (
	"context"
	"sync"
)

// MemoryStore keeps staff and shopper records per schema. It backs dev
// deployments without DATABASE_URL and the tests.
type MemoryStore struct {
	router SchemaRouter

	mu       sync.RWMutex
	staff    map[string]map[string]StaffRecord
	shoppers map[string]map[string]ShopperRecord
}

func NewMemoryStore(router SchemaRouter) *MemoryStore {
	return &MemoryStore{
		router:   router,
		staff:    map[string]map[string]StaffRecord{},
		shoppers: map[string]map[string]ShopperRecord{},
	}
}

// PutStaff stores rec in schema, replacing an existing record.
func (m *MemoryStore) PutStaff(schema string, rec StaffRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.staff[schema] == nil {
		m.staff[schema] = map[string]StaffRecord{}
	}
	m.staff[schema][rec.Username] = rec
}

// PutShopper stores rec in schema, replacing an existing record.
func (m *MemoryStore) PutShopper(schema string, rec ShopperRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shoppers[schema] == nil {
		m.shoppers[schema] = map[string]ShopperRecord{}
	}
	m.shoppers[schema][rec.Username] = rec
}

func (m *MemoryStore) FindStaffByUsername(ctx context.Context, username string) (StaffRecord, error) {
	schema, err := m.router.RouteForCurrentRequest(ctx)
	if err != nil {
		return StaffRecord{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.staff[schema][username]
	if !ok {
		return StaffRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemoryStore) FindShopperByUsername(ctx context.Context, username string) (ShopperRecord, error) {
	schema, err := m.router.RouteForCurrentRequest(ctx)
	if err != nil {
		return ShopperRecord{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.shoppers[schema][username]
	if !ok {
		return ShopperRecord{}, ErrNotFound
	}
	return rec, nil
}
