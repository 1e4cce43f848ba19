package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/biosales/agent-sales/internal/core/domain"
)

// MemoryStockStore is an in-memory StockStore for tests and dev mode.
// TryDecrement performs its check and write under one lock, giving the same
// atomicity guarantee as the MySQL conditional update.
type MemoryStockStore struct {
	mu    sync.RWMutex
	items map[string]domain.StockItem
}

func NewMemoryStockStore() *MemoryStockStore {
	return &MemoryStockStore{items: make(map[string]domain.StockItem)}
}

func (m *MemoryStockStore) Create(_ context.Context, item *domain.StockItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = *item
	return nil
}

func (m *MemoryStockStore) Get(_ context.Context, id string) (*domain.StockItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return nil, domain.ErrStockNotFound
	}
	return &item, nil
}

func (m *MemoryStockStore) List(_ context.Context) ([]domain.StockItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]domain.StockItem, 0, len(m.items))
	for _, item := range m.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

func (m *MemoryStockStore) Update(_ context.Context, item *domain.StockItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.items[item.ID]
	if !ok {
		return domain.ErrStockNotFound
	}
	existing.Name = item.Name
	existing.Quantity = item.Quantity
	existing.UnitPrice = item.UnitPrice
	existing.UpdatedAt = time.Now().UTC()
	m.items[item.ID] = existing
	return nil
}

func (m *MemoryStockStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return domain.ErrStockNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *MemoryStockStore) TryDecrement(_ context.Context, id string, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return 0, domain.ErrStockNotFound
	}
	if item.Quantity < amount {
		return 0, domain.ErrInsufficientStock
	}
	item.Quantity -= amount
	item.UpdatedAt = time.Now().UTC()
	m.items[id] = item
	return item.Quantity, nil
}

func (m *MemoryStockStore) Restore(_ context.Context, id string, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return domain.ErrStockNotFound
	}
	item.Quantity += amount
	item.UpdatedAt = time.Now().UTC()
	m.items[id] = item
	return nil
}

// MemoryTransactionLog is an in-memory append-only transaction log.
type MemoryTransactionLog struct {
	mu  sync.RWMutex
	txs []domain.SaleTransaction
}

func NewMemoryTransactionLog() *MemoryTransactionLog {
	return &MemoryTransactionLog{}
}

func (m *MemoryTransactionLog) Append(_ context.Context, tx domain.SaleTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs = append(m.txs, tx)
	return nil
}

func (m *MemoryTransactionLog) ListByStock(_ context.Context, stockID string) ([]domain.SaleTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []domain.SaleTransaction
	for _, tx := range m.txs {
		if tx.StockID == stockID {
			result = append(result, tx)
		}
	}
	sortByTimestamp(result)
	return result, nil
}

func (m *MemoryTransactionLog) ListAll(_ context.Context) ([]domain.SaleTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]domain.SaleTransaction, len(m.txs))
	copy(result, m.txs)
	sortByTimestamp(result)
	return result, nil
}

func sortByTimestamp(txs []domain.SaleTransaction) {
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Timestamp.Before(txs[j].Timestamp) })
}

// MemoryAgentStore is an in-memory AgentStore.
type MemoryAgentStore struct {
	mu     sync.RWMutex
	agents map[string]domain.Agent
}

func NewMemoryAgentStore() *MemoryAgentStore {
	return &MemoryAgentStore{agents: make(map[string]domain.Agent)}
}

func (m *MemoryAgentStore) Create(_ context.Context, agent *domain.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents[agent.ID] = *agent
	return nil
}

func (m *MemoryAgentStore) GetByEmail(_ context.Context, email string) (*domain.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, agent := range m.agents {
		if agent.Email == email {
			a := agent
			return &a, nil
		}
	}
	return nil, domain.ErrAgentNotFound
}

func (m *MemoryAgentStore) List(_ context.Context, role string) ([]domain.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var agents []domain.Agent
	for _, agent := range m.agents {
		if role == "" || agent.Role == role {
			agents = append(agents, agent)
		}
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].CreatedAt.Before(agents[j].CreatedAt) })
	return agents, nil
}

func (m *MemoryAgentStore) Update(_ context.Context, agent *domain.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.agents[agent.ID]
	if !ok {
		return domain.ErrAgentNotFound
	}
	existing.Name = agent.Name
	existing.Email = agent.Email
	existing.NationalID = agent.NationalID
	existing.Role = agent.Role
	existing.PasswordHash = agent.PasswordHash
	m.agents[agent.ID] = existing
	return nil
}

func (m *MemoryAgentStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[id]; !ok {
		return domain.ErrAgentNotFound
	}
	delete(m.agents, id)
	return nil
}

// MemoryIdempotencyStore is an in-memory duplicate-request gate.
type MemoryIdempotencyStore struct {
	mu   sync.Mutex
	seen map[string]bool
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{seen: make(map[string]bool)}
}

func (m *MemoryIdempotencyStore) SetIdempotency(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}
