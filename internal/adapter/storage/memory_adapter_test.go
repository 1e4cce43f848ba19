package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biosales/agent-sales/internal/core/domain"
)

func testTime(sec int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, sec, 0, time.UTC)
}

func seedItem(t *testing.T, store *MemoryStockStore, id string, quantity int) {
	t.Helper()
	err := store.Create(context.Background(), &domain.StockItem{
		ID:        id,
		Name:      "item",
		Quantity:  quantity,
		UnitPrice: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
}

func TestMemoryTryDecrement(t *testing.T) {
	store := NewMemoryStockStore()
	seedItem(t, store, "item-1", 10)
	ctx := context.Background()

	newQuantity, err := store.TryDecrement(ctx, "item-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 7, newQuantity)

	_, err = store.TryDecrement(ctx, "item-1", 8)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	item, err := store.Get(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, 7, item.Quantity, "failed decrement must not mutate")

	_, err = store.TryDecrement(ctx, "missing", 1)
	assert.ErrorIs(t, err, domain.ErrStockNotFound)
}

func TestMemoryTryDecrement_Concurrent(t *testing.T) {
	store := NewMemoryStockStore()
	seedItem(t, store, "item-1", 7)
	ctx := context.Background()

	// Two concurrent decrements of 5 against 7: exactly one may win.
	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.TryDecrement(ctx, "item-1", 5); err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successCount.Load())

	item, err := store.Get(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)
}

func TestMemoryRestore(t *testing.T) {
	store := NewMemoryStockStore()
	seedItem(t, store, "item-1", 5)
	ctx := context.Background()

	_, err := store.TryDecrement(ctx, "item-1", 5)
	require.NoError(t, err)

	require.NoError(t, store.Restore(ctx, "item-1", 5))

	item, err := store.Get(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)

	assert.ErrorIs(t, store.Restore(ctx, "missing", 1), domain.ErrStockNotFound)
}

func TestMemoryTransactionLog_Ordering(t *testing.T) {
	log := NewMemoryTransactionLog()
	ctx := context.Background()

	for i, id := range []string{"c", "a", "b"} {
		require.NoError(t, log.Append(ctx, domain.SaleTransaction{
			ID:        id,
			StockID:   "item-1",
			Quantity:  1,
			Timestamp: testTime(3 - i),
		}))
	}

	txs, err := log.ListByStock(ctx, "item-1")
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, "b", txs[0].ID)
	assert.Equal(t, "a", txs[1].ID)
	assert.Equal(t, "c", txs[2].ID)

	other, err := log.ListByStock(ctx, "item-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMemoryIdempotencyStore(t *testing.T) {
	store := NewMemoryIdempotencyStore()
	ctx := context.Background()

	ok, err := store.SetIdempotency(ctx, "req-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SetIdempotency(ctx, "req-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryAgentStore(t *testing.T) {
	store := NewMemoryAgentStore()
	ctx := context.Background()

	agent := domain.Agent{ID: "a-1", Name: "Jo", Email: "jo@example.com", Role: "agent"}
	require.NoError(t, store.Create(ctx, &agent))

	got, err := store.GetByEmail(ctx, "jo@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a-1", got.ID)

	_, err = store.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrAgentNotFound)

	agents, err := store.List(ctx, "agent")
	require.NoError(t, err)
	assert.Len(t, agents, 1)

	require.NoError(t, store.Delete(ctx, "a-1"))
	assert.ErrorIs(t, store.Delete(ctx, "a-1"), domain.ErrAgentNotFound)
}
