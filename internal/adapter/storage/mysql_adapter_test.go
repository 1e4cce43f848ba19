package storage

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/biosales/agent-sales/internal/core/domain"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/agent_sales?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	return db
}

func createTestItem(t *testing.T, store *MySQLStockStore, quantity int) string {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	item := domain.StockItem{
		ID:        uuid.NewString(),
		Name:      "test-item",
		Quantity:  quantity,
		UnitPrice: decimal.NewFromInt(50),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.Create(ctx, &item); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	t.Cleanup(func() {
		store.db.ExecContext(ctx, `DELETE FROM transactions WHERE stock_id = ?`, item.ID)
		store.Delete(ctx, item.ID)
	})
	return item.ID
}

func TestMySQLTryDecrement_Success(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewMySQLStockStore(db)
	id := createTestItem(t, store, 10)

	newQuantity, err := store.TryDecrement(ctx, id, 3)
	if err != nil {
		t.Fatalf("TryDecrement failed: %v", err)
	}
	if newQuantity != 7 {
		t.Errorf("expected new quantity 7, got %d", newQuantity)
	}

	item, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if item.Quantity != 7 {
		t.Errorf("expected quantity 7, got %d", item.Quantity)
	}
}

func TestMySQLTryDecrement_InsufficientStock(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewMySQLStockStore(db)
	id := createTestItem(t, store, 2)

	_, err := store.TryDecrement(ctx, id, 3)
	if err != domain.ErrInsufficientStock {
		t.Errorf("expected ErrInsufficientStock, got %v", err)
	}

	item, _ := store.Get(ctx, id)
	if item.Quantity != 2 {
		t.Errorf("failed decrement must not mutate, got quantity %d", item.Quantity)
	}
}

func TestMySQLTryDecrement_NotFound(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	store := NewMySQLStockStore(db)

	_, err := store.TryDecrement(context.Background(), uuid.NewString(), 1)
	if err != domain.ErrStockNotFound {
		t.Errorf("expected ErrStockNotFound, got %v", err)
	}
}

func TestMySQLTryDecrement_Concurrent(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewMySQLStockStore(db)
	id := createTestItem(t, store, 7)

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.TryDecrement(ctx, id, 5); err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("expected exactly 1 success, got %d", successCount.Load())
	}

	item, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if item.Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", item.Quantity)
	}
}

func TestMySQLTransactionLog_AppendAndList(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewMySQLStockStore(db)
	txlog := NewMySQLTransactionLog(db)
	id := createTestItem(t, store, 10)

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 3; i++ {
		tx := domain.SaleTransaction{
			ID:         uuid.NewString(),
			StockID:    id,
			Quantity:   i + 1,
			TotalPrice: decimal.NewFromInt(int64((i + 1) * 50)),
			Timestamp:  base.Add(time.Duration(i) * time.Second),
		}
		if err := txlog.Append(ctx, tx); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	txs, err := txlog.ListByStock(ctx, id)
	if err != nil {
		t.Fatalf("ListByStock failed: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txs))
	}
	for i, tx := range txs {
		if tx.Quantity != i+1 {
			t.Errorf("expected ascending timestamp order, position %d has quantity %d", i, tx.Quantity)
		}
	}
}

func TestMySQLAgentStore_CRUD(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewMySQLAgentStore(db)

	agent := domain.Agent{
		ID:           uuid.NewString(),
		Name:         "Test Agent",
		Email:        uuid.NewString() + "@example.com",
		NationalID:   "12345678",
		Role:         "agent",
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := store.Create(ctx, &agent); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	t.Cleanup(func() { store.Delete(ctx, agent.ID) })

	got, err := store.GetByEmail(ctx, agent.Email)
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if got.ID != agent.ID {
		t.Errorf("expected id %s, got %s", agent.ID, got.ID)
	}

	got.Name = "Renamed"
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if err := store.Delete(ctx, agent.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, agent.ID); err != domain.ErrAgentNotFound {
		t.Errorf("expected ErrAgentNotFound, got %v", err)
	}
}
