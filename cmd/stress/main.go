package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/biosales/agent-sales/internal/adapter/storage"
	"github.com/biosales/agent-sales/internal/core/domain"
	"github.com/biosales/agent-sales/internal/core/service"
)

const (
	initialStock  = 20
	totalRequests = 50
)

// Fires concurrent sells at one stock item and checks the ledger invariant:
// exactly initialStock requests succeed, the rest fail with insufficient
// stock, and the decrement equals the sum of recorded transactions.
func main() {
	ctx := context.Background()

	stockStore := storage.NewMemoryStockStore()
	txLog := storage.NewMemoryTransactionLog()

	item := domain.StockItem{
		ID:        uuid.NewString(),
		Name:      "stress-item",
		Quantity:  initialStock,
		UnitPrice: decimal.NewFromInt(50),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := stockStore.Create(ctx, &item); err != nil {
		log.Fatalf("failed to seed stock: %v", err)
	}

	engine := service.NewSettlementEngine(stockStore, txLog)

	var successCount atomic.Int32
	var soldOutCount atomic.Int32
	var otherCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Sell(ctx, item.ID, 1)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				soldOutCount.Add(1)
			default:
				otherCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	soldOut := soldOutCount.Load()

	fmt.Println("========== STRESS RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Sold Out:         %d\n", soldOut)
	fmt.Printf("Other Errors:     %d\n", otherCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("====================================")

	if success == initialStock && soldOut == totalRequests-initialStock {
		fmt.Printf("PASS: exactly %d sales succeeded, %d rejected\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: expected %d/%d, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, soldOut)
	}

	final, err := stockStore.Get(ctx, item.ID)
	if err != nil {
		log.Fatalf("failed to read final stock: %v", err)
	}
	txs, err := txLog.ListByStock(ctx, item.ID)
	if err != nil {
		log.Fatalf("failed to read transactions: %v", err)
	}

	sold := 0
	for _, tx := range txs {
		sold += tx.Quantity
	}

	fmt.Printf("Final Quantity:   %d\n", final.Quantity)
	fmt.Printf("Sum of Sales:     %d\n", sold)

	if initialStock-sold == final.Quantity && final.Quantity == 0 {
		fmt.Println("PASS: ledger invariant holds, stock depleted to 0")
	} else {
		fmt.Printf("FAIL: initial %d - sold %d != remaining %d\n", initialStock, sold, final.Quantity)
	}
}
