package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/biosales/agent-sales/internal/core/domain"
	"github.com/biosales/agent-sales/internal/port"
)

const (
	appendAttempts = 3
	appendBackoff  = 50 * time.Millisecond
)

// SettlementEngine is the only place where a sale is decided and committed.
// It is safe for use from any number of concurrent callers: all quantity
// mutation goes through the stock store's atomic TryDecrement, never
// through a separate read-then-write.
type SettlementEngine struct {
	stock port.StockStore
	txlog port.TransactionLog

	// retry knobs, overridable in tests
	attempts int
	backoff  time.Duration
}

func NewSettlementEngine(stock port.StockStore, txlog port.TransactionLog) *SettlementEngine {
	return &SettlementEngine{
		stock:    stock,
		txlog:    txlog,
		attempts: appendAttempts,
		backoff:  appendBackoff,
	}
}

// Sell atomically checks availability, charges quantity * unit price,
// records the sale and decrements the stock. It returns the created
// transaction, or one of domain.ErrInvalidRequest, domain.ErrStockNotFound,
// domain.ErrInsufficientStock, or a *domain.StorageError.
//
// If the log append fails after the decrement succeeded, the append is
// retried a bounded number of times and then the decrement is compensated,
// so a decremented item with no matching transaction is never the terminal
// state seen by callers.
func (e *SettlementEngine) Sell(ctx context.Context, stockID string, quantity int) (*domain.SaleTransaction, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", domain.ErrInvalidRequest, quantity)
	}

	// Price is read here, before the atomic decrement. A concurrent price
	// edit between this read and the decrement applies the old price; the
	// invariant this engine guarantees is about quantity, not
	// price-freshness.
	item, err := e.stock.Get(ctx, stockID)
	if err != nil {
		return nil, classify("get stock", err)
	}

	totalPrice := item.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))

	if _, err := e.stock.TryDecrement(ctx, stockID, quantity); err != nil {
		return nil, classify("decrement stock", err)
	}

	tx := domain.SaleTransaction{
		ID:         uuid.NewString(),
		StockID:    stockID,
		Quantity:   quantity,
		TotalPrice: totalPrice,
		Timestamp:  time.Now().UTC(),
	}

	if err := e.appendWithRetry(ctx, tx); err != nil {
		if restoreErr := e.stock.Restore(ctx, stockID, quantity); restoreErr != nil {
			return nil, domain.NewStorageError("compensate decrement", errors.Join(err, restoreErr))
		}
		return nil, domain.NewStorageError("append transaction", err)
	}

	return &tx, nil
}

func (e *SettlementEngine) appendWithRetry(ctx context.Context, tx domain.SaleTransaction) error {
	var err error
	for attempt := 1; attempt <= e.attempts; attempt++ {
		if err = e.txlog.Append(ctx, tx); err == nil {
			return nil
		}
		if attempt < e.attempts {
			time.Sleep(time.Duration(attempt) * e.backoff)
		}
	}
	return fmt.Errorf("append failed after %d attempts: %w", e.attempts, err)
}

// classify keeps domain outcomes as-is and marks everything else as an
// infrastructure failure. A storage timeout must never surface as a domain
// error like insufficient stock.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrStockNotFound),
		errors.Is(err, domain.ErrInsufficientStock):
		return err
	default:
		return domain.NewStorageError(op, err)
	}
}
