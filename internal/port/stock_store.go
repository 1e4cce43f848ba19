package port

import (
	"context"

	"github.com/biosales/agent-sales/internal/core/domain"
)

type StockStore interface {
	// Get retrieves a stock item by id. Returns domain.ErrStockNotFound
	// if the id does not exist.
	Get(ctx context.Context, id string) (*domain.StockItem, error)

	// List returns all stock items.
	List(ctx context.Context) ([]domain.StockItem, error)

	// Create persists a new stock item.
	Create(ctx context.Context, item *domain.StockItem) error

	// Update replaces name, quantity and unit price of an existing item.
	Update(ctx context.Context, item *domain.StockItem) error

	// Delete removes a stock item.
	Delete(ctx context.Context, id string) error

	// TryDecrement atomically checks quantity >= amount and applies the
	// decrement, returning the new quantity. The check and the write are a
	// single indivisible action as observed by concurrent callers. Fails
	// with domain.ErrInsufficientStock or domain.ErrStockNotFound without
	// mutating anything.
	TryDecrement(ctx context.Context, id string, amount int) (int, error)

	// Restore adds amount back to the item's quantity. Used only to
	// compensate a decrement whose matching transaction could not be
	// recorded.
	Restore(ctx context.Context, id string, amount int) error
}
