package port

import (
	"context"

	"github.com/biosales/agent-sales/internal/core/domain"
)

type TransactionLog interface {
	// Append persists a new sale transaction. Append-only: records are
	// never updated or deleted. Fails only on storage unavailability.
	Append(ctx context.Context, tx domain.SaleTransaction) error

	// ListByStock returns all transactions for one stock item, ordered by
	// timestamp ascending.
	ListByStock(ctx context.Context, stockID string) ([]domain.SaleTransaction, error)

	// ListAll returns every transaction, ordered by timestamp ascending.
	ListAll(ctx context.Context) ([]domain.SaleTransaction, error)
}
