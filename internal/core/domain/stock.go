package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockItem is a sellable inventory entry. Quantity is the only field
// mutated in normal operation, and only through StockStore.TryDecrement.
type StockItem struct {
	ID        string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}
