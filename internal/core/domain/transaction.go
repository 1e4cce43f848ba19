package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleTransaction is an immutable record of one settled sale. TotalPrice is
// the price captured at settlement time, not a live recomputation.
type SaleTransaction struct {
	ID         string
	StockID    string
	Quantity   int
	TotalPrice decimal.Decimal
	Timestamp  time.Time
}
