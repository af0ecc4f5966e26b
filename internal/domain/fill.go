package domain

import (
	"github.com/shopspring/decimal"
)

// Fill directions as they appear on the wire.
const (
	DirectionBuy  int32 = 1
	DirectionSell int32 = -1
)

// Fill is one executed-trade record. SequenceNumber identifies the trade,
// not the row: a trade split across counterparties produces several fill
// rows sharing one sequence number. Fills are immutable once obtained.
type Fill struct {
	SequenceNumber uint64          `json:"sequence_number"`
	Timestamp      int64           `json:"timestamp"`
	Direction      int32           `json:"direction"`
	Price          decimal.Decimal `json:"price"`
	Quantity       decimal.Decimal `json:"quantity"`
}

// IsBuy reports whether the fill executed on the buy side.
func (f Fill) IsBuy() bool { return f.Direction == DirectionBuy }

// IsSell reports whether the fill executed on the sell side.
func (f Fill) IsSell() bool { return f.Direction == DirectionSell }

// Notional returns Price * Quantity as an exact decimal.
func (f Fill) Notional() decimal.Decimal {
	return f.Price.Mul(f.Quantity)
}
