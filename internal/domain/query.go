package domain

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// QueryKind selects the aggregation applied to the fills matching a range.
type QueryKind string

const (
	KindCount     QueryKind = "count"
	KindBuyCount  QueryKind = "buy-count"
	KindSellCount QueryKind = "sell-count"
	KindVolume    QueryKind = "volume"
)

// ParseKind accepts the full kind names and their single-letter aliases.
func ParseKind(s string) (QueryKind, error) {
	switch s {
	case "count", "C":
		return KindCount, nil
	case "buy-count", "B":
		return KindBuyCount, nil
	case "sell-count", "S":
		return KindSellCount, nil
	case "volume", "V":
		return KindVolume, nil
	}
	return "", fmt.Errorf("unknown query kind %q", s)
}

// Query is one validated analytical request over the range (Start, End].
type Query struct {
	Kind  QueryKind `json:"kind"`
	Start int64     `json:"start"`
	End   int64     `json:"end"`
}

// Result is the answer to one query. Count carries the count kinds,
// Volume carries the volume kind.
type Result struct {
	Kind   QueryKind
	Count  int
	Volume decimal.Decimal
}

// String renders the result the way the output stream prints it: a bare
// integer for the count kinds, a decimal string for volume.
func (r Result) String() string {
	if r.Kind == KindVolume {
		return r.Volume.String()
	}
	return strconv.Itoa(r.Count)
}
