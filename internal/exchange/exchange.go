// Package exchange
package exchange

import (
	"context"
	"errors"

	"github.com/amirphl/price-feed/internal/ohlcv"
)

// Adapter is the exchange-specific surface: market listing, candle
// retrieval and native symbol formatting. Everything else (symbol
// resolution, inversion, series reconciliation) is exchange-independent and
// lives on Provider.
type Adapter interface {
	Name() string
	// LoadMarkets returns the native symbols currently open for trading.
	LoadMarkets(ctx context.Context) ([]string, error)
	// FetchCandles returns raw candles starting at timestamp (unix
	// seconds) with the given timeframe in minutes, in any order the
	// venue happens to use.
	FetchCandles(ctx context.Context, symbol string, timestamp int64, timeframe, count int) ([]ohlcv.Candle, error)
	// FormatSymbol renders a base/quote alias pair the way the venue
	// spells its trading symbols.
	FormatSymbol(base, quote string) string
}

// SymbolInfo is a resolved exchange-native symbol for an abstract pair.
type SymbolInfo struct {
	Symbol   string
	Inversed bool
}

// ErrTimestampMismatch indicates a reconciled series did not line up with
// the requested timeline, which points at upstream pagination or off-by-one
// bugs. Fatal for that exchange/pair: the contribution is dropped, not
// retried.
var ErrTimestampMismatch = errors.New("timestamp mismatch")

// ErrIncompleteCandle marks data containing a still-forming candle, which
// is retryable rather than usable.
var ErrIncompleteCandle = errors.New("incomplete candle")
