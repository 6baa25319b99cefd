// Package ohlcv
package ohlcv

import (
	"math/big"

	"github.com/amirphl/price-feed/internal/priceutils"
)

// Candle is an exchange-native OHLCV tuple, already decoded from the wire
// but not yet normalized. Consumed immediately by the normalizers below.
type Candle struct {
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
	QuoteVolume float64
	Timestamp   int64
	Completed   bool
}

// OHLCV is a single normalized candle with fixed-point prices. Used by the
// snapshot (one candle per request) consensus mode.
type OHLCV struct {
	Open        *big.Int `json:"open"`
	High        *big.Int `json:"high"`
	Low         *big.Int `json:"low"`
	Close       *big.Int `json:"close"`
	Volume      float64  `json:"volume"`
	QuoteVolume float64  `json:"quoteVolume"`
	Decimals    int      `json:"decimals"`
	Source      string   `json:"source"`
	Completed   bool     `json:"completed"`
}

// NewOHLCV normalizes a raw candle to fixed point at the given decimals.
// When the pair resolved in the inverted orientation, each price is
// inverted, high and low swap (inversion reverses price ordering), and
// volume swaps roles with quote volume.
func NewOHLCV(raw Candle, decimals int, inversed bool, source string) (*OHLCV, error) {
	open, err := priceutils.ToFixedPoint(raw.Open, decimals)
	if err != nil {
		return nil, err
	}
	high, err := priceutils.ToFixedPoint(raw.High, decimals)
	if err != nil {
		return nil, err
	}
	low, err := priceutils.ToFixedPoint(raw.Low, decimals)
	if err != nil {
		return nil, err
	}
	closep, err := priceutils.ToFixedPoint(raw.Close, decimals)
	if err != nil {
		return nil, err
	}
	o := &OHLCV{
		Open:        open,
		High:        high,
		Low:         low,
		Close:       closep,
		Volume:      raw.Volume,
		QuoteVolume: raw.QuoteVolume,
		Decimals:    decimals,
		Source:      source,
		Completed:   raw.Completed,
	}
	if inversed {
		o.Open = priceutils.Invert(open, decimals)
		o.High = priceutils.Invert(low, decimals)
		o.Low = priceutils.Invert(high, decimals)
		o.Close = priceutils.Invert(closep, decimals)
		o.Volume = raw.QuoteVolume
		o.QuoteVolume = raw.Volume
	}
	return o, nil
}

// Unit returns the OHLCV of a self-pair: every price is 1.0 at the given
// decimals.
func Unit(decimals int, source string) *OHLCV {
	one := priceutils.Pow10(decimals)
	return &OHLCV{
		Open:        one,
		High:        new(big.Int).Set(one),
		Low:         new(big.Int).Set(one),
		Close:       new(big.Int).Set(one),
		Volume:      1,
		QuoteVolume: 1,
		Decimals:    decimals,
		Source:      source,
		Completed:   true,
	}
}

// Price returns the VWAP for the candle, falling back to the close price
// when the interval saw no trades.
func (o *OHLCV) Price() *big.Int {
	if o.Volume == 0 || o.QuoteVolume == 0 {
		return o.Close
	}
	return priceutils.VWAP(o.Volume, o.QuoteVolume, o.Decimals)
}
