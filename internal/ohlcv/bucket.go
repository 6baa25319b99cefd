package ohlcv

import (
	"math/big"

	"github.com/amirphl/price-feed/internal/priceutils"
)

// TradeBucket is one timeframe-aligned interval for one exchange: traded
// volume and quote volume as fixed-point integers at VolumeDecimals. A
// reconciled series has exactly one bucket per timestamp, and gap buckets
// carry zero volume with Completed set.
type TradeBucket struct {
	Timestamp   int64    `json:"ts"`
	Volume      *big.Int `json:"volume"`
	QuoteVolume *big.Int `json:"quoteVolume"`
	Source      string   `json:"source"`
	Completed   bool     `json:"completed"`
}

// NewTradeBucket normalizes a raw candle into a trade bucket. When the pair
// resolved in the inverted orientation, volume and quote volume swap roles.
func NewTradeBucket(raw Candle, inversed bool, source string) TradeBucket {
	volume, quoteVolume := raw.Volume, raw.QuoteVolume
	if inversed {
		volume, quoteVolume = quoteVolume, volume
	}
	return TradeBucket{
		Timestamp:   raw.Timestamp,
		Volume:      priceutils.FloatVolumeToFixedPoint(volume, priceutils.VolumeDecimals),
		QuoteVolume: priceutils.FloatVolumeToFixedPoint(quoteVolume, priceutils.VolumeDecimals),
		Source:      source,
		Completed:   raw.Completed,
	}
}

// GapBucket synthesizes the bucket for a slot where the market saw no
// trades. No trades is final data, so the bucket is completed.
func GapBucket(timestamp int64, source string) TradeBucket {
	return TradeBucket{
		Timestamp:   timestamp,
		Volume:      new(big.Int),
		QuoteVolume: new(big.Int),
		Source:      source,
		Completed:   true,
	}
}

// UnitBucket is the bucket of a self-pair: one unit traded against one unit.
func UnitBucket(timestamp int64, source string) TradeBucket {
	one := priceutils.Pow10(priceutils.VolumeDecimals)
	return TradeBucket{
		Timestamp:   timestamp,
		Volume:      one,
		QuoteVolume: new(big.Int).Set(one),
		Source:      source,
		Completed:   true,
	}
}

// Price returns the VWAP implied by the bucket volumes at the given
// decimals, or zero when the bucket saw no trades.
func (b TradeBucket) Price(decimals int) *big.Int {
	if b.Volume == nil || b.QuoteVolume == nil || b.Volume.Sign() == 0 || b.QuoteVolume.Sign() == 0 {
		return new(big.Int)
	}
	// both volumes carry the same implied decimals, so their ratio only
	// needs rescaling to the requested precision
	num := new(big.Int).Mul(b.QuoteVolume, priceutils.Pow10(decimals))
	return num.Quo(num, b.Volume)
}
