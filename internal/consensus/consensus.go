// Package consensus
package consensus

import (
	"math/big"
	"sort"

	"github.com/amirphl/price-feed/internal/ohlcv"
)

// MaxDeviationPercent is the outlier cutoff around the median. Sources
// deviating more than this are treated as corrupted or stale.
const MaxDeviationPercent = 4

// MedianPrice returns the outlier-filtered median of prices, or nil when no
// positive prices are present. Non-positive entries mean "no data" and are
// skipped. If filtering removed values but left one or zero, the unfiltered
// median is kept so a single surviving outlier cannot become the answer.
func MedianPrice(prices []*big.Int) *big.Int {
	positive := make([]*big.Int, 0, len(prices))
	for _, p := range prices {
		if p != nil && p.Sign() > 0 {
			positive = append(positive, p)
		}
	}
	if len(positive) == 0 {
		return nil
	}
	sort.Slice(positive, func(i, j int) bool { return positive[i].Cmp(positive[j]) < 0 })
	res := median(positive)

	hundred := big.NewInt(100)
	limit := big.NewInt(MaxDeviationPercent)
	filtered := make([]*big.Int, 0, len(positive))
	for _, v := range positive {
		dev := new(big.Int).Mul(hundred, v)
		dev.Quo(dev, res)
		dev.Sub(hundred, dev)
		if dev.CmpAbs(limit) <= 0 {
			filtered = append(filtered, v)
		}
	}
	if len(filtered) != len(positive) && len(filtered) > 1 {
		res = median(filtered)
	}
	return res
}

// median of an ascending slice: the middle element, or the truncated mean of
// the two middle elements for even counts.
func median(sorted []*big.Int) *big.Int {
	middle := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[middle]
	}
	sum := new(big.Int).Add(sorted[middle-1], sorted[middle])
	return sum.Quo(sum, big.NewInt(2))
}

// OHLCVPrice computes the consensus price over one candle per source.
func OHLCVPrice(candles []*ohlcv.OHLCV) *big.Int {
	prices := make([]*big.Int, 0, len(candles))
	for _, c := range candles {
		if c != nil {
			prices = append(prices, c.Price())
		}
	}
	return MedianPrice(prices)
}

// SeriesPrices merges time-aligned bucket series from multiple sources into
// one consensus price per slot. Series shorter than the longest one are
// skipped for the slots they lack. Unknown slots come back as zero.
func SeriesPrices(series [][]ohlcv.TradeBucket, decimals int) []*big.Int {
	slots := 0
	for _, s := range series {
		if len(s) > slots {
			slots = len(s)
		}
	}
	out := make([]*big.Int, slots)
	for i := range out {
		prices := make([]*big.Int, 0, len(series))
		for _, s := range series {
			if i < len(s) {
				prices = append(prices, s[i].Price(decimals))
			}
		}
		if p := MedianPrice(prices); p != nil {
			out[i] = p
		} else {
			out[i] = new(big.Int)
		}
	}
	return out
}
