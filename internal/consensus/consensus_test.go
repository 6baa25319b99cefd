package consensus

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/price-feed/internal/ohlcv"
)

func ints(vals ...int64) []*big.Int {
	out := make([]*big.Int, len(vals))
	for i, v := range vals {
		out[i] = big.NewInt(v)
	}
	return out
}

func TestMedianPrice(t *testing.T) {
	t.Run("Empty input", func(t *testing.T) {
		assert.Nil(t, MedianPrice(nil))
		assert.Nil(t, MedianPrice([]*big.Int{}))
	})

	t.Run("Non-positive entries are skipped", func(t *testing.T) {
		assert.Nil(t, MedianPrice(ints(0, -5)))
		assert.Nil(t, MedianPrice([]*big.Int{nil, big.NewInt(0)}))
		assert.Equal(t, big.NewInt(100), MedianPrice(ints(0, 100)))
	})

	t.Run("Single value", func(t *testing.T) {
		assert.Equal(t, big.NewInt(100), MedianPrice(ints(100)))
	})

	t.Run("Odd count median", func(t *testing.T) {
		assert.Equal(t, big.NewInt(102), MedianPrice(ints(100, 102, 104)))
	})

	t.Run("Even count averages the middle pair", func(t *testing.T) {
		assert.Equal(t, big.NewInt(101), MedianPrice(ints(100, 102)))
		// truncated mean
		assert.Equal(t, big.NewInt(101), MedianPrice(ints(100, 103)))
	})

	t.Run("Outlier dropped and median recomputed", func(t *testing.T) {
		// median of [99,100,101,200] is 100 (truncated mean of 100,101);
		// 200 deviates 100%, survivors [99,100,101] give 100
		assert.Equal(t, big.NewInt(100), MedianPrice(ints(100, 200, 101, 99)))
	})

	t.Run("Far outlier among three sources", func(t *testing.T) {
		assert.Equal(t, big.NewInt(100), MedianPrice(ints(100, 101, 1000)))
	})

	t.Run("Within tolerance nothing is dropped", func(t *testing.T) {
		// 4% around median 100: 96..104 all survive
		assert.Equal(t, big.NewInt(100), MedianPrice(ints(96, 100, 104)))
	})

	t.Run("Filtering down to one keeps the unfiltered median", func(t *testing.T) {
		// median of [100,200] is 150; both deviate beyond 4%, so the
		// original median stands rather than electing a lone survivor
		assert.Equal(t, big.NewInt(150), MedianPrice(ints(100, 200)))
	})

	t.Run("Input order does not matter", func(t *testing.T) {
		assert.Equal(t, big.NewInt(102), MedianPrice(ints(104, 100, 102)))
	})

	t.Run("Input values are not mutated", func(t *testing.T) {
		vals := ints(100, 200, 101, 99)
		MedianPrice(vals)
		assert.Equal(t, big.NewInt(200), vals[1])
	})
}

func TestOHLCVPrice(t *testing.T) {
	candle := func(close float64) *ohlcv.OHLCV {
		o, err := ohlcv.NewOHLCV(ohlcv.Candle{Close: close}, 0, false, "test")
		require.NoError(t, err)
		return o
	}

	t.Run("Nil candles are skipped", func(t *testing.T) {
		got := OHLCVPrice([]*ohlcv.OHLCV{candle(100), nil, candle(102), candle(104)})
		assert.Equal(t, big.NewInt(102), got)
	})

	t.Run("All nil yields nil", func(t *testing.T) {
		assert.Nil(t, OHLCVPrice([]*ohlcv.OHLCV{nil, nil}))
	})
}

func TestSeriesPrices(t *testing.T) {
	bucket := func(volume, quoteVolume float64) ohlcv.TradeBucket {
		return ohlcv.NewTradeBucket(ohlcv.Candle{Volume: volume, QuoteVolume: quoteVolume}, false, "test")
	}

	t.Run("Consensus per slot", func(t *testing.T) {
		series := [][]ohlcv.TradeBucket{
			{bucket(1, 100), bucket(1, 100)},
			{bucket(1, 101), bucket(1, 102)},
			{bucket(1, 1000), bucket(1, 104)},
		}
		got := SeriesPrices(series, 0)
		require.Len(t, got, 2)
		assert.Equal(t, big.NewInt(100), got[0])
		assert.Equal(t, big.NewInt(102), got[1])
	})

	t.Run("Gap slots come back zero", func(t *testing.T) {
		series := [][]ohlcv.TradeBucket{
			{ohlcv.GapBucket(0, "test"), bucket(1, 100)},
			{ohlcv.GapBucket(0, "test"), bucket(1, 102)},
		}
		got := SeriesPrices(series, 0)
		require.Len(t, got, 2)
		assert.Equal(t, int64(0), got[0].Int64())
		assert.Equal(t, big.NewInt(101), got[1])
	})

	t.Run("Empty input", func(t *testing.T) {
		assert.Empty(t, SeriesPrices(nil, 0))
	})
}
