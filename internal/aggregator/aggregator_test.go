package aggregator

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/price-feed/internal/exchange"
	"github.com/amirphl/price-feed/internal/ohlcv"
)

// stubAdapter synthesizes perfectly aligned candles for whatever window is
// requested, so provider reconciliation always succeeds unless an error is
// injected.
type stubAdapter struct {
	name       string
	markets    []string
	close      float64
	incomplete bool
	fetchErr   error
	fetchCalls atomic.Int32
}

func (a *stubAdapter) Name() string { return a.name }

func (a *stubAdapter) LoadMarkets(ctx context.Context) ([]string, error) {
	return a.markets, nil
}

func (a *stubAdapter) FetchCandles(ctx context.Context, symbol string, timestamp int64, timeframe, count int) ([]ohlcv.Candle, error) {
	a.fetchCalls.Add(1)
	if a.fetchErr != nil {
		return nil, a.fetchErr
	}
	candles := make([]ohlcv.Candle, count)
	for i := range candles {
		candles[i] = ohlcv.Candle{
			Timestamp:   timestamp + int64(i*timeframe*60),
			Open:        a.close,
			High:        a.close,
			Low:         a.close,
			Close:       a.close,
			Volume:      1,
			QuoteVolume: a.close,
			Completed:   !a.incomplete,
		}
	}
	return candles, nil
}

func (a *stubAdapter) FormatSymbol(base, quote string) string {
	return strings.ToUpper(base) + strings.ToUpper(quote)
}

func newStub(name string, close float64) *stubAdapter {
	return &stubAdapter{name: name, markets: []string{"BTCUSDT", "ETHUSDT"}, close: close}
}

func service(adapters ...*stubAdapter) *Service {
	providers := make([]*exchange.Provider, len(adapters))
	for i, a := range adapters {
		providers[i] = exchange.NewProvider(a, nil)
	}
	return NewWithProviders(nil, providers...)
}

// fastOpts keeps tests quick: no pacing, a single batch.
var fastOpts = Options{BatchSize: -1, BatchDelay: -1, Timeout: time.Second}

const (
	testStart = int64(1700000100)
	testTF    = 300
)

func sourcesOf(adapters ...*stubAdapter) []string {
	names := make([]string, len(adapters))
	for i, a := range adapters {
		names[i] = a.name
	}
	return names
}

func optsFor(adapters ...*stubAdapter) Options {
	o := fastOpts
	o.Sources = sourcesOf(adapters...)
	return o
}

func TestGetTradesData(t *testing.T) {
	t.Run("Empty assets", func(t *testing.T) {
		s := service(newStub("a", 100))
		got, err := s.GetTradesData(context.Background(), nil, "USD", testStart, testTF, 2, fastOpts)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Invalid timeframe", func(t *testing.T) {
		s := service(newStub("a", 100))
		_, err := s.GetTradesData(context.Background(), []string{"BTC"}, "USD", testStart, 90, 2, fastOpts)
		assert.Error(t, err)
	})

	t.Run("One series per asset per exchange", func(t *testing.T) {
		a, b := newStub("a", 100), newStub("b", 101)
		s := service(a, b)

		got, err := s.GetTradesData(context.Background(), []string{"BTC", "ETH"}, "USD", testStart, testTF, 3, optsFor(a, b))
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, perAsset := range got {
			require.Len(t, perAsset, 2)
			for _, series := range perAsset {
				require.Len(t, series, 3)
				assert.Equal(t, testStart, series[0].Timestamp)
				assert.Equal(t, testStart+600, series[2].Timestamp)
			}
		}
	})

	t.Run("Failing exchange degrades to fewer sources", func(t *testing.T) {
		a, b := newStub("a", 100), newStub("b", 101)
		b.fetchErr = errors.New("venue down")
		s := service(a, b)

		got, err := s.GetTradesData(context.Background(), []string{"BTC"}, "USD", testStart, testTF, 1, optsFor(a, b))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Len(t, got[0], 1)
		assert.Equal(t, int32(3), b.fetchCalls.Load())
	})

	t.Run("Timestamp mismatch drops the pair without retrying", func(t *testing.T) {
		a := newStub("a", 100)
		a.fetchErr = exchange.ErrTimestampMismatch
		s := service(a)

		got, err := s.GetTradesData(context.Background(), []string{"BTC"}, "USD", testStart, testTF, 1, optsFor(a))
		require.NoError(t, err)
		assert.Empty(t, got[0])
		assert.Equal(t, int32(1), a.fetchCalls.Load())
	})

	t.Run("Incomplete candles exhaust retries", func(t *testing.T) {
		a := newStub("a", 100)
		a.incomplete = true
		s := service(a)

		got, err := s.GetTradesData(context.Background(), []string{"BTC"}, "USD", testStart, testTF, 1, optsFor(a))
		require.NoError(t, err)
		assert.Empty(t, got[0])
		assert.Equal(t, int32(3), a.fetchCalls.Load())
	})

	t.Run("Unlisted asset still contributes a gap series", func(t *testing.T) {
		a := newStub("a", 100)
		s := service(a)

		got, err := s.GetTradesData(context.Background(), []string{"XMR"}, "USD", testStart, testTF, 2, optsFor(a))
		require.NoError(t, err)
		require.Len(t, got[0], 1)
		for _, bucket := range got[0][0] {
			assert.Equal(t, int64(0), bucket.Volume.Int64())
		}
	})

	t.Run("Sources filter", func(t *testing.T) {
		a, b := newStub("a", 100), newStub("b", 101)
		s := service(a, b)

		o := fastOpts
		o.Sources = []string{"b"}
		got, err := s.GetTradesData(context.Background(), []string{"BTC"}, "USD", testStart, testTF, 1, o)
		require.NoError(t, err)
		require.Len(t, got[0], 1)
		assert.Equal(t, "b", got[0][0][0].Source)
		assert.Equal(t, int32(0), a.fetchCalls.Load())
	})

	t.Run("Batches are paced", func(t *testing.T) {
		a := newStub("a", 100)
		s := service(a)

		o := Options{BatchSize: 1, BatchDelay: 30 * time.Millisecond, Timeout: time.Second, Sources: []string{"a"}}
		begin := time.Now()
		got, err := s.GetTradesData(context.Background(), []string{"BTC", "ETH"}, "USD", testStart, testTF, 1, o)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.GreaterOrEqual(t, time.Since(begin), 30*time.Millisecond)
	})
}

func TestGetOHLCVs(t *testing.T) {
	a, b := newStub("a", 100), newStub("b", 101)
	s := service(a, b)

	got, err := s.GetOHLCVs(context.Background(), []string{"BTC"}, "USD", testStart, testTF, 2, optsFor(a, b))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0], 2)
	assert.Equal(t, "a", got[0][0].Source)
	assert.Equal(t, "b", got[0][1].Source)
	assert.Equal(t, int64(10000), got[0][0].Price().Int64())
}

func TestGetPrices(t *testing.T) {
	t.Run("Outlier-filtered consensus across exchanges", func(t *testing.T) {
		a, b, c := newStub("a", 100), newStub("b", 101), newStub("c", 1000)
		s := service(a, b, c)

		prices, err := s.GetPrices(context.Background(), []string{"BTC"}, "USD", testStart, testTF, 0, optsFor(a, b, c))
		require.NoError(t, err)
		require.Len(t, prices, 1)
		assert.Equal(t, big.NewInt(100), prices[0])
	})

	t.Run("No data yields zero", func(t *testing.T) {
		a := newStub("a", 100)
		s := service(a)

		prices, err := s.GetPrices(context.Background(), []string{"XMR"}, "USD", testStart, testTF, 0, optsFor(a))
		require.NoError(t, err)
		require.Len(t, prices, 1)
		assert.Equal(t, int64(0), prices[0].Int64())
	})

	t.Run("Self pair prices to one", func(t *testing.T) {
		a := newStub("a", 100)
		s := service(a)

		prices, err := s.GetPrices(context.Background(), []string{"USD"}, "USD", testStart, testTF, 2, optsFor(a))
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(100), prices[0])
	})
}

func TestGetConsensusSeries(t *testing.T) {
	a, b, c := newStub("a", 100), newStub("b", 102), newStub("c", 104)
	s := service(a, b, c)

	series, err := s.GetConsensusSeries(context.Background(), []string{"BTC"}, "USD", testStart, testTF, 3, 0, optsFor(a, b, c))
	require.NoError(t, err)
	require.Len(t, series, 1)
	require.Len(t, series[0], 3)
	for _, p := range series[0] {
		assert.Equal(t, big.NewInt(102), p)
	}
}

func TestBatches(t *testing.T) {
	s := service(newStub("a", 100))
	pairs := s.pairs([]string{"BTC", "ETH", "XLM"}, "USD")

	t.Run("Splits preserving order", func(t *testing.T) {
		got := batches(pairs, 2)
		require.Len(t, got, 2)
		assert.Len(t, got[0], 2)
		assert.Len(t, got[1], 1)
		assert.Equal(t, "BTC/USD", got[0][0].Name)
		assert.Equal(t, "XLM/USD", got[1][0].Name)
	})

	t.Run("Non-positive size means one batch", func(t *testing.T) {
		got := batches(pairs, -1)
		require.Len(t, got, 1)
		assert.Len(t, got[0], 3)
	})
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, DefaultBatchSize, o.BatchSize)
	assert.Equal(t, DefaultBatchDelay, o.BatchDelay)
	assert.Equal(t, DefaultTimeout, o.Timeout)
	assert.Equal(t, DefaultSources, o.Sources)
}
