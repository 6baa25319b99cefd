package exchange

import (
	"context"
	"strconv"
	"strings"
	"time"

	wallex "github.com/wallexchange/wallex-go"

	"github.com/amirphl/price-feed/internal/ohlcv"
)

type wallexAdapter struct {
	client *wallex.Client
}

// NewWallex returns the Wallex adapter. Unlike the REST adapters it speaks
// through the official client library, so gateway routing does not apply.
func NewWallex() Adapter {
	return &wallexAdapter{client: wallex.New(wallex.ClientOptions{})}
}

func (w *wallexAdapter) Name() string {
	return "wallex"
}

func (w *wallexAdapter) FormatSymbol(base, quote string) string {
	return strings.ToUpper(base) + strings.ToUpper(quote)
}

func (w *wallexAdapter) LoadMarkets(ctx context.Context) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	markets, err := w.client.Markets()
	if err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(markets))
	for _, m := range markets {
		symbols = append(symbols, m.Symbol)
	}
	return symbols, nil
}

func (w *wallexAdapter) FetchCandles(ctx context.Context, symbol string, timestamp int64, timeframe, count int) ([]ohlcv.Candle, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	resolution := strconv.Itoa(timeframe)
	from := time.Unix(timestamp, 0).UTC()
	to := from.Add(time.Duration(count*timeframe) * time.Minute)
	wallexCandles, err := w.client.Candles(symbol, resolution, from, to)
	if err != nil {
		return nil, err
	}
	candles := make([]ohlcv.Candle, 0, len(wallexCandles))
	for _, wc := range wallexCandles {
		open := wallexFloat(wc.Open)
		high := wallexFloat(wc.High)
		low := wallexFloat(wc.Low)
		closep := wallexFloat(wc.Close)
		volume := wallexFloat(wc.Volume)
		candles = append(candles, ohlcv.Candle{
			Timestamp: wc.Timestamp.UTC().Unix(),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closep,
			Volume:    volume,
			// no quote volume on the wire, approximate from the OHLC mean
			QuoteVolume: volume * (open + high + low + closep) / 4,
			Completed:   true,
		})
	}
	return candles, nil
}

func wallexFloat(n wallex.Number) float64 {
	out, _ := strconv.ParseFloat(string(n), 64)
	return out
}
