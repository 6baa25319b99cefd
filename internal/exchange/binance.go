package exchange

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/price-feed/internal/ohlcv"
)

const binanceAPIURL = "https://api.binance.com/api/v3"

type binanceAdapter struct {
	client  *Client
	baseURL string
}

// NewBinance returns the Binance spot adapter.
func NewBinance(client *Client) Adapter {
	return &binanceAdapter{client: client, baseURL: binanceAPIURL}
}

func (b *binanceAdapter) Name() string {
	return "binance"
}

func (b *binanceAdapter) FormatSymbol(base, quote string) string {
	return strings.ToUpper(base) + strings.ToUpper(quote)
}

func (b *binanceAdapter) LoadMarkets(ctx context.Context) ([]string, error) {
	var payload struct {
		Symbols []struct {
			Symbol string `json:"symbol"`
			Status string `json:"status"`
		} `json:"symbols"`
	}
	if err := b.client.GetJSON(ctx, b.baseURL+"/exchangeInfo", &payload); err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(payload.Symbols))
	for _, m := range payload.Symbols {
		if m.Status == "TRADING" {
			symbols = append(symbols, m.Symbol)
		}
	}
	return symbols, nil
}

func (b *binanceAdapter) FetchCandles(ctx context.Context, symbol string, timestamp int64, timeframe, count int) ([]ohlcv.Candle, error) {
	u := fmt.Sprintf("%s/klines?symbol=%s&interval=%dm&startTime=%d&limit=%d",
		b.baseURL, symbol, timeframe, timestamp*1000, count)
	var klines [][]any
	if err := b.client.GetJSON(ctx, u, &klines); err != nil {
		return nil, err
	}
	candles := make([]ohlcv.Candle, 0, len(klines))
	for _, k := range klines {
		if len(k) < 8 {
			continue
		}
		candles = append(candles, ohlcv.Candle{
			Timestamp:   asInt64(k[0]) / 1000,
			Open:        asFloat(k[1]),
			High:        asFloat(k[2]),
			Low:         asFloat(k[3]),
			Close:       asFloat(k[4]),
			Volume:      asFloat(k[5]),
			QuoteVolume: asFloat(k[7]),
			Completed:   true, // requested ranges end before now, candles are closed
		})
	}
	return candles, nil
}
