package exchange

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/price-feed/internal/ohlcv"
)

const bybitAPIURL = "https://api.bybit.com/v5"

type bybitAdapter struct {
	client  *Client
	baseURL string
}

// NewBybit returns the Bybit spot adapter.
func NewBybit(client *Client) Adapter {
	return &bybitAdapter{client: client, baseURL: bybitAPIURL}
}

func (b *bybitAdapter) Name() string {
	return "bybit"
}

func (b *bybitAdapter) FormatSymbol(base, quote string) string {
	return strings.ToUpper(base) + strings.ToUpper(quote)
}

func (b *bybitAdapter) LoadMarkets(ctx context.Context) ([]string, error) {
	var payload struct {
		Result struct {
			List []struct {
				Symbol string `json:"symbol"`
				Status string `json:"status"`
			} `json:"list"`
		} `json:"result"`
	}
	if err := b.client.GetJSON(ctx, b.baseURL+"/market/instruments-info?category=spot", &payload); err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(payload.Result.List))
	for _, m := range payload.Result.List {
		if strings.EqualFold(m.Status, "Trading") {
			symbols = append(symbols, m.Symbol)
		}
	}
	return symbols, nil
}

func (b *bybitAdapter) FetchCandles(ctx context.Context, symbol string, timestamp int64, timeframe, count int) ([]ohlcv.Candle, error) {
	u := fmt.Sprintf("%s/market/kline?category=spot&symbol=%s&interval=%d&start=%d&limit=%d",
		b.baseURL, symbol, timeframe, timestamp*1000, count)
	var payload struct {
		Result struct {
			List [][]any `json:"list"`
		} `json:"result"`
	}
	if err := b.client.GetJSON(ctx, u, &payload); err != nil {
		return nil, err
	}
	// newest first on the wire; ordering is irrelevant to reconciliation
	candles := make([]ohlcv.Candle, 0, len(payload.Result.List))
	for _, k := range payload.Result.List {
		if len(k) < 7 {
			continue
		}
		candles = append(candles, ohlcv.Candle{
			Timestamp:   asInt64(k[0]) / 1000,
			Open:        asFloat(k[1]),
			High:        asFloat(k[2]),
			Low:         asFloat(k[3]),
			Close:       asFloat(k[4]),
			Volume:      asFloat(k[5]),
			QuoteVolume: asFloat(k[6]),
			Completed:   true,
		})
	}
	return candles, nil
}
