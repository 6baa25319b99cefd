package exchange

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/price-feed/internal/ohlcv"
)

const gateAPIURL = "https://api.gateio.ws/api/v4"

type gateAdapter struct {
	client  *Client
	baseURL string
}

// NewGate returns the Gate.io spot adapter.
func NewGate(client *Client) Adapter {
	return &gateAdapter{client: client, baseURL: gateAPIURL}
}

func (g *gateAdapter) Name() string {
	return "gate"
}

func (g *gateAdapter) FormatSymbol(base, quote string) string {
	return strings.ToUpper(base) + "_" + strings.ToUpper(quote)
}

func (g *gateAdapter) LoadMarkets(ctx context.Context) ([]string, error) {
	var payload []struct {
		ID          string `json:"id"`
		TradeStatus string `json:"trade_status"`
	}
	if err := g.client.GetJSON(ctx, g.baseURL+"/spot/currency_pairs", &payload); err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(payload))
	for _, m := range payload {
		if strings.EqualFold(m.TradeStatus, "tradable") {
			symbols = append(symbols, m.ID)
		}
	}
	return symbols, nil
}

func (g *gateAdapter) FetchCandles(ctx context.Context, symbol string, timestamp int64, timeframe, count int) ([]ohlcv.Candle, error) {
	u := fmt.Sprintf("%s/spot/candlesticks?currency_pair=%s&interval=%dm&from=%d&limit=%d",
		g.baseURL, symbol, timeframe, timestamp, count)
	// rows are [ts, quoteVolume, close, high, low, open, baseVolume, closed]
	var klines [][]string
	if err := g.client.GetJSON(ctx, u, &klines); err != nil {
		return nil, err
	}
	candles := make([]ohlcv.Candle, 0, len(klines))
	for _, k := range klines {
		if len(k) < 8 {
			continue
		}
		candles = append(candles, ohlcv.Candle{
			Timestamp:   asInt64(k[0]),
			Open:        asFloat(k[5]),
			High:        asFloat(k[3]),
			Low:         asFloat(k[4]),
			Close:       asFloat(k[2]),
			Volume:      asFloat(k[6]),
			QuoteVolume: asFloat(k[1]),
			Completed:   strings.EqualFold(k[7], "true"),
		})
	}
	return candles, nil
}
