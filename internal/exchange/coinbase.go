package exchange

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/price-feed/internal/ohlcv"
)

const coinbaseAPIURL = "https://api.exchange.coinbase.com"

type coinbaseAdapter struct {
	client  *Client
	baseURL string
}

// NewCoinbase returns the Coinbase Exchange adapter.
func NewCoinbase(client *Client) Adapter {
	return &coinbaseAdapter{client: client, baseURL: coinbaseAPIURL}
}

func (c *coinbaseAdapter) Name() string {
	return "coinbase"
}

func (c *coinbaseAdapter) FormatSymbol(base, quote string) string {
	return strings.ToUpper(base) + "-" + strings.ToUpper(quote)
}

func (c *coinbaseAdapter) LoadMarkets(ctx context.Context) ([]string, error) {
	var payload []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := c.client.GetJSON(ctx, c.baseURL+"/products", &payload); err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(payload))
	for _, m := range payload {
		if strings.EqualFold(m.Status, "online") {
			symbols = append(symbols, m.ID)
		}
	}
	return symbols, nil
}

func (c *coinbaseAdapter) FetchCandles(ctx context.Context, symbol string, timestamp int64, timeframe, count int) ([]ohlcv.Candle, error) {
	end := timestamp + int64(count-1)*int64(timeframe)*60
	u := fmt.Sprintf("%s/products/%s/candles?granularity=%d&start=%d&end=%d",
		c.baseURL, symbol, timeframe*60, timestamp, end)
	var klines [][]any
	if err := c.client.GetJSON(ctx, u, &klines); err != nil {
		return nil, err
	}
	candles := make([]ohlcv.Candle, 0, len(klines))
	for _, k := range klines {
		if len(k) < 6 {
			continue
		}
		open, high, low, closep := asFloat(k[3]), asFloat(k[2]), asFloat(k[1]), asFloat(k[4])
		volume := asFloat(k[5])
		candles = append(candles, ohlcv.Candle{
			Timestamp: asInt64(k[0]),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closep,
			Volume:    volume,
			// the endpoint reports no quote volume; approximate it from
			// the OHLC mean
			QuoteVolume: volume * (open + high + low + closep) / 4,
			Completed:   true,
		})
	}
	return candles, nil
}
