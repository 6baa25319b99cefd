package exchange

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/price-feed/internal/ohlcv"
)

const krakenAPIURL = "https://api.kraken.com/0"

type krakenAdapter struct {
	client  *Client
	baseURL string
}

// NewKraken returns the Kraken spot adapter.
func NewKraken(client *Client) Adapter {
	return &krakenAdapter{client: client, baseURL: krakenAPIURL}
}

func (k *krakenAdapter) Name() string {
	return "kraken"
}

func (k *krakenAdapter) FormatSymbol(base, quote string) string {
	return strings.ToUpper(base) + strings.ToUpper(quote)
}

func (k *krakenAdapter) LoadMarkets(ctx context.Context) ([]string, error) {
	var payload struct {
		Result map[string]struct {
			Altname string `json:"altname"`
			Status  string `json:"status"`
		} `json:"result"`
	}
	if err := k.client.GetJSON(ctx, k.baseURL+"/public/AssetPairs", &payload); err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(payload.Result))
	for _, m := range payload.Result {
		if strings.EqualFold(m.Status, "online") {
			symbols = append(symbols, m.Altname)
		}
	}
	return symbols, nil
}

func (k *krakenAdapter) FetchCandles(ctx context.Context, symbol string, timestamp int64, timeframe, count int) ([]ohlcv.Candle, error) {
	// since is exclusive, subtract a second to include the candle sitting
	// exactly on timestamp
	u := fmt.Sprintf("%s/public/OHLC?pair=%s&interval=%d&since=%d",
		k.baseURL, symbol, timeframe, timestamp-1)
	var payload struct {
		Error  []string       `json:"error"`
		Result map[string]any `json:"result"`
	}
	if err := k.client.GetJSON(ctx, u, &payload); err != nil {
		return nil, err
	}
	if len(payload.Error) > 0 {
		return nil, fmt.Errorf("kraken: %s", strings.Join(payload.Error, ", "))
	}

	// the result holds the klines under the pair name (not always equal to
	// the requested symbol) next to a "last" cursor
	var klines []any
	for key, value := range payload.Result {
		if key == "last" {
			continue
		}
		if list, ok := value.([]any); ok {
			klines = list
			break
		}
	}

	candles := make([]ohlcv.Candle, 0, len(klines))
	for _, row := range klines {
		cells, ok := row.([]any)
		if !ok || len(cells) < 7 {
			continue
		}
		volume := asFloat(cells[6])
		candles = append(candles, ohlcv.Candle{
			Timestamp:   asInt64(cells[0]),
			Open:        asFloat(cells[1]),
			High:        asFloat(cells[2]),
			Low:         asFloat(cells[3]),
			Close:       asFloat(cells[4]),
			Volume:      volume,
			QuoteVolume: asFloat(cells[5]) * volume, // vwap * volume
			Completed:   true,
		})
	}
	return candles, nil
}
