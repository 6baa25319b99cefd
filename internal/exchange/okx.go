package exchange

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/price-feed/internal/ohlcv"
)

const okxAPIURL = "https://www.okx.com/api/v5"

type okxAdapter struct {
	client  *Client
	baseURL string
}

// NewOKX returns the OKX spot adapter.
func NewOKX(client *Client) Adapter {
	return &okxAdapter{client: client, baseURL: okxAPIURL}
}

func (o *okxAdapter) Name() string {
	return "okx"
}

func (o *okxAdapter) FormatSymbol(base, quote string) string {
	return strings.ToUpper(base) + "-" + strings.ToUpper(quote)
}

func (o *okxAdapter) LoadMarkets(ctx context.Context) ([]string, error) {
	var payload struct {
		Data []struct {
			InstID string `json:"instId"`
			State  string `json:"state"`
		} `json:"data"`
	}
	if err := o.client.GetJSON(ctx, o.baseURL+"/public/instruments?instType=SPOT", &payload); err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(payload.Data))
	for _, m := range payload.Data {
		if strings.EqualFold(m.State, "live") {
			symbols = append(symbols, m.InstID)
		}
	}
	return symbols, nil
}

func (o *okxAdapter) FetchCandles(ctx context.Context, symbol string, timestamp int64, timeframe, count int) ([]ohlcv.Candle, error) {
	// before/after are exclusive millisecond bounds around the requested range
	timeframeMs := int64(timeframe) * 60000
	before := timestamp*1000 - timeframeMs
	after := timestamp*1000 + int64(count)*timeframeMs
	u := fmt.Sprintf("%s/market/candles?instId=%s&bar=%dm&before=%d&after=%d&limit=%d",
		o.baseURL, symbol, timeframe, before, after, count)
	var payload struct {
		Data [][]any `json:"data"`
	}
	if err := o.client.GetJSON(ctx, u, &payload); err != nil {
		return nil, err
	}
	candles := make([]ohlcv.Candle, 0, len(payload.Data))
	for _, k := range payload.Data {
		if len(k) < 9 {
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
			Completed:   asFloat(k[8]) == 1,
		})
	}
	return candles, nil
}
