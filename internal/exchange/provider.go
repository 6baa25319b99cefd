package exchange

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amirphl/price-feed/internal/asset"
	"github.com/amirphl/price-feed/internal/marketcache"
	"github.com/amirphl/price-feed/internal/ohlcv"
	"github.com/amirphl/price-feed/internal/utils"
)

// Provider wraps an Adapter with the exchange-independent pipeline: market
// list caching, pair-to-symbol resolution (with inversion) and alignment of
// sparse candle responses to the requested timeline. Pairs in the same
// fetch batch hit one Provider concurrently, so its caches are
// mutex-guarded.
type Provider struct {
	adapter Adapter
	cache   marketcache.Cache

	mu              sync.Mutex
	markets         map[string]struct{}
	marketsLoadedAt time.Time
	symbols         map[string]*SymbolInfo
}

// NewProvider wraps an adapter. cache may be nil, in which case market
// lists are only held in memory.
func NewProvider(adapter Adapter, cache marketcache.Cache) *Provider {
	return &Provider{
		adapter: adapter,
		cache:   cache,
		symbols: map[string]*SymbolInfo{},
	}
}

func (p *Provider) Name() string {
	return p.adapter.Name()
}

// MarketsFresh reports whether the market list was loaded within maxAge.
func (p *Provider) MarketsFresh(maxAge time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.marketsLoadedAt.IsZero() && time.Since(p.marketsLoadedAt) < maxAge
}

// MarketsLoaded reports whether any market list (possibly stale) is held.
func (p *Provider) MarketsLoaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.markets != nil
}

// LoadMarkets refreshes the market list, consulting the shared cache before
// hitting the venue, and drops every cached symbol resolution. A failure
// leaves the previous (stale) list in place.
func (p *Provider) LoadMarkets(ctx context.Context, timeout time.Duration) error {
	name := p.Name()
	if p.cache != nil {
		cached, err := p.cache.Get(ctx, name)
		if err != nil {
			utils.GetLogger().Printf("Exchange | %s market cache read failed: %v", name, err)
		} else if cached != nil {
			p.setMarkets(cached)
			return nil
		}
	}

	loadCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	markets, err := p.adapter.LoadMarkets(loadCtx)
	if err != nil {
		return fmt.Errorf("%s: load markets: %w", name, err)
	}
	p.setMarkets(markets)
	if p.cache != nil {
		if err := p.cache.Set(ctx, name, markets); err != nil {
			utils.GetLogger().Printf("Exchange | %s market cache write failed: %v", name, err)
		}
	}
	return nil
}

func (p *Provider) setMarkets(markets []string) {
	set := make(map[string]struct{}, len(markets))
	for _, m := range markets {
		set[m] = struct{}{}
	}
	p.mu.Lock()
	p.markets = set
	p.marketsLoadedAt = time.Now()
	p.symbols = map[string]*SymbolInfo{}
	p.mu.Unlock()
}

// SymbolInfo resolves a pair against the loaded market list, trying every
// base alias crossed with every quote alias in the direct orientation
// first, then in the inverted one. The result, including a failed
// resolution, is cached until the market list reloads.
func (p *Provider) SymbolInfo(pair asset.Pair) *SymbolInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	if info, ok := p.symbols[pair.Name]; ok {
		return info
	}
	info := p.lookupSymbol(pair.Base, pair.Quote, false)
	if info == nil {
		info = p.lookupSymbol(pair.Quote, pair.Base, true)
	}
	p.symbols[pair.Name] = info
	return info
}

// lookupSymbol must be called with p.mu held.
func (p *Provider) lookupSymbol(base, quote *asset.Asset, inversed bool) *SymbolInfo {
	for _, b := range base.Aliases {
		for _, q := range quote.Aliases {
			symbol := p.adapter.FormatSymbol(b, q)
			if _, ok := p.markets[symbol]; ok {
				return &SymbolInfo{Symbol: symbol, Inversed: inversed}
			}
		}
	}
	return nil
}

// TradesData returns a count-length bucket series aligned to
// timestamp+i*timeframe. Self-pairs yield unit buckets without touching the
// network; pairs with no market on this venue yield an all-gap series so
// callers can tell "no market" from a transient fetch failure.
func (p *Provider) TradesData(ctx context.Context, pair asset.Pair, timestamp int64, timeframe, count int, timeout time.Duration) ([]ohlcv.TradeBucket, error) {
	if count < 1 {
		return nil, errors.New("count must be greater than 0")
	}
	timeframeSeconds := int64(timeframe) * 60
	if pair.Base.Name == pair.Quote.Name {
		buckets := make([]ohlcv.TradeBucket, count)
		for i := range buckets {
			buckets[i] = ohlcv.UnitBucket(timestamp+int64(i)*timeframeSeconds, p.Name())
		}
		return buckets, nil
	}
	info := p.SymbolInfo(pair)
	if info == nil {
		return p.reconcile(nil, timestamp, timeframeSeconds, count, false)
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	raw, err := p.adapter.FetchCandles(fetchCtx, info.Symbol, timestamp, timeframe, count)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch candles for %s: %w", p.Name(), pair.Name, err)
	}
	return p.reconcile(raw, timestamp, timeframeSeconds, count, info.Inversed)
}

// reconcile walks the expected timeline and places the raw candle whose
// native timestamp matches each slot, synthesizing zero-volume buckets for
// slots the venue reported nothing for. The resulting sequence is then
// checked for exact arithmetic alignment.
func (p *Provider) reconcile(raw []ohlcv.Candle, start, timeframeSeconds int64, count int, inversed bool) ([]ohlcv.TradeBucket, error) {
	byTimestamp := make(map[int64]ohlcv.Candle, len(raw))
	for _, c := range raw {
		byTimestamp[c.Timestamp] = c
	}
	buckets := make([]ohlcv.TradeBucket, count)
	expected := start
	for i := 0; i < count; i++ {
		if c, ok := byTimestamp[expected]; ok {
			buckets[i] = ohlcv.NewTradeBucket(c, inversed, p.Name())
		} else {
			buckets[i] = ohlcv.GapBucket(expected, p.Name())
		}
		expected += timeframeSeconds
	}
	if err := validateTimestamps(start, buckets, timeframeSeconds); err != nil {
		return nil, err
	}
	return buckets, nil
}

// validateTimestamps guards against venue pagination and off-by-one bugs:
// every bucket must sit exactly on its expected slot.
func validateTimestamps(start int64, buckets []ohlcv.TradeBucket, timeframeSeconds int64) error {
	expected := start
	for _, b := range buckets {
		if b.Timestamp != expected {
			return fmt.Errorf("%w: %d != %d", ErrTimestampMismatch, b.Timestamp, expected)
		}
		expected += timeframeSeconds
	}
	return nil
}

// OHLCV fetches and normalizes the single candle at timestamp, the
// snapshot-mode counterpart of TradesData. Returns nil (no error) when the
// pair has no market on this venue or the venue reported no candle.
func (p *Provider) OHLCV(ctx context.Context, pair asset.Pair, timestamp int64, timeframe, decimals int, timeout time.Duration) (*ohlcv.OHLCV, error) {
	if pair.Base.Name == pair.Quote.Name {
		return ohlcv.Unit(decimals, p.Name()), nil
	}
	info := p.SymbolInfo(pair)
	if info == nil {
		return nil, nil
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	raw, err := p.adapter.FetchCandles(fetchCtx, info.Symbol, timestamp, timeframe, 1)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch candle for %s: %w", p.Name(), pair.Name, err)
	}
	candle, ok := candleAt(raw, timestamp)
	if !ok {
		return nil, nil
	}
	o, err := ohlcv.NewOHLCV(candle, decimals, info.Inversed, p.Name())
	if err != nil {
		return nil, fmt.Errorf("%s: normalize candle for %s: %w", p.Name(), pair.Name, err)
	}
	return o, nil
}

// candleAt scans for the candle matching the requested timestamp; some
// venues have no limit=1 equivalent and return surrounding candles too.
func candleAt(raw []ohlcv.Candle, timestamp int64) (ohlcv.Candle, bool) {
	for _, c := range raw {
		if c.Timestamp == timestamp {
			return c, true
		}
	}
	return ohlcv.Candle{}, false
}
