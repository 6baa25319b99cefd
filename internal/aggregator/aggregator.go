// Package aggregator
package aggregator

import (
	"context"
	"errors"
	"math/big"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amirphl/price-feed/internal/asset"
	"github.com/amirphl/price-feed/internal/consensus"
	"github.com/amirphl/price-feed/internal/exchange"
	"github.com/amirphl/price-feed/internal/marketcache"
	"github.com/amirphl/price-feed/internal/ohlcv"
	"github.com/amirphl/price-feed/internal/tfutils"
	"github.com/amirphl/price-feed/internal/utils"
)

const (
	// DefaultBatchSize is the number of pairs fetched concurrently against
	// one exchange.
	DefaultBatchSize = 10
	// DefaultBatchDelay is the minimum spacing between batch starts on the
	// same exchange, to stay under venue rate limits.
	DefaultBatchDelay = 2 * time.Second
	// DefaultTimeout applies per individual HTTP request.
	DefaultTimeout = 3 * time.Second

	marketsMaxAge = 6 * time.Hour
	fetchAttempts = 3
)

// DefaultSources lists the exchanges consulted when the caller does not
// restrict them. Gate is excluded by default: its candle volumes have been
// unreliable for thin markets.
var DefaultSources = []string{"binance", "bybit", "coinbase", "kraken", "okx", "wallex"}

// Options control one fetch run.
type Options struct {
	// BatchSize 0 means DefaultBatchSize; negative means a single batch.
	BatchSize int
	// BatchDelay 0 means DefaultBatchDelay.
	BatchDelay time.Duration
	// Timeout 0 means DefaultTimeout.
	Timeout time.Duration
	// Sources is an exchange-name allow-list; empty means DefaultSources.
	Sources []string
}

func (o Options) withDefaults() Options {
	if o.BatchSize == 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.BatchDelay == 0 {
		o.BatchDelay = DefaultBatchDelay
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if len(o.Sources) == 0 {
		o.Sources = DefaultSources
	}
	return o
}

// Service aggregates trade data across the supported exchange providers.
// One Service owns its providers' market and symbol caches; per-pair
// fetches within a batch run concurrently, batches per exchange run
// sequentially, and exchanges run independently of each other.
type Service struct {
	providers []*exchange.Provider
	router    *exchange.Router
}

// New builds a Service with the full provider list. router may be nil when
// no gateway routing is wanted; cache may be nil to keep market lists in
// memory only.
func New(router *exchange.Router, cache marketcache.Cache) *Service {
	if router == nil {
		router = exchange.NewRouter()
	}
	client := exchange.NewClient(router)
	return &Service{
		router: router,
		providers: []*exchange.Provider{
			exchange.NewProvider(exchange.NewBinance(client), cache),
			exchange.NewProvider(exchange.NewBybit(client), cache),
			exchange.NewProvider(exchange.NewOKX(client), cache),
			exchange.NewProvider(exchange.NewKraken(client), cache),
			exchange.NewProvider(exchange.NewCoinbase(client), cache),
			exchange.NewProvider(exchange.NewGate(client), cache),
			exchange.NewProvider(exchange.NewWallex(), cache),
		},
	}
}

// NewWithProviders builds a Service over an explicit provider list.
func NewWithProviders(router *exchange.Router, providers ...*exchange.Provider) *Service {
	if router == nil {
		router = exchange.NewRouter()
	}
	return &Service{router: router, providers: providers}
}

// Router exposes the gateway routing state for configuration.
func (s *Service) Router() *exchange.Router {
	return s.router
}

// GetTradesData fetches reconciled bucket series for every asset priced in
// baseAsset, starting at timestamp with count slots of timeframeSeconds
// each. The outer index follows assets; each entry holds one series per
// exchange that produced usable data. The only errors raised are the
// synchronous input-validation ones; exchange failures degrade to fewer
// contributing sources.
func (s *Service) GetTradesData(ctx context.Context, assets []string, baseAsset string, timestamp int64, timeframeSeconds, count int, opts Options) ([][][]ohlcv.TradeBucket, error) {
	if len(assets) == 0 {
		return [][][]ohlcv.TradeBucket{}, nil
	}
	timeframe, err := tfutils.MinutesFromSeconds(timeframeSeconds)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	pairs := s.pairs(assets, baseAsset)
	pairBatches := batches(pairs, opts.BatchSize)
	providers := s.activeProviders(opts.Sources)

	perProvider := make([][][]ohlcv.TradeBucket, len(providers))
	var g errgroup.Group
	for i, p := range providers {
		i, p := i, p
		g.Go(func() error {
			perProvider[i] = s.providerTradesData(ctx, p, pairBatches, timestamp, timeframe, count, opts)
			return nil
		})
	}
	// every exchange is awaited; a slow venue is never cancelled by a fast one
	_ = g.Wait()

	out := make([][][]ohlcv.TradeBucket, len(assets))
	for i := range assets {
		perAsset := [][]ohlcv.TradeBucket{}
		for _, series := range perProvider {
			if series == nil {
				continue
			}
			if series[i] != nil {
				perAsset = append(perAsset, series[i])
			}
		}
		out[i] = perAsset
	}
	return out, nil
}

// GetOHLCVs fetches one normalized candle per asset per exchange at a
// single timestamp (snapshot mode). timeframeSeconds follows the same
// contract as GetTradesData.
func (s *Service) GetOHLCVs(ctx context.Context, assets []string, baseAsset string, timestamp int64, timeframeSeconds, decimals int, opts Options) ([][]*ohlcv.OHLCV, error) {
	if len(assets) == 0 {
		return [][]*ohlcv.OHLCV{}, nil
	}
	timeframe, err := tfutils.MinutesFromSeconds(timeframeSeconds)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	pairs := s.pairs(assets, baseAsset)
	pairBatches := batches(pairs, opts.BatchSize)
	providers := s.activeProviders(opts.Sources)

	perProvider := make([][]*ohlcv.OHLCV, len(providers))
	var g errgroup.Group
	for i, p := range providers {
		i, p := i, p
		g.Go(func() error {
			perProvider[i] = s.providerOHLCVs(ctx, p, pairBatches, timestamp, timeframe, decimals, opts)
			return nil
		})
	}
	_ = g.Wait()

	out := make([][]*ohlcv.OHLCV, len(assets))
	for i := range assets {
		perAsset := []*ohlcv.OHLCV{}
		for _, candles := range perProvider {
			if candles == nil {
				continue
			}
			if candles[i] != nil {
				perAsset = append(perAsset, candles[i])
			}
		}
		out[i] = perAsset
	}
	return out, nil
}

// GetPrices returns one consensus price per asset at timestamp, zero when
// no source had usable data.
func (s *Service) GetPrices(ctx context.Context, assets []string, baseAsset string, timestamp int64, timeframeSeconds, decimals int, opts Options) ([]*big.Int, error) {
	ohlcvs, err := s.GetOHLCVs(ctx, assets, baseAsset, timestamp, timeframeSeconds, decimals, opts)
	if err != nil {
		return nil, err
	}
	prices := make([]*big.Int, len(ohlcvs))
	for i, perAsset := range ohlcvs {
		if p := consensus.OHLCVPrice(perAsset); p != nil {
			prices[i] = p
		} else {
			prices[i] = new(big.Int)
		}
	}
	return prices, nil
}

// GetConsensusSeries fetches bucket series and collapses them into one
// consensus price per slot per asset.
func (s *Service) GetConsensusSeries(ctx context.Context, assets []string, baseAsset string, timestamp int64, timeframeSeconds, count, decimals int, opts Options) ([][]*big.Int, error) {
	tradesData, err := s.GetTradesData(ctx, assets, baseAsset, timestamp, timeframeSeconds, count, opts)
	if err != nil {
		return nil, err
	}
	out := make([][]*big.Int, len(tradesData))
	for i, series := range tradesData {
		out[i] = consensus.SeriesPrices(series, decimals)
	}
	return out, nil
}

func (s *Service) pairs(assets []string, baseAsset string) []asset.Pair {
	quote := asset.Get(baseAsset)
	pairs := make([]asset.Pair, len(assets))
	for i, name := range assets {
		pairs[i] = asset.NewPair(asset.Get(name), quote)
	}
	return pairs
}

func (s *Service) activeProviders(sources []string) []*exchange.Provider {
	var active []*exchange.Provider
	for _, p := range s.providers {
		for _, name := range sources {
			if p.Name() == name {
				active = append(active, p)
				break
			}
		}
	}
	return active
}

// batches splits pairs preserving order. size <= 0 means one batch.
func batches(pairs []asset.Pair, size int) [][]asset.Pair {
	if size <= 0 {
		return [][]asset.Pair{pairs}
	}
	var out [][]asset.Pair
	for start := 0; start < len(pairs); start += size {
		out = append(out, pairs[start:min(start+size, len(pairs))])
	}
	return out
}

// providerTradesData runs one exchange's full pipeline: market freshness,
// then each batch concurrently pair-by-pair with inter-batch pacing.
// Returns nil when the exchange could not participate at all; individual
// pair slots are nil when their retries were exhausted.
func (s *Service) providerTradesData(ctx context.Context, p *exchange.Provider, pairBatches [][]asset.Pair, timestamp int64, timeframe, count int, opts Options) [][]ohlcv.TradeBucket {
	if err := s.ensureMarkets(ctx, p, opts.Timeout); err != nil {
		utils.GetLogger().Printf("Aggregator | %s skipped: %v", p.Name(), err)
		return nil
	}
	var all [][]ohlcv.TradeBucket
	for _, batch := range pairBatches {
		batchStart := time.Now()
		results := make([][]ohlcv.TradeBucket, len(batch))
		var g errgroup.Group
		for i, pair := range batch {
			i, pair := i, pair
			g.Go(func() error {
				results[i] = s.fetchPairTradesData(ctx, p, pair, timestamp, timeframe, count, opts.Timeout)
				return nil
			})
		}
		_ = g.Wait()
		all = append(all, results...)
		if !s.pace(ctx, batchStart, opts.BatchDelay) {
			return nil
		}
	}
	return all
}

func (s *Service) providerOHLCVs(ctx context.Context, p *exchange.Provider, pairBatches [][]asset.Pair, timestamp int64, timeframe, decimals int, opts Options) []*ohlcv.OHLCV {
	if err := s.ensureMarkets(ctx, p, opts.Timeout); err != nil {
		utils.GetLogger().Printf("Aggregator | %s skipped: %v", p.Name(), err)
		return nil
	}
	var all []*ohlcv.OHLCV
	for _, batch := range pairBatches {
		batchStart := time.Now()
		results := make([]*ohlcv.OHLCV, len(batch))
		var g errgroup.Group
		for i, pair := range batch {
			i, pair := i, pair
			g.Go(func() error {
				results[i] = s.fetchPairOHLCV(ctx, p, pair, timestamp, timeframe, decimals, opts.Timeout)
				return nil
			})
		}
		_ = g.Wait()
		all = append(all, results...)
		if !s.pace(ctx, batchStart, opts.BatchDelay) {
			return nil
		}
	}
	return all
}

// pace enforces the minimum spacing between batch starts, measured from
// batchStart so elapsed processing time counts toward the delay. Reports
// false when the context was cancelled while waiting.
func (s *Service) pace(ctx context.Context, batchStart time.Time, delay time.Duration) bool {
	if delay <= 0 {
		return true
	}
	remaining := delay - time.Since(batchStart)
	if remaining <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(remaining):
		return true
	}
}

// ensureMarkets reloads the market list when it is missing or older than
// six hours, with up to three attempts. On exhaustion a stale list is kept;
// only an exchange that never loaded markets is skipped.
func (s *Service) ensureMarkets(ctx context.Context, p *exchange.Provider, timeout time.Duration) error {
	if p.MarketsFresh(marketsMaxAge) {
		return nil
	}
	var err error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		if err = p.LoadMarkets(ctx, timeout); err == nil {
			return nil
		}
		utils.GetLogger().Printf("Aggregator | %s load markets attempt %d/%d failed: %v", p.Name(), attempt, fetchAttempts, err)
	}
	if p.MarketsLoaded() {
		utils.GetLogger().Printf("Aggregator | %s reusing stale market list: %v", p.Name(), err)
		return nil
	}
	return err
}

// fetchPairTradesData retries a single pair fetch up to three times.
// Incomplete candles count as a failed attempt; a timestamp mismatch drops
// the pair outright since retrying corrupted pagination never converges.
// Exhausted retries surface as nil, never as an error.
func (s *Service) fetchPairTradesData(ctx context.Context, p *exchange.Provider, pair asset.Pair, timestamp int64, timeframe, count int, timeout time.Duration) []ohlcv.TradeBucket {
	var lastErr error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		buckets, err := p.TradesData(ctx, pair, timestamp, timeframe, count, timeout)
		if err != nil {
			if errors.Is(err, exchange.ErrTimestampMismatch) {
				utils.GetLogger().Printf("Aggregator | %s dropped %s: %v", p.Name(), pair.Name, err)
				return nil
			}
			lastErr = err
			continue
		}
		if bucketsIncomplete(buckets) {
			lastErr = exchange.ErrIncompleteCandle
			continue
		}
		return buckets
	}
	if lastErr != nil {
		utils.GetLogger().Printf("Aggregator | %s failed to get data for %s: %v", p.Name(), pair.Name, lastErr)
	}
	return nil
}

func (s *Service) fetchPairOHLCV(ctx context.Context, p *exchange.Provider, pair asset.Pair, timestamp int64, timeframe, decimals int, timeout time.Duration) *ohlcv.OHLCV {
	var lastErr error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		candle, err := p.OHLCV(ctx, pair, timestamp, timeframe, decimals, timeout)
		if err != nil {
			if errors.Is(err, exchange.ErrTimestampMismatch) {
				utils.GetLogger().Printf("Aggregator | %s dropped %s: %v", p.Name(), pair.Name, err)
				return nil
			}
			lastErr = err
			continue
		}
		if candle == nil {
			// no market or no candle at that timestamp on this venue
			return nil
		}
		if !candle.Completed {
			lastErr = exchange.ErrIncompleteCandle
			continue
		}
		return candle
	}
	if lastErr != nil {
		utils.GetLogger().Printf("Aggregator | %s failed to get candle for %s: %v", p.Name(), pair.Name, lastErr)
	}
	return nil
}

func bucketsIncomplete(buckets []ohlcv.TradeBucket) bool {
	for _, b := range buckets {
		if !b.Completed {
			return true
		}
	}
	return false
}
