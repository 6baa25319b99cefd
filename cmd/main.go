package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amirphl/price-feed/internal/aggregator"
	"github.com/amirphl/price-feed/internal/config"
	"github.com/amirphl/price-feed/internal/exchange"
	"github.com/amirphl/price-feed/internal/marketcache"
	"github.com/amirphl/price-feed/internal/priceutils"
	"github.com/amirphl/price-feed/internal/tfutils"
)

var (
	cfgPath   string
	assets    []string
	baseAsset string
	timestamp int64
	timeframe int
	count     int
	decimals  int
	sources   []string
)

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return cfg, err
	}
	if len(assets) > 0 {
		cfg.Assets = assets
	}
	if baseAsset != "" {
		cfg.BaseAsset = baseAsset
	}
	if timeframe > 0 {
		cfg.Timeframe = timeframe
	}
	if count > 0 {
		cfg.Count = count
	}
	if decimals > 0 {
		cfg.Decimals = decimals
	}
	if len(sources) > 0 {
		cfg.Sources = sources
	}
	return cfg, cfg.Validate()
}

func newService(cfg config.Config) (*aggregator.Service, error) {
	router := exchange.NewRouter()
	router.Configure(cfg.GatewayURLs, cfg.ValidationKey)
	var cache marketcache.Cache
	if cfg.RedisAddr != "" {
		redisCache, err := marketcache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, marketcache.DefaultTTL)
		if err != nil {
			return nil, err
		}
		cache = redisCache
	}
	return aggregator.New(router, cache), nil
}

// runTimestamp aligns the requested (or current) timestamp down to a closed
// timeframe boundary.
func runTimestamp(cfg config.Config) int64 {
	ts := timestamp
	if ts == 0 {
		ts = time.Now().Unix() - int64(cfg.Timeframe)
	}
	return tfutils.Normalize(ts, cfg.Timeframe)
}

func main() {
	root := &cobra.Command{
		Use:           "price-feed",
		Short:         "Aggregates crypto pair prices across exchanges into a consensus feed",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file")
	root.PersistentFlags().StringSliceVar(&assets, "assets", nil, "Asset tickers to price")
	root.PersistentFlags().StringVar(&baseAsset, "base", "", "Base asset the prices are expressed in")
	root.PersistentFlags().Int64Var(&timestamp, "timestamp", 0, "Unix timestamp of the first candle (default: latest closed)")
	root.PersistentFlags().IntVar(&timeframe, "timeframe", 0, "Timeframe in seconds (whole minutes, max 3600)")
	root.PersistentFlags().IntVar(&count, "count", 0, "Number of candles to fetch")
	root.PersistentFlags().IntVar(&decimals, "decimals", 0, "Fixed-point decimals for prices")
	root.PersistentFlags().StringSliceVar(&sources, "sources", nil, "Exchange allow-list")

	trades := &cobra.Command{
		Use:   "trades",
		Short: "Fetch reconciled per-exchange trade bucket series",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, err := newService(cfg)
			if err != nil {
				return err
			}
			data, err := svc.GetTradesData(cmd.Context(), cfg.Assets, cfg.BaseAsset, runTimestamp(cfg), cfg.Timeframe, cfg.Count, cfg.Options())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			for i, name := range cfg.Assets {
				if err := enc.Encode(map[string]any{"asset": name, "series": data[i]}); err != nil {
					return err
				}
			}
			return nil
		},
	}

	prices := &cobra.Command{
		Use:   "prices",
		Short: "Fetch one consensus price per asset",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, err := newService(cfg)
			if err != nil {
				return err
			}
			result, err := svc.GetPrices(cmd.Context(), cfg.Assets, cfg.BaseAsset, runTimestamp(cfg), cfg.Timeframe, cfg.Decimals, cfg.Options())
			if err != nil {
				return err
			}
			for i, name := range cfg.Assets {
				fmt.Printf("%s/%s: %s\n", name, cfg.BaseAsset, priceutils.Format(result[i], cfg.Decimals))
			}
			return nil
		},
	}

	root.AddCommand(trades, prices)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
