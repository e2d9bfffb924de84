package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"MarketBreadth/internal/breadth"
	"MarketBreadth/internal/cache"
	"MarketBreadth/internal/collector"
	"MarketBreadth/internal/config"
	"MarketBreadth/internal/metrics"
	"MarketBreadth/internal/notifier"
	"MarketBreadth/internal/recorder"
	"MarketBreadth/internal/scheduler"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] MarketBreadth starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// Init fetcher
	var fetcher collector.HistoryFetcher
	switch cfg.DataSource.Provider {
	case "vstrader":
		fetcher = collector.NewVsTraderFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy, cfg.Fetch.Retry)
	case "binance":
		fetcher = collector.NewBinanceFetcher(cfg.DataSource.BaseURL, cfg.Proxy, cfg.Fetch.Retry)
	default:
		fetcher = collector.NewYahooFetcher(cfg.Proxy, cfg.Fetch.Retry)
	}
	log.Printf("[INFO] data source: %s", fetcher.Name())

	// Init series cache
	if opts, ok := cfg.CacheOptions(); ok {
		if opts.Backend == "sqlite" {
			ensureDir(opts.SQLitePath)
		}
		store, err := cache.Open(opts)
		if err != nil {
			log.Printf("[WARN] init %s cache failed, fetching uncached: %v", opts.Backend, err)
		} else {
			defer func() {
				if err := store.Close(); err != nil {
					log.Printf("[WARN] close cache: %v", err)
				}
			}()
			cf := collector.NewCachedFetcher(fetcher, store)
			cf.OnLookup = m.ObserveCache
			fetcher = cf
			log.Printf("[INFO] series cache: %s (ttl %v)", opts.Backend, opts.TTL)
		}
	}

	// Init universe
	var universe collector.UniverseProvider
	switch cfg.Universe.Provider {
	case "coingecko":
		universe = collector.NewCoinGeckoUniverse(cfg.Universe.APIKey, cfg.Proxy, cfg.Universe.Exclude, cfg.Fetch.Retry)
	default:
		universe = &collector.StaticUniverse{Symbols: cfg.Universe.Symbols}
	}

	pool := collector.NewPool(cfg.Fetch.Workers, cfg.Fetch.Timeout, cfg.Fetch.RequestsPerSecond)
	pool.OnFetch = m.ObserveFetch

	eng := breadth.NewEngine(universe, fetcher, pool)
	eng.Coverage = cfg.Coverage()
	eng.Window = cfg.Window()

	// Init notifier
	var (
		n  notifier.Notifier = notifier.LogNotifier{}
		tn *notifier.TelegramNotifier
	)
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, cfg.Fetch.Retry)
		n = tn
	} else {
		log.Println("[WARN] telegram not configured, reports go to the log")
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		ensureDir(cfg.Database.SQLitePath)
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics endpoint
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("[ERROR] metrics server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			srv.Shutdown(shutdownCtx)
		}()
		log.Printf("[INFO] metrics listening on %s", cfg.Metrics.Addr)
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, eng, cfg.Request(), cfg.Thresholds(), n, rec, m)
	sched.Reference = cfg.Breadth.Reference
	if cfg.Output.Path != "" {
		ensureDir(cfg.Output.Path)
		sched.ExportPath = cfg.Output.Path
	}
	if err := sched.Register(cfg.Schedule.DailyCron); err != nil {
		log.Fatalf("[FATAL] register cron task: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing breadth task now")
		go sched.RunNow()
	}

	log.Println("[INFO] MarketBreadth is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] MarketBreadth stopped")
}

func ensureDir(path string) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Printf("[WARN] create %s: %v", dir, err)
		}
	}
}
