// Package main runs the paper-trading service: market data polling,
// signal detection, position management and persistence, with a
// Prometheus metrics endpoint and an end-of-session report.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"

	"trend-paper-trader/internal/config"
	"trend-paper-trader/internal/engine"
	"trend-paper-trader/internal/indicator"
	"trend-paper-trader/internal/marketdata"
	"trend-paper-trader/internal/monitor"
	"trend-paper-trader/internal/observability"
	"trend-paper-trader/internal/recorder"
	"trend-paper-trader/internal/reporting"
	"trend-paper-trader/internal/risk"
	"trend-paper-trader/internal/storage"
	chstore "trend-paper-trader/internal/storage/clickhouse"
	"trend-paper-trader/internal/storage/memory"
	"trend-paper-trader/internal/storage/migrations"
	pgstore "trend-paper-trader/internal/storage/postgres"
	"trend-paper-trader/internal/strategy"
)

// stores groups the persistence backends picked at startup.
type stores struct {
	trades    storage.TradeStore
	events    storage.EventStore
	snapshots storage.PortfolioSnapshotStore
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	symbol := flag.String("symbol", "", "Trading symbol (overrides config)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	outputDir := flag.String("output-dir", "output", "Output directory for the session report")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *symbol != "" {
		cfg.Symbol = *symbol
	}
	if *postgresDSN != "" {
		cfg.PostgresDSN = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.ClickhouseDSN = *clickhouseDSN
	}

	logger := newLogger(cfg.LogFile)
	sessionID := uuid.NewString()
	logger.Printf("Session %s: %s %s, capital %.2f, strategy %s",
		sessionID, cfg.Symbol, cfg.Interval, cfg.InitialCapital, cfg.StrategyVersion)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := createStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	rec, err := recorder.New(recorder.Options{
		Trades:    st.trades,
		Events:    st.events,
		Snapshots: st.snapshots,
		SessionID: sessionID,
		Symbol:    cfg.Symbol,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create recorder: %v", err)
	}

	metrics := observability.NewMetrics("")
	sink := engine.MultiSink{
		rec,
		observability.NewMetricsSink(metrics),
		recorder.NewLogSink(logger),
	}

	eng, err := buildEngine(cfg, sessionID, sink, logger)
	if err != nil {
		logger.Fatalf("Failed to build engine: %v", err)
	}

	feed, feedClose, err := createFeed(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create market data feed: %v", err)
	}
	defer feedClose()

	runner, err := monitor.NewRunner(monitor.RunnerOptions{
		Feed:           feed,
		Engine:         eng,
		Sink:           sink,
		Symbol:         cfg.Symbol,
		Interval:       cfg.Interval,
		CandleCount:    cfg.CandleCount,
		CandleInterval: cfg.CandleInterval,
		PriceInterval:  cfg.PriceInterval,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create runner: %v", err)
	}

	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go startHTTPServer(cfg.MetricsAddr, logger)

	err = runner.Run(ctx)
	if err != nil && err != context.Canceled {
		logger.Printf("Runner stopped with error: %v", err)
	}

	// Drain buffered snapshots before reporting.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := rec.Flush(flushCtx); err != nil {
		logger.Printf("Final snapshot flush failed: %v", err)
	}
	flushCancel()

	if err := writeReport(st, sessionID, cfg.Symbol, *outputDir, logger); err != nil {
		logger.Printf("Failed to write session report: %v", err)
	}

	close(done)
	logger.Println("Shutdown complete")
}

// newLogger writes to stdout, plus a rotating file when configured.
func newLogger(logFile string) *log.Logger {
	var w io.Writer = os.Stdout
	if logFile != "" {
		w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
	}
	return log.New(w, "[trader] ", log.LstdFlags|log.Lshortfile)
}

// createStores picks backends from the configured DSNs. Memory stores
// are the default; Postgres holds trades and the decision log,
// ClickHouse the equity timeseries.
func createStores(ctx context.Context, cfg *config.Config, logger *log.Logger) (*stores, func(), error) {
	st := &stores{
		trades:    memory.NewTradeStore(),
		events:    memory.NewEventStore(),
		snapshots: memory.NewPortfolioSnapshotStore(),
	}
	cleanup := func() {}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		st.trades = pgstore.NewTradeStore(pool)
		st.events = pgstore.NewEventStore(pool)
		prev := cleanup
		cleanup = func() { pool.Close(); prev() }
		logger.Println("Using PostgreSQL for trades and events")
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, cfg.ClickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		if err := migrations.RunClickhouse(ctx, conn); err != nil {
			conn.Close()
			cleanup()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		st.snapshots = chstore.NewPortfolioSnapshotStore(conn)
		prev := cleanup
		cleanup = func() { conn.Close(); prev() }
		logger.Println("Using ClickHouse for portfolio snapshots")
	}

	return st, cleanup, nil
}

// buildEngine assembles the strategy components from config.
func buildEngine(cfg *config.Config, sessionID string, sink engine.Sink, logger *log.Logger) (*engine.Manager, error) {
	calc, err := indicator.New(cfg.EMAShortPeriod, cfg.EMALongPeriod, cfg.ATRPeriod, cfg.SwingLookback)
	if err != nil {
		return nil, err
	}
	riskMgr, err := risk.NewManager(cfg.InitialCapital, cfg.RiskPerTrade, cfg.DailyLossLimitPct)
	if err != nil {
		return nil, err
	}
	detector, err := strategy.NewDetector(cfg.ATRMultiplier, cfg.RiskRewardRatio, riskMgr)
	if err != nil {
		return nil, err
	}

	return engine.New(engine.Options{
		Symbol:          cfg.Symbol,
		SessionID:       sessionID,
		StrategyVersion: cfg.Version(),
		InitialCapital:  cfg.InitialCapital,
		Calculator:      calc,
		Detector:        detector,
		TrailingStop:    strategy.NewTrailingStop(cfg.Version()),
		RiskManager:     riskMgr,
		Sink:            sink,
		Logger:          logger,
	})
}

// createFeed builds the REST feed, layered under a websocket price
// stream when enabled.
func createFeed(ctx context.Context, cfg *config.Config, logger *log.Logger) (marketdata.Feed, func(), error) {
	rest := marketdata.NewHTTPFeed(cfg.APIBaseURL)
	if !cfg.EnableWS {
		return rest, func() {}, nil
	}

	ws, err := marketdata.NewWSFeed(ctx, cfg.WSEndpoint, rest, nil, cfg.Symbol)
	if err != nil {
		return nil, nil, err
	}
	logger.Printf("Streaming live prices from %s", cfg.WSEndpoint)
	return ws, func() { ws.Close() }, nil
}

// startHTTPServer serves health and Prometheus metrics.
func startHTTPServer(addr string, logger *log.Logger) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())

	logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("HTTP server error: %v", err)
	}
}

// writeReport renders the session summary and trade CSV.
func writeReport(st *stores, sessionID, symbol, outputDir string, logger *log.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	gen := reporting.NewGenerator(st.trades, st.snapshots)
	report, err := gen.Generate(ctx, sessionID, symbol)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	mdPath := filepath.Join(outputDir, fmt.Sprintf("session_%s.md", sessionID))
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}

	csvPath := filepath.Join(outputDir, fmt.Sprintf("trades_%s.csv", sessionID))
	if err := os.WriteFile(csvPath, []byte(reporting.RenderTradesCSV(report.Trades)), 0o644); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	logger.Printf("Session report written to %s and %s", mdPath, csvPath)
	return nil
}
