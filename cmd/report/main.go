// Package main regenerates session reports from stored data.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"trend-paper-trader/internal/reporting"
	"trend-paper-trader/internal/storage"
	chstore "trend-paper-trader/internal/storage/clickhouse"
	pgstore "trend-paper-trader/internal/storage/postgres"
)

func main() {
	sessionID := flag.String("session", "", "Session ID to report on")
	symbol := flag.String("symbol", "BTCUSD", "Trading symbol for report metadata")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("TRADER_POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("TRADER_CLICKHOUSE_DSN"), "ClickHouse connection string")
	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	flag.Parse()

	if *sessionID == "" {
		fmt.Fprintln(os.Stderr, "Error: --session is required")
		os.Exit(1)
	}
	if *postgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn is required")
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to postgres: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()
	tradeStore := pgstore.NewTradeStore(pool)

	// Snapshots are optional; the report degrades without them.
	var snapshotStore storage.PortfolioSnapshotStore
	if *clickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to clickhouse: %v\n", err)
			os.Exit(1)
		}
		defer conn.Close()
		snapshotStore = chstore.NewPortfolioSnapshotStore(conn)
	}

	gen := reporting.NewGenerator(tradeStore, snapshotStore)
	report, err := gen.Generate(ctx, *sessionID, *symbol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output dir: %v\n", err)
		os.Exit(1)
	}

	mdPath := filepath.Join(*outputDir, fmt.Sprintf("session_%s.md", *sessionID))
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing markdown: %v\n", err)
		os.Exit(1)
	}

	csvPath := filepath.Join(*outputDir, fmt.Sprintf("trades_%s.csv", *sessionID))
	if err := os.WriteFile(csvPath, []byte(reporting.RenderTradesCSV(report.Trades)), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing CSV: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Report written:\n  %s\n  %s\n", mdPath, csvPath)
	fmt.Printf("Trades: %d | Total PnL: %.2f | Win rate: %.1f%%\n",
		report.Summary.TotalTrades, report.Summary.TotalPnL, report.Summary.WinRate*100)
}
