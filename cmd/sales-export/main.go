// Command sales-export recomputes and exports daily sales reports. For
// every stall that has orders it rebuilds the last N days of reports and
// writes one gzip-compressed CSV per stall. Stalls are processed
// concurrently; reports for different stalls never share state.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/canteen-preorder/internal/domain/sales"
	"github.com/xenking/canteen-preorder/internal/repository"
)

const exportWorkers = 4

func main() {
	var (
		databaseURL string
		outDir      string
		days        int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&outDir, "out-dir", "exports", "directory for exported CSV files")
	flag.IntVar(&days, "days", 30, "number of days to recompute and export")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, outDir, days); err != nil {
		slog.Error("sales export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("sales export completed successfully")
}

func run(ctx context.Context, databaseURL, outDir string, days int) error {
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}

	salesRepo := repository.NewSalesRepository(pool)
	agg := sales.NewAggregator(salesRepo)

	stallIDs, err := salesRepo.ListStallIDs(ctx)
	if err != nil {
		return err
	}
	slog.Info("exporting sales", slog.Int("stalls", len(stallIDs)), slog.Int("days", days))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(exportWorkers)

	today := sales.Day(time.Now())
	for _, stallID := range stallIDs {
		g.Go(func() error {
			return exportStall(ctx, agg, stallID, today, days, outDir)
		})
	}
	return g.Wait()
}

// exportStall rebuilds the stall's reports for the window and writes them
// as a gzip-compressed CSV. Recompute is idempotent, so re-running an
// export never changes historical numbers that are already correct.
func exportStall(ctx context.Context, agg *sales.Aggregator, stallID string, today time.Time, days int, outDir string) error {
	for i := range days {
		day := today.AddDate(0, 0, -i)
		if err := agg.Recompute(ctx, stallID, day); err != nil {
			return errors.Wrapf(err, "recompute stall %s for %s", stallID, day.Format("2006-01-02"))
		}
	}

	reports, err := agg.ReportRange(ctx, stallID, days)
	if err != nil {
		return errors.Wrapf(err, "load reports for stall %s", stallID)
	}

	path := filepath.Join(outDir, fmt.Sprintf("sales-%s.csv.gz", stallID))
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create export file")
	}
	defer f.Close()

	gz := pgzip.NewWriter(f)
	w := csv.NewWriter(gz)

	if err := w.Write([]string{"report_date", "total_orders", "total_revenue"}); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, rep := range reports {
		row := []string{
			rep.Date.Format("2006-01-02"),
			fmt.Sprintf("%d", rep.TotalOrders),
			rep.TotalRevenue.StringFixed(2),
		}
		if err := w.Write(row); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "flush csv")
	}
	if err := gz.Close(); err != nil {
		return errors.Wrap(err, "close gzip stream")
	}

	slog.Info("exported stall", slog.String("stall_id", stallID), slog.Int("reports", len(reports)))
	return f.Close()
}
