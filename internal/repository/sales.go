package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/canteen-preorder/internal/domain/sales"
)

var _ sales.Repository = (*SalesRepository)(nil)

// SalesRepository implements sales.Repository backed by PostgreSQL.
type SalesRepository struct {
	pool *pgxpool.Pool
}

// NewSalesRepository returns a SalesRepository that uses the given pool.
func NewSalesRepository(pool *pgxpool.Pool) *SalesRepository {
	return &SalesRepository{pool: pool}
}

// CompletedTotals aggregates completed orders created on the given day in
// a single SELECT, so the count and sum always come from one consistent
// snapshot.
func (r *SalesRepository) CompletedTotals(ctx context.Context, stallID string, date time.Time) (sales.Totals, error) {
	day := sales.Day(date)

	var t sales.Totals
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM orders
		WHERE stall_id = $1
		  AND status = 'completed'
		  AND created_at >= $2
		  AND created_at < $2 + INTERVAL '1 day'`,
		stallID, day,
	).Scan(&t.Orders, &t.Revenue)
	if err != nil {
		return sales.Totals{}, fmt.Errorf("aggregating sales for stall %q on %s: %w",
			stallID, day.Format("2006-01-02"), err)
	}
	return t, nil
}

// UpsertReport overwrites the report row for (stall, date). Overwrite
// rather than increment keeps recomputation idempotent.
func (r *SalesRepository) UpsertReport(ctx context.Context, report sales.Report) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO daily_sales_reports (stall_id, report_date, total_orders, total_revenue)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (stall_id, report_date)
		DO UPDATE SET total_orders = EXCLUDED.total_orders,
		              total_revenue = EXCLUDED.total_revenue,
		              updated_at = now()`,
		report.StallID, report.Date, report.TotalOrders, report.TotalRevenue,
	)
	if err != nil {
		return fmt.Errorf("upserting report for stall %q: %w", report.StallID, err)
	}
	return nil
}

// ListReports returns up to limit report rows for the stall, newest first.
func (r *SalesRepository) ListReports(ctx context.Context, stallID string, limit int) ([]sales.Report, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT stall_id, report_date, total_orders, total_revenue, updated_at
		FROM daily_sales_reports
		WHERE stall_id = $1
		ORDER BY report_date DESC
		LIMIT $2`,
		stallID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing reports for stall %q: %w", stallID, err)
	}
	defer rows.Close()

	var out []sales.Report
	for rows.Next() {
		var rep sales.Report
		if err := rows.Scan(&rep.StallID, &rep.Date, &rep.TotalOrders, &rep.TotalRevenue, &rep.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning report: %w", err)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

// ListStallIDs returns the IDs of all stalls that have at least one order,
// for bulk recomputation and export tooling.
func (r *SalesRepository) ListStallIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT stall_id FROM orders ORDER BY stall_id`)
	if err != nil {
		return nil, fmt.Errorf("listing stall ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning stall id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
