// Package sales maintains the materialized per-stall, per-day aggregates of
// completed orders. Reports are always re-derivable from the order table;
// the aggregator overwrites, never increments, so recomputation is
// idempotent and safe to retry.
package sales

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Report is the daily sales aggregate for one stall. There is at most one
// report per (stall, date); the date is the calendar day the orders were
// created, not their pickup slot.
type Report struct {
	StallID      string
	Date         time.Time
	TotalOrders  int
	TotalRevenue decimal.Decimal
	UpdatedAt    time.Time
}

// Totals is the aggregate of completed orders for one (stall, day) bucket.
type Totals struct {
	Orders  int
	Revenue decimal.Decimal
}

// Repository defines the persistence operations the aggregator needs.
type Repository interface {
	// CompletedTotals computes order count and revenue of completed orders
	// created on the given calendar day, in a single consistent read.
	CompletedTotals(ctx context.Context, stallID string, date time.Time) (Totals, error)
	// UpsertReport overwrites the report row for (report.StallID, report.Date).
	UpsertReport(ctx context.Context, report Report) error
	// ListReports returns up to limit report rows ordered by date descending.
	ListReports(ctx context.Context, stallID string, limit int) ([]Report, error)
}

// Aggregator derives and stores daily sales reports.
type Aggregator struct {
	repo Repository
	now  func() time.Time
}

// NewAggregator creates an Aggregator backed by the given repository.
func NewAggregator(repo Repository) *Aggregator {
	return &Aggregator{repo: repo, now: time.Now}
}

// Recompute rebuilds the report for (stallID, date) from scratch. The
// aggregate is read once and written once, so concurrent recomputes for the
// same key converge on the same deterministic value; last writer wins.
func (a *Aggregator) Recompute(ctx context.Context, stallID string, date time.Time) error {
	day := Day(date)

	totals, err := a.repo.CompletedTotals(ctx, stallID, day)
	if err != nil {
		return errors.Wrap(err, "aggregate completed orders")
	}

	report := Report{
		StallID:      stallID,
		Date:         day,
		TotalOrders:  totals.Orders,
		TotalRevenue: totals.Revenue,
		UpdatedAt:    a.now(),
	}
	if err := a.repo.UpsertReport(ctx, report); err != nil {
		return errors.Wrap(err, "upsert report")
	}
	return nil
}

// ReportRange returns the most recent reports for the stall covering at
// most the given number of days, newest first. Days with no completed
// orders simply have no row; callers must not assume a contiguous series.
func (a *Aggregator) ReportRange(ctx context.Context, stallID string, days int) ([]Report, error) {
	if days < 1 {
		days = 1
	}
	reports, err := a.repo.ListReports(ctx, stallID, days)
	if err != nil {
		return nil, errors.Wrap(err, "list reports")
	}
	return reports, nil
}

// Day truncates t to its calendar date in UTC. All report bucketing goes
// through this so the database and the aggregator agree on day boundaries.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
