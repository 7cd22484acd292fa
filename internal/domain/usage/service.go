// Package usage is the per-tenant ledger of realized model consumption: the
// source of truth every quota decision reads from. Rows are append-only;
// aggregates are materialized on demand and cached with a TTL.
package usage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/outreachly/costgate/internal/clock"
	"github.com/outreachly/costgate/internal/domain/pricing"
)

// DefaultStorageTimeout bounds a single ledger read or write.
const DefaultStorageTimeout = 30 * time.Second

// Ledger provides snapshot reads and usage writes over the entry repository.
type Ledger struct {
	entries EntryRepository
	cache   SnapshotCache
	model   *pricing.Model
	clk     clock.Clock
	timeout time.Duration
	logger  *slog.Logger
}

// NewLedger creates a usage ledger. A non-positive storageTimeout falls back
// to DefaultStorageTimeout.
func NewLedger(
	entries EntryRepository,
	cache SnapshotCache,
	model *pricing.Model,
	clk clock.Clock,
	storageTimeout time.Duration,
	logger *slog.Logger,
) *Ledger {
	if storageTimeout <= 0 {
		storageTimeout = DefaultStorageTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		entries: entries,
		cache:   cache,
		model:   model,
		clk:     clk,
		timeout: storageTimeout,
		logger:  logger,
	}
}

// Snapshot returns the tenant's current-day and current-month aggregates,
// served from cache within the TTL. A storage failure returns the error
// unwrapped into a zero snapshot; the admission controller owns the
// fail-open/fail-closed decision.
func (l *Ledger) Snapshot(ctx context.Context, clientID string) (Snapshot, error) {
	if strings.TrimSpace(clientID) == "" {
		return Snapshot{}, ErrEmptyClientID
	}

	day := l.clk.Today()
	month := l.clk.Month()
	key := CacheKey{ClientID: clientID, Day: day, Month: month}

	if snap, ok := l.cache.Get(key); ok {
		return snap, nil
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	dayTotals, monthTotals, err := l.entries.Totals(ctx, clientID, day, month)
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading usage snapshot for %s: %w", clientID, err)
	}

	snap := Snapshot{
		DailyTokens:   dayTotals.Tokens,
		MonthlyTokens: monthTotals.Tokens,
		DailyCost:     dayTotals.Cost,
		MonthlyCost:   monthTotals.Cost,
		AsOf:          l.clk.Now(),
	}
	l.cache.Put(key, snap)
	return snap, nil
}

// Record appends one realized-usage row and invalidates the tenant's cached
// snapshots. When cost is nil it is computed from the cost model. Invalid
// counters are returned as argument errors; a storage failure is logged but
// not returned, because the caller has already spent the money and the
// ledger must not mask that.
func (l *Ledger) Record(ctx context.Context, clientID string, inputTokens, outputTokens int64, cost *float64) error {
	if strings.TrimSpace(clientID) == "" {
		return ErrEmptyClientID
	}
	if inputTokens < 0 || outputTokens < 0 {
		return ErrNegativeTokens
	}
	if cost != nil && *cost < 0 {
		return ErrNegativeCost
	}

	realized := l.model.Cost(inputTokens, outputTokens)
	if cost != nil {
		realized = *cost
	}

	entry := &Entry{
		ID:           uuid.NewString(),
		ClientID:     clientID,
		DateKey:      l.clk.Today(),
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         pricing.RoundCost(realized),
		Timestamp:    l.clk.Now(),
	}

	writeCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := l.entries.Append(writeCtx, entry); err != nil {
		l.logger.Error("usage ledger write failed",
			"client_id", clientID,
			"operation", "record_usage",
			"input_tokens", inputTokens,
			"output_tokens", outputTokens,
			"cost", entry.Cost,
			"error", err)
		return nil
	}

	l.cache.InvalidateClient(clientID)
	return nil
}

// Entries returns the raw ledger rows for one tenant-day, for audit and
// reconciliation tooling.
func (l *Ledger) Entries(ctx context.Context, clientID, dateKey string) ([]Entry, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, ErrEmptyClientID
	}
	if dateKey == "" {
		dateKey = l.clk.Today()
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	rows, err := l.entries.ListByDate(ctx, clientID, dateKey)
	if err != nil {
		return nil, fmt.Errorf("listing usage for %s on %s: %w", clientID, dateKey, err)
	}
	return rows, nil
}
