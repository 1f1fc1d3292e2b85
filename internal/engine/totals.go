package engine

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fieldops/spendbot/core/logger"
	"github.com/fieldops/spendbot/internal/ledger"
	"log/slog"
)

// Total scans the ledger and sums the sender's amounts. A positive days
// limits the scan to rows whose elapsed whole days since now are below
// days; zero means all time. The window is a rolling 24h-multiple, not
// calendar-aligned: a row qualifies for "today" while fewer than 24 full
// hours have passed.
//
// Rows whose amount does not parse are excluded, never fatal. Within a
// windowed scan the same applies to rows whose timestamp does not parse;
// all-time scans never look at timestamps.
func (e *Engine) Total(ctx context.Context, sender string, days int) (decimal.Decimal, error) {
	start := time.Now()
	rows, err := e.store.ReadAll(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	now := e.now()
	total := decimal.Zero
	matched, skipped := 0, 0
	for _, row := range rows {
		if row.Sender != sender {
			continue
		}
		if days > 0 {
			ts, err := time.ParseInLocation(ledger.TimeLayout, row.Timestamp, now.Location())
			if err != nil {
				skipped++
				continue
			}
			if elapsedDays(now, ts) >= days {
				continue
			}
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(row.Amount))
		if err != nil {
			skipped++
			continue
		}
		total = total.Add(amount)
		matched++
	}

	if skipped > 0 {
		rowsSkipped.Add(float64(skipped))
		logger.Warn(ctx, "engine", "totals.rows_skipped",
			slog.Int("skipped", skipped),
			slog.Int("window_days", days),
		)
	}
	totalsComputed.WithLabelValues(windowLabel(days)).Inc()
	logger.Debug(ctx, "engine", "totals.computed",
		slog.String("status", "ok"),
		slog.Int("window_days", days),
		slog.Int("rows", matched),
		slog.String("amount", total.String()),
		slog.Duration("duration", logger.Took(start)),
	)
	return total, nil
}

// elapsedDays returns the whole days between ts and now, floored, matching
// the exclusion rule "elapsed full days >= N".
func elapsedDays(now, ts time.Time) int {
	return int(math.Floor(now.Sub(ts).Hours() / 24))
}

func windowLabel(days int) string {
	if days <= 0 {
		return "all_time"
	}
	return strconv.Itoa(days) + "d"
}
