// Package postgres backs the expense ledger with a Postgres table for
// deployments that prefer a database over a spreadsheet.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fieldops/spendbot/core/logger"
	"github.com/fieldops/spendbot/internal/ledger"
	"log/slog"
)

type store struct {
	db *sqlx.DB
}

type expenseRow struct {
	RecordedAt string `db:"recorded_at"`
	Sender     string `db:"sender"`
	Category   string `db:"category"`
	Amount     string `db:"amount"`
	Notes      string `db:"notes"`
}

// New wraps an open sqlx connection as a ledger Store. Schema is managed
// by core/database.RunMigrations.
func New(db *sqlx.DB) ledger.Store {
	return &store{db: db}
}

// Append inserts one expense row.
func (s *store) Append(ctx context.Context, row ledger.Row) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses (recorded_at, sender, category, amount, notes)
		 VALUES ($1, $2, $3, $4, $5)`,
		row.Timestamp, row.Sender, row.Category, row.Amount, row.Notes,
	)
	if err != nil {
		logger.LDG.Error("append failed",
			slog.String("event", "ledger.append"),
			slog.String("backend", "postgres"),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("postgres append: %w", err)
	}
	logger.LDG.Debug("row appended",
		slog.String("event", "ledger.append"),
		slog.String("backend", "postgres"),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// ReadAll returns every expense row in insertion order.
func (s *store) ReadAll(ctx context.Context) ([]ledger.Row, error) {
	start := time.Now()
	var recs []expenseRow
	err := s.db.SelectContext(ctx, &recs,
		`SELECT recorded_at, sender, category, amount, notes FROM expenses ORDER BY id`)
	if err != nil {
		logger.LDG.Error("read failed",
			slog.String("event", "ledger.read"),
			slog.String("backend", "postgres"),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("postgres read: %w", err)
	}

	rows := make([]ledger.Row, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, ledger.Row{
			Timestamp: r.RecordedAt,
			Sender:    r.Sender,
			Category:  r.Category,
			Amount:    r.Amount,
			Notes:     r.Notes,
		})
	}
	logger.LDG.Debug("rows read",
		slog.String("event", "ledger.read"),
		slog.String("backend", "postgres"),
		slog.Int("rows", len(rows)),
		slog.Duration("duration", logger.Took(start)),
	)
	return rows, nil
}
