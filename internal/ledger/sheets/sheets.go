// Package sheets backs the expense ledger with a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/fieldops/spendbot/core/logger"
	"github.com/fieldops/spendbot/internal/ledger"
	"log/slog"
)

// Config specifies the spreadsheet holding the ledger.
type Config struct {
	CredentialsFile string
	SpreadsheetID   string
	// Range addresses the five ledger columns, e.g. "Sheet1!A:E".
	Range string
}

type store struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	readRange     string
}

// New builds a Store that appends and reads rows via the Sheets API using
// service account credentials.
func New(ctx context.Context, cfg Config) (ledger.Store, error) {
	svc, err := sheetsapi.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(sheetsapi.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &store{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		readRange:     cfg.Range,
	}, nil
}

// Append adds one row after the current table data.
func (s *store) Append(ctx context.Context, row ledger.Row) error {
	vr := &sheetsapi.ValueRange{
		Values: [][]interface{}{{row.Timestamp, row.Sender, row.Category, row.Amount, row.Notes}},
	}

	start := time.Now()
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.readRange, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		logger.LDG.Error("append failed",
			slog.String("event", "ledger.append"),
			slog.String("backend", "sheets"),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("sheets append: %w", err)
	}
	logger.LDG.Debug("row appended",
		slog.String("event", "ledger.append"),
		slog.String("backend", "sheets"),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// ReadAll fetches every data row, skipping the header row.
func (s *store) ReadAll(ctx context.Context) ([]ledger.Row, error) {
	start := time.Now()
	vr, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).Context(ctx).Do()
	if err != nil {
		logger.LDG.Error("read failed",
			slog.String("event", "ledger.read"),
			slog.String("backend", "sheets"),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("sheets read: %w", err)
	}

	var rows []ledger.Row
	for i, cells := range vr.Values {
		if i == 0 {
			// header row
			continue
		}
		rows = append(rows, ledger.Row{
			Timestamp: cell(cells, 0),
			Sender:    cell(cells, 1),
			Category:  cell(cells, 2),
			Amount:    cell(cells, 3),
			Notes:     cell(cells, 4),
		})
	}
	logger.LDG.Debug("rows read",
		slog.String("event", "ledger.read"),
		slog.String("backend", "sheets"),
		slog.Int("rows", len(rows)),
		slog.Duration("duration", logger.Took(start)),
	)
	return rows, nil
}

func cell(cells []interface{}, i int) string {
	if i >= len(cells) {
		return ""
	}
	if s, ok := cells[i].(string); ok {
		return s
	}
	return fmt.Sprint(cells[i])
}
