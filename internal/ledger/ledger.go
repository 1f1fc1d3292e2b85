// Package ledger defines the append-only expense row store shared by all
// storage backends. Rows are stringly typed to match the spreadsheet wire
// format; interpretation (amount parsing, time windows) happens in the
// conversation engine.
package ledger

import "context"

// TimeLayout is the timestamp format persisted in rows: minute precision,
// no seconds or timezone.
const TimeLayout = "2006-01-02 15:04"

// Row is one persisted expense record.
type Row struct {
	Timestamp string
	Sender    string
	Category  string
	Amount    string
	Notes     string
}

// Store provides append and full-scan read over the expense ledger.
// Append must be atomic per row; ReadAll excludes any header row and
// returns rows in append order.
type Store interface {
	Append(ctx context.Context, row Row) error
	ReadAll(ctx context.Context) ([]Row, error)
}
