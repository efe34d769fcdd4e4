// Package sheets holds the port for the spreadsheet activity report. The
// report is write-only: nothing reads it back into the ledger.
package sheets

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ActivityWriter appends rows to the activity report and returns how many
// were written.
type ActivityWriter interface {
	AppendActivity(ctx context.Context, rows []ActivityRow) (int, error)
}

// ActivityRow is one line of the report.
type ActivityRow struct {
	Time        time.Time
	EntryID     uuid.UUID
	Kind        string
	Status      string
	Description string
	Amount      decimal.Decimal
	From        string
	To          string
	Reason      string
}

// Header names the report columns in Values order.
func Header() []any {
	return []any{"Time", "Entry ID", "Kind", "Status", "Description", "Amount", "From", "To", "Reason"}
}

// Values renders the row for the sheet. Amounts go out as plain numbers so
// the sheet can sum them.
func (r ActivityRow) Values() []any {
	return []any{
		r.Time.UTC().Format(time.RFC3339),
		r.EntryID.String(),
		r.Kind,
		r.Status,
		r.Description,
		r.Amount.StringFixed(2),
		r.From,
		r.To,
		r.Reason,
	}
}
