package memory

import (
	"context"
	"sync"

	"runpay/internal/sheets"
)

// Writer keeps appended rows in memory. It stands in for the Google sheet
// when running the worker locally.
type Writer struct {
	mu      sync.Mutex
	rows    []sheets.ActivityRow
	failErr error
}

var _ sheets.ActivityWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{}
}

func (w *Writer) AppendActivity(ctx context.Context, rows []sheets.ActivityRow) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failErr != nil {
		err := w.failErr
		w.failErr = nil
		return 0, err
	}
	w.rows = append(w.rows, rows...)
	return len(rows), nil
}

// FailNext makes the next append fail with err.
func (w *Writer) FailNext(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failErr = err
}

// Rows returns a copy of everything appended so far.
func (w *Writer) Rows() []sheets.ActivityRow {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]sheets.ActivityRow(nil), w.rows...)
}
