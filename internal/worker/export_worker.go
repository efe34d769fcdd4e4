// Package worker drains activity events from the broker into the
// spreadsheet report.
package worker

import (
	"context"
	"errors"
	"time"

	"runpay/internal/amqp"
	"runpay/internal/log"
	"runpay/internal/sheets"

	"golang.org/x/sync/errgroup"
)

// Source delivers activity events with manual acknowledgement.
type Source interface {
	ConsumeActivity(ctx context.Context, prefetch int, handler func(context.Context, amqp.Delivery)) error
}

// Observer is told about every batch written or failed.
type Observer interface {
	ObserveExport(rows int, err error)
}

type Config struct {
	BatchSize     int
	FlushInterval time.Duration
}

// ExportWorker appends events to the report in batches. A batch is acked
// only after the sheet accepted it; failed batches go back to the queue.
type ExportWorker struct {
	source   Source
	writer   sheets.ActivityWriter
	cfg      Config
	logger   *log.Logger
	observer Observer
}

func NewExportWorker(source Source, writer sheets.ActivityWriter, cfg Config, logger *log.Logger, observer Observer) *ExportWorker {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 10
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ExportWorker{
		source:   source,
		writer:   writer,
		cfg:      cfg,
		logger:   logger.WithComponent(log.ComponentWorker),
		observer: observer,
	}
}

// Run consumes until ctx is done. Cancellation is a clean stop.
func (w *ExportWorker) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	in := make(chan amqp.Delivery)

	g.Go(func() error {
		defer close(in)
		return w.source.ConsumeActivity(gctx, w.cfg.BatchSize, func(ctx context.Context, d amqp.Delivery) {
			select {
			case in <- d:
			case <-ctx.Done():
				d.Nack(true)
			}
		})
	})
	g.Go(func() error {
		return w.batchLoop(gctx, in)
	})

	w.logger.InfoContext(ctx, "Export worker started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval.String())

	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		w.logger.InfoContext(ctx, "Export worker stopped")
		return nil
	}
	return err
}

func (w *ExportWorker) batchLoop(ctx context.Context, in <-chan amqp.Delivery) error {
	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	var batch []amqp.Delivery
	for {
		select {
		case d, ok := <-in:
			if !ok {
				w.requeue(batch)
				return ctx.Err()
			}
			batch = append(batch, d)
			if len(batch) >= w.cfg.BatchSize {
				w.flush(ctx, batch)
				batch = nil
			}
		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(ctx, batch)
				batch = nil
			}
		case <-ctx.Done():
			w.requeue(batch)
			return ctx.Err()
		}
	}
}

func (w *ExportWorker) flush(ctx context.Context, batch []amqp.Delivery) {
	rows := make([]sheets.ActivityRow, len(batch))
	for i, d := range batch {
		rows[i] = RowFromEvent(d.Event)
	}

	n, err := w.writer.AppendActivity(ctx, rows)
	if w.observer != nil {
		w.observer.ObserveExport(len(rows), err)
	}
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to append activity rows",
			log.FieldOperation, log.OpAppend, "rows", len(rows), log.FieldError, err)
		w.requeue(batch)
		return
	}

	for _, d := range batch {
		if err := d.Ack(); err != nil {
			w.logger.WarnContext(ctx, "Failed to ack delivery",
				log.FieldEntryID, d.Event.EntryID.String(), log.FieldError, err)
		}
	}
	w.logger.InfoContext(ctx, "Exported activity batch", log.FieldOperation, log.OpAppend, "rows", n)
}

func (w *ExportWorker) requeue(batch []amqp.Delivery) {
	for _, d := range batch {
		if err := d.Nack(true); err != nil {
			w.logger.Warn("Failed to requeue delivery",
				log.FieldEntryID, d.Event.EntryID.String(), log.FieldError, err)
		}
	}
}

// RowFromEvent maps an event onto a report row.
func RowFromEvent(ev *amqp.ActivityEvent) sheets.ActivityRow {
	return sheets.ActivityRow{
		Time:        ev.Time,
		EntryID:     ev.EntryID,
		Kind:        string(ev.Kind),
		Status:      string(ev.Status),
		Description: ev.Description,
		Amount:      ev.Amount,
		From:        string(ev.From),
		To:          string(ev.To),
		Reason:      ev.Reason,
	}
}
