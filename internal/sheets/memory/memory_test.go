package memory

import (
	"context"
	"errors"
	"testing"

	"runpay/internal/sheets"
)

func TestWriterAppendAndFail(t *testing.T) {
	w := New()
	n, err := w.AppendActivity(context.Background(), []sheets.ActivityRow{{Kind: "transfer"}, {Kind: "summary"}})
	if err != nil || n != 2 {
		t.Fatalf("unexpected append: n=%d err=%v", n, err)
	}

	boom := errors.New("quota exceeded")
	w.FailNext(boom)
	if _, err := w.AppendActivity(context.Background(), []sheets.ActivityRow{{}}); !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	if _, err := w.AppendActivity(context.Background(), []sheets.ActivityRow{{Kind: "unknown"}}); err != nil {
		t.Fatalf("failure should only apply once: %v", err)
	}

	rows := w.Rows()
	if len(rows) != 3 || rows[2].Kind != "unknown" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestWriterHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().AppendActivity(ctx, []sheets.ActivityRow{{}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
