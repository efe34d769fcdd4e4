package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"runpay/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestObserveEntry(t *testing.T) {
	m := New()
	m.ObserveEntry(core.LogEntry{Kind: core.KindTransfer, Status: core.StatusApplied}, 249000)
	m.ObserveEntry(core.LogEntry{Kind: core.KindTransfer, Status: core.StatusApplied}, 248000)
	m.ObserveEntry(core.LogEntry{Kind: core.KindUnknown, Status: core.StatusIgnored}, 248000)

	body := scrape(t, m)
	assert.Contains(t, body, `runpay_ledger_entries_total{kind="transfer",status="applied"} 2`)
	assert.Contains(t, body, `runpay_ledger_entries_total{kind="unknown",status="ignored"} 1`)
	assert.Contains(t, body, "runpay_ledger_treasury_balance 248000")
}

func TestObservePublishAndExport(t *testing.T) {
	m := New()
	m.ObservePublish(nil)
	m.ObservePublish(errors.New("down"))
	m.ObserveExport(3, nil)

	body := scrape(t, m)
	assert.Contains(t, body, `runpay_export_published_total{result="ok"} 1`)
	assert.Contains(t, body, `runpay_export_published_total{result="error"} 1`)
	assert.Contains(t, body, `runpay_export_rows_total{result="ok"} 3`)
}

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodPost, http.StatusCreated, 15*time.Millisecond)
	m.RateLimited()
	m.Suspicious()

	body := scrape(t, m)
	assert.Contains(t, body, `runpay_http_requests_total{code="201",method="POST"} 1`)
	assert.Contains(t, body, "runpay_http_rate_limited_total 1")
	assert.Contains(t, body, "runpay_http_suspicious_total 1")
	assert.Contains(t, body, `runpay_http_request_duration_seconds_count{method="POST"} 1`)
}
