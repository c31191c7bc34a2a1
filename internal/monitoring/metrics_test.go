package monitoring

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return NewMetricsWithRegistry(reg, reg)
}

func TestMetrics_Record(t *testing.T) {
	m := newTestMetrics()

	m.RecordAddressCreated("user")
	m.RecordAddressCreated("user")
	m.RecordAddressCreated("forwarded")
	m.RecordResolve("wildcard")
	m.RecordQuotaUnavailable()
	m.RecordRename(map[string]int64{"addresses": 2, "users": 1}, []string{"dkim"}, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AddressesCreated.WithLabelValues("user")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AddressesCreated.WithLabelValues("forwarded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResolveTotal.WithLabelValues("wildcard")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuotaUnavailable))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RenameModified.WithLabelValues("addresses")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RenameFailures.WithLabelValues("dkim")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", "/x", "200", time.Millisecond)
		m.RecordAddressCreated("user")
		m.RecordResolve("miss")
		m.RecordError("NotFound", "http")
		m.RecordPanic()
	})
}

func TestMetrics_HTTPHandler(t *testing.T) {
	m := newTestMetrics()
	m.RecordHTTPRequest("GET", "/api/addresses", "200", 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.HTTPHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `maildir_http_requests_total{endpoint="/api/addresses",method="GET",status_code="200"} 1`)
}
