package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/campusride/internal/metrics"
)

func TestNew_IndependentRegistries(t *testing.T) {
	a := metrics.New()
	b := metrics.New()

	a.TxConflicts.WithLabelValues("ride").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.TxConflicts.WithLabelValues("ride")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.TxConflicts.WithLabelValues("ride")))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := metrics.New()
	m.TxConflicts.WithLabelValues("group").Add(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `campusride_tx_conflicts_total{entity="group"} 2`)
}
