package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveTransmission(t *testing.T) {
	m := New("")

	m.ObserveTransmission("living-ac", nil)
	m.ObserveTransmission("living-ac", nil)
	m.ObserveTransmission("living-ac", errors.New("serial write failed"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transmissions.WithLabelValues("living-ac", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transmissions.WithLabelValues("living-ac", ResultError)))
}

func TestObserveFailures(t *testing.T) {
	m := New("test")

	m.ObserveLookupMiss("living-ac", "fan")
	m.ObserveAdapterFailure("living-ac", "sensor")
	m.ObserveAdapterFailure("living-ac", "sensor")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookupMisses.WithLabelValues("living-ac", "fan")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.adapterFailures.WithLabelValues("living-ac", "sensor")))
}

func TestObserveState(t *testing.T) {
	m := New("")
	ambient := 26.5

	m.ObserveState("living-ac", true, false, 22, &ambient, 4289)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.power.WithLabelValues("living-ac")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.away.WithLabelValues("living-ac")))
	assert.Equal(t, 22.0, testutil.ToFloat64(m.target.WithLabelValues("living-ac")))
	assert.Equal(t, 26.5, testutil.ToFloat64(m.ambient.WithLabelValues("living-ac")))
	assert.Equal(t, 4289.0, testutil.ToFloat64(m.features.WithLabelValues("living-ac")))

	m.ObserveState("living-ac", false, false, 22, nil, 4096)
	assert.Equal(t, 0, testutil.CollectAndCount(m.ambient))
}

func TestHandler(t *testing.T) {
	m := New("irclimate")
	m.ObserveTransmission("living-ac", nil)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `irclimate_ir_transmissions_total{device_id="living-ac",result="ok"} 1`))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveTransmission("x", nil)
	m.ObserveLookupMiss("x", "fan")
	m.ObserveAdapterFailure("x", "power")
	m.ObserveState("x", true, true, 20, nil, 0)
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
