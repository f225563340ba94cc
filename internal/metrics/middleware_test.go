package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/regulations/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := counterValue(t, httpRequestsTotal.WithLabelValues(http.MethodGet, "/regulations/{id}", "418"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/regulations/abc", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	after := counterValue(t, httpRequestsTotal.WithLabelValues(http.MethodGet, "/regulations/{id}", "418"))
	assert.Equal(t, before+1, after)
}

func TestRegister_Idempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		RegisterHTTPMetrics()
		RegisterHTTPMetrics()
		RegisterWorkflowMetrics()
		RegisterWorkflowMetrics()
		RegisterIndexMetrics()
		RegisterIndexMetrics()
	})
}
