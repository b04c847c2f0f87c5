package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics() *observability.Metrics {
	return observability.NewMetrics("test", prometheus.NewRegistry())
}

func TestMetrics_Success(t *testing.T) {
	metrics := newTestMetrics()

	r := chi.NewRouter()
	r.Use(Metrics(metrics))
	r.Get("/api/v1/checkout/version", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/checkout/version", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.Equal(t, float64(1), promtest.ToFloat64(
		metrics.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/checkout/version", "200")))
	assert.Equal(t, 1, promtest.CollectAndCount(metrics.HTTPRequestDuration))
}

func TestMetrics_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		label      string
	}{
		{"accepted", http.StatusAccepted, "202"},
		{"bad request", http.StatusBadRequest, "400"},
		{"conflict", http.StatusConflict, "409"},
		{"bad gateway", http.StatusBadGateway, "502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := newTestMetrics()

			r := chi.NewRouter()
			r.Use(Metrics(metrics))
			r.Post("/checkout", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("POST", "/checkout", nil))

			assert.Equal(t, tt.statusCode, w.Code)
			assert.Equal(t, float64(1), promtest.ToFloat64(
				metrics.HTTPRequestsTotal.WithLabelValues("POST", "/checkout", tt.label)))
		})
	}
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	metrics := newTestMetrics()

	r := chi.NewRouter()
	r.Use(Metrics(metrics))
	r.Get("/checkout/{id}", func(w http.ResponseWriter, r *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/checkout/3f1c", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/checkout/9a2b", nil))

	assert.Equal(t, float64(2), promtest.ToFloat64(
		metrics.HTTPRequestsTotal.WithLabelValues("GET", "/checkout/{id}", "200")))
}

func TestMetrics_Unmatched(t *testing.T) {
	metrics := newTestMetrics()

	wrapped := Metrics(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/nope/123", nil))

	assert.Equal(t, float64(1), promtest.ToFloat64(
		metrics.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestStatusWriter(t *testing.T) {
	t.Run("first header wins", func(t *testing.T) {
		w := httptest.NewRecorder()
		sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

		sw.WriteHeader(http.StatusAccepted)
		sw.WriteHeader(http.StatusInternalServerError)

		assert.Equal(t, http.StatusAccepted, sw.statusCode)
		assert.Equal(t, http.StatusAccepted, w.Code)
	})

	t.Run("write implies 200", func(t *testing.T) {
		w := httptest.NewRecorder()
		sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

		n, err := sw.Write([]byte("test"))
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		assert.Equal(t, http.StatusOK, sw.statusCode)
		assert.Same(t, w, sw.Unwrap())
	})
}
