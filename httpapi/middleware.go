package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// requestMetrics mirrors dzyanis-ent/main.go's requestDurations,
// requestBytes, and responseBytes vectors, relabeled for driftbox's
// verbs instead of ent's bucket/operation pair.
type requestMetrics struct {
	duration *prometheus.SummaryVec
	reqBytes *prometheus.CounterVec
	resBytes *prometheus.CounterVec
}

func newRequestMetrics(reg prometheus.Registerer) *requestMetrics {
	labels := []string{"operation", "status"}
	m := &requestMetrics{
		duration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Namespace: "driftbox",
			Name:      "http_request_duration_seconds",
			Help:      "Time driftbox spent answering HTTP requests.",
		}, labels),
		reqBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "driftbox",
			Name:      "http_request_bytes_total",
			Help:      "Total volume of request payloads received.",
		}, labels),
		resBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "driftbox",
			Name:      "http_response_bytes_total",
			Help:      "Total volume of response payloads sent.",
		}, labels),
	}
	if reg != nil {
		reg.MustRegister(m.duration, m.reqBytes, m.resBytes)
	}
	return m
}

type countingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *countingResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *countingResponseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.size += n
	return n, err
}

func (w *countingResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func withMetrics(m *requestMetrics, operation string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rc := &countingResponseWriter{ResponseWriter: w}

		next(rc, r)

		labels := prometheus.Labels{
			"operation": operation,
			"status":    strconv.Itoa(rc.status),
		}
		m.duration.With(labels).Observe(time.Since(start).Seconds())
		m.reqBytes.With(labels).Add(float64(r.ContentLength))
		m.resBytes.With(labels).Add(float64(rc.size))
	}
}

// withCORS mirrors dzyanis-ent/main.go's addCORSHeaders, applied to the
// read-only routes (GET /files/{path}, GET /diagnostics) that browsers
// may fetch cross-origin.
func withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next(w, r)
	}
}
