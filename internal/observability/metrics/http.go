package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	chatRequestsTotal   *prometheus.CounterVec
	chatDuration        *prometheus.HistogramVec
	retrievalHitTotal   *prometheus.CounterVec
	retrievalEmptyTotal *prometheus.CounterVec
	fusedEvidenceItems  *prometheus.HistogramVec
	invalidAnswersTotal *prometheus.CounterVec
	providerUsedTotal   *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ntria",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ntria",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ntria",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	chatRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ntria",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total completed chat requests by outcome.",
		},
		[]string{"service", "outcome"},
	)
	chatDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ntria",
			Subsystem: "chat",
			Name:      "duration_seconds",
			Help:      "Chat pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	retrievalHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ntria",
			Subsystem: "retrieval",
			Name:      "hit_total",
			Help:      "Total chat requests with at least one fused evidence item.",
		},
		[]string{"service"},
	)
	retrievalEmptyTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ntria",
			Subsystem: "retrieval",
			Name:      "empty_total",
			Help:      "Total chat requests where both retrievers came back empty.",
		},
		[]string{"service"},
	)
	fusedEvidenceItems := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ntria",
			Subsystem: "retrieval",
			Name:      "fused_items",
			Help:      "Distribution of fused evidence items per chat request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		},
		[]string{"service"},
	)
	invalidAnswersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ntria",
			Subsystem: "chat",
			Name:      "invalid_answers_total",
			Help:      "Total answers below the confidence validity threshold.",
		},
		[]string{"service"},
	)
	providerUsedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ntria",
			Subsystem: "llm",
			Name:      "provider_used_total",
			Help:      "Total generations served per provider.",
		},
		[]string{"service", "provider"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		chatRequestsTotal,
		chatDuration,
		retrievalHitTotal,
		retrievalEmptyTotal,
		fusedEvidenceItems,
		invalidAnswersTotal,
		providerUsedTotal,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		chatRequestsTotal:   chatRequestsTotal,
		chatDuration:        chatDuration,
		retrievalHitTotal:   retrievalHitTotal,
		retrievalEmptyTotal: retrievalEmptyTotal,
		fusedEvidenceItems:  fusedEvidenceItems,
		invalidAnswersTotal: invalidAnswersTotal,
		providerUsedTotal:   providerUsedTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPServerMetrics) RecordChatRequest(service, outcome string, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.chatRequestsTotal.WithLabelValues(service, outcome).Inc()
	m.chatDuration.WithLabelValues(service).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordRetrieval(service string, fusedCount int) {
	m.fusedEvidenceItems.WithLabelValues(service).Observe(float64(fusedCount))
	if fusedCount > 0 {
		m.retrievalHitTotal.WithLabelValues(service).Inc()
		return
	}
	m.retrievalEmptyTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordInvalidAnswer(service string) {
	m.invalidAnswersTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordProviderUsed(service, provider string) {
	if provider == "" {
		provider = "unknown"
	}
	m.providerUsedTotal.WithLabelValues(service, provider).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
