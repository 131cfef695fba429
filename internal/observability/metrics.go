package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Relay metrics
	relayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "readaloud_relay_requests_total",
		Help: "Total number of TTS relay requests by outcome",
	}, []string{"mode", "status"}) // status: ok, bad_request, error

	relayDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "readaloud_relay_duration_seconds",
		Help:    "End-to-end TTS relay request duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"mode"})

	// Provider metrics
	providerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "readaloud_provider_requests_total",
		Help: "Total number of TTS provider audio fetches",
	}, []string{"status"})

	providerLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "readaloud_provider_latency_seconds",
		Help:    "TTS provider audio fetch latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})

	audioBytesStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "readaloud_audio_bytes_stored_total",
		Help: "Total audio bytes written to the audio store",
	})

	// Translation metrics
	translationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "readaloud_translation_requests_total",
		Help: "Total number of translation requests",
	}, []string{"status"})

	// Speech capture metrics
	activeCaptureSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "readaloud_capture_sessions_active",
		Help: "Number of speech capture sessions currently listening",
	})

	recognitionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "readaloud_recognition_errors_total",
		Help: "Total recognition engine errors by code",
	}, []string{"code"})

	dictationAudioBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "readaloud_dictation_audio_bytes_total",
		Help: "Total dictation audio bytes forwarded to the recognition engine",
	})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "readaloud_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "readaloud_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// Relay request outcomes
const (
	StatusOK         = "ok"
	StatusBadRequest = "bad_request"
	StatusError      = "error"
)

// JobMetrics tracks metrics for a single relay request
type JobMetrics struct {
	mode              string
	startTime         time.Time
	providerStartTime time.Time
	mu                sync.Mutex
}

// NewJobMetrics creates a new metrics tracker for a relay request
func NewJobMetrics(mode string) *JobMetrics {
	return &JobMetrics{
		mode:      mode,
		startTime: time.Now(),
	}
}

// RecordProviderStart records the start of a provider audio fetch. Provider
// methods are no-ops on a nil *JobMetrics.
func (m *JobMetrics) RecordProviderStart() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.providerStartTime = time.Now()
	m.mu.Unlock()
}

// RecordProviderEnd records the end of a provider audio fetch
func (m *JobMetrics) RecordProviderEnd(success bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.providerStartTime.IsZero() {
		providerLatency.Observe(time.Since(m.providerStartTime).Seconds())
	}
	providerRequests.WithLabelValues(outcome(success)).Inc()
}

// RecordStored records audio bytes persisted for this job
func (m *JobMetrics) RecordStored(bytes int) {
	audioBytesStored.Add(float64(bytes))
}

// RecordDone records the final outcome of the relay request
func (m *JobMetrics) RecordDone(status string) {
	relayRequests.WithLabelValues(m.mode, status).Inc()
	relayDuration.WithLabelValues(m.mode).Observe(time.Since(m.startTime).Seconds())
}

// RecordTranslation records a translation request outcome
func RecordTranslation(success bool) {
	translationRequests.WithLabelValues(outcome(success)).Inc()
}

// RecordCaptureStart records a capture session entering the listening state
func RecordCaptureStart() {
	activeCaptureSessions.Inc()
}

// RecordCaptureEnd records a capture session returning to idle
func RecordCaptureEnd() {
	activeCaptureSessions.Dec()
}

// RecordRecognitionError records a recognition engine error
func RecordRecognitionError(code string) {
	recognitionErrors.WithLabelValues(code).Inc()
}

// RecordDictationAudio records dictation audio bytes forwarded to the engine
func RecordDictationAudio(bytes int) {
	dictationAudioBytes.Add(float64(bytes))
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
