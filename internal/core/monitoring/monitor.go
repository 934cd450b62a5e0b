package monitoring

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/markdave123-py/docingest/internal/core"
)

const namespace = "docingest"

// Monitor writes pipeline events as JSON lines and counts them in its own
// Prometheus registry. Every method is safe for concurrent use and never
// returns an error.
type Monitor struct {
	logger  *slog.Logger
	started time.Time

	registry *prometheus.Registry
	events   *prometheus.CounterVec
	errors   *prometheus.CounterVec
	hits     *prometheus.CounterVec
	misses   *prometheus.CounterVec
}

var _ core.Monitor = (*Monitor)(nil)

// New logs to w with a JSON handler.
func New(w io.Writer) *Monitor {
	return NewWithLogger(slog.New(slog.NewJSONHandler(w, nil)))
}

func NewWithLogger(logger *slog.Logger) *Monitor {
	m := &Monitor{
		logger:   logger,
		started:  time.Now().UTC(),
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Pipeline events by name.",
		}, []string{"event"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Pipeline errors by name.",
		}, []string{"event"}),
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Cache hits by category.",
		}, []string{"category"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Cache misses by category.",
		}, []string{"category"}),
	}
	m.registry.MustRegister(m.events, m.errors, m.hits, m.misses)
	return m
}

func (m *Monitor) LogEvent(name string, payload map[string]any) {
	m.events.WithLabelValues(name).Inc()

	attrs := make([]any, 0, 2+2*len(payload))
	attrs = append(attrs, "event_id", uuid.NewString())
	for k, v := range payload {
		attrs = append(attrs, k, v)
	}
	m.logger.Info(name, attrs...)
}

func (m *Monitor) LogError(name, message string) {
	m.errors.WithLabelValues(name).Inc()
	m.logger.Error(name, "event_id", uuid.NewString(), "message", message)
}

func (m *Monitor) RecordCacheHit(category string) {
	m.hits.WithLabelValues(category).Inc()
}

func (m *Monitor) RecordCacheMiss(category string) {
	m.misses.WithLabelValues(category).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CacheStats is the hit/miss tally of one cache category.
type CacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	StartedAt time.Time             `json:"started_at"`
	Events    map[string]int64      `json:"events"`
	Errors    map[string]int64      `json:"errors"`
	Cache     map[string]CacheStats `json:"cache"`
}

// Snapshot reads the counters back out of the registry.
func (m *Monitor) Snapshot() Snapshot {
	s := Snapshot{
		StartedAt: m.started,
		Events:    make(map[string]int64),
		Errors:    make(map[string]int64),
		Cache:     make(map[string]CacheStats),
	}
	families, err := m.registry.Gather()
	if err != nil {
		m.logger.Error("metrics_gather_failed", "message", err.Error())
	}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			label, n := counterValue(metric)
			switch mf.GetName() {
			case namespace + "_events_total":
				s.Events[label] = n
			case namespace + "_errors_total":
				s.Errors[label] = n
			case namespace + "_cache_hits_total":
				st := s.Cache[label]
				st.Hits = n
				s.Cache[label] = st
			case namespace + "_cache_misses_total":
				st := s.Cache[label]
				st.Misses = n
				s.Cache[label] = st
			}
		}
	}
	for c, st := range s.Cache {
		if total := st.Hits + st.Misses; total > 0 {
			st.HitRate = float64(st.Hits) / float64(total)
			s.Cache[c] = st
		}
	}
	return s
}

// counterValue returns the single label value and count of a CounterVec child.
func counterValue(metric *dto.Metric) (string, int64) {
	label := ""
	if pairs := metric.GetLabel(); len(pairs) > 0 {
		label = pairs[0].GetValue()
	}
	return label, int64(metric.GetCounter().GetValue())
}
