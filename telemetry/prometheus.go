package telemetry

import (
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics exposes Metrics keys as prometheus gauges. Counts are
// cumulative: SetCount adds value to the counter named by key. Keys like
// "timeline.layers.added" become "timeslider_timeline_layers_added".
type PrometheusMetrics struct {
	lock       sync.Mutex
	registerer prometheus.Registerer
	namespace  string
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
}

func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "timeslider"
	}
	return &PrometheusMetrics{
		registerer: reg,
		namespace:  namespace,
		counters:   map[string]prometheus.Counter{},
		gauges:     map[string]prometheus.Gauge{},
	}
}

func metricName(key string) string {
	return strings.NewReplacer(".", "_", "-", "_", " ", "_").Replace(key)
}

func (p *PrometheusMetrics) SetCount(key string, value int64) {
	p.lock.Lock()
	defer p.lock.Unlock()

	c, ok := p.counters[key]
	if !ok {
		c = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      metricName(key),
			Help:      "timeslider count " + key,
		})
		if err := p.registerer.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return
			}
			c = are.ExistingCollector.(prometheus.Counter)
		}
		p.counters[key] = c
	}
	if value > 0 {
		c.Add(float64(value))
	}
}

func (p *PrometheusMetrics) SetGuage(key string, value float64) {
	p.lock.Lock()
	defer p.lock.Unlock()

	g, ok := p.gauges[key]
	if !ok {
		g = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      metricName(key),
			Help:      "timeslider gauge " + key,
		})
		if err := p.registerer.Register(g); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return
			}
			g = are.ExistingCollector.(prometheus.Gauge)
		}
		p.gauges[key] = g
	}
	g.Set(value)
}
