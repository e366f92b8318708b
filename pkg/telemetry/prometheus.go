package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/go-drift/recompose/pkg/core"
)

// PrometheusObserver exports tick statistics as Prometheus metrics.
type PrometheusObserver struct {
	ticks     prometheus.Counter
	duration  *prometheus.HistogramVec
	work      *prometheus.CounterVec
	nodes     prometheus.Gauge
	roots     prometheus.Gauge
	slowTicks prometheus.Counter
	threshold time.Duration
}

// NewPrometheusObserver registers the tick metrics on reg under namespace.
// Ticks longer than slow are also counted in ticks_slow_total; a
// non-positive slow disables that counter.
//
// Registering twice on the same registry panics, like promauto.
func NewPrometheusObserver(reg prometheus.Registerer, namespace string, slow time.Duration) *PrometheusObserver {
	factory := promauto.With(reg)
	return &PrometheusObserver{
		ticks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "Total completed ticks",
		}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "phase_duration_seconds",
			Help:      "Time spent in each tick phase",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"phase"}),
		work: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "work_total",
			Help:      "Work done by ticks, by kind",
		}, []string{"kind"}),
		nodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "nodes",
			Help:      "Scopes in all mounted trees after the last tick",
		}),
		roots: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "roots",
			Help:      "Mounted roots after the last tick",
		}),
		slowTicks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "ticks_slow_total",
			Help:      "Ticks that exceeded the slow threshold",
		}),
		threshold: slow,
	}
}

// ObserveTick implements core.TickObserver.
func (o *PrometheusObserver) ObserveTick(stats core.TickStats) {
	o.ticks.Inc()

	p := stats.Phases
	o.duration.WithLabelValues("initial").Observe(p.Initial.Seconds())
	o.duration.WithLabelValues("systems").Observe(p.Systems.Seconds())
	o.duration.WithLabelValues("prune").Observe(p.Prune.Seconds())
	o.duration.WithLabelValues("mutations").Observe(p.Mutations.Seconds())
	o.duration.WithLabelValues("recompose").Observe(p.Recompose.Seconds())
	o.duration.WithLabelValues("decompose").Observe(p.Decompose.Seconds())

	c := stats.Counts
	o.work.WithLabelValues("mounted").Add(float64(c.Mounted))
	o.work.WithLabelValues("composed").Add(float64(c.Composed))
	o.work.WithLabelValues("systems").Add(float64(c.SystemsRun))
	o.work.WithLabelValues("pruned").Add(float64(c.Pruned))
	o.work.WithLabelValues("mutations_applied").Add(float64(c.MutationsApplied))
	o.work.WithLabelValues("mutations_dropped").Add(float64(c.MutationsDropped))
	o.work.WithLabelValues("decomposed").Add(float64(c.Decomposed))

	o.nodes.Set(float64(c.Nodes))
	o.roots.Set(float64(c.Roots))

	if o.threshold > 0 && p.Total() > o.threshold {
		o.slowTicks.Inc()
	}
}
