// Package metrics exposes Prometheus metrics for stat tree evaluation and
// definition loading.
//
// Metrics (namespace and subsystem come from config):
//   - recomputes_total{key}: operator cache misses
//   - structural_errors_total{kind}: non-fatal tree misuse
//   - tree_builds_total{tree,result}: definition builds
//   - definitions_loaded: definitions currently held by the registry
//   - definition_reloads_total{result}: registry reloads
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/udisondev/statustree/internal/config"
	"github.com/udisondev/statustree/internal/stat"
)

// Collector owns every metric and the registry they are registered with.
// It implements stat.Recorder.
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	recomputes        *prometheus.CounterVec
	structuralErrors  *prometheus.CounterVec
	treeBuilds        *prometheus.CounterVec
	definitionsLoaded prometheus.Gauge
	definitionReloads *prometheus.CounterVec
}

var _ stat.Recorder = (*Collector)(nil)

// NewCollector creates and registers all metrics. If registry is nil a fresh
// one is created with Go runtime and process collectors.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "statustree"
	}

	c := &Collector{
		enabled:  cfg.Enabled,
		registry: registry,

		recomputes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "recomputes_total",
				Help:      "Total number of operator node recomputations",
			},
			[]string{"key"},
		),
		structuralErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "structural_errors_total",
				Help:      "Total number of non-fatal structural errors by kind",
			},
			[]string{"kind"},
		),
		treeBuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "tree_builds_total",
				Help:      "Total number of runtime tree builds by result",
			},
			[]string{"tree", "result"},
		),
		definitionsLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "definitions_loaded",
				Help:      "Number of tree definitions currently loaded",
			},
		),
		definitionReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "definition_reloads_total",
				Help:      "Total number of definition directory reloads by result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		c.recomputes,
		c.structuralErrors,
		c.treeBuilds,
		c.definitionsLoaded,
		c.definitionReloads,
	)
	return c
}

// Registry returns the Prometheus registry backing c.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Recomputed implements stat.Recorder.
func (c *Collector) Recomputed(key string) {
	if !c.enabled {
		return
	}
	c.recomputes.WithLabelValues(key).Inc()
}

// StructuralError implements stat.Recorder.
func (c *Collector) StructuralError(kind stat.ErrorKind, _ string) {
	if !c.enabled {
		return
	}
	c.structuralErrors.WithLabelValues(string(kind)).Inc()
}

// TreeBuilt records a Build attempt of the named tree.
func (c *Collector) TreeBuilt(tree string, err error) {
	if !c.enabled {
		return
	}
	c.treeBuilds.WithLabelValues(tree, result(err)).Inc()
}

// DefinitionsReloaded records a registry reload and the resulting definition count.
func (c *Collector) DefinitionsReloaded(count int, err error) {
	if !c.enabled {
		return
	}
	c.definitionReloads.WithLabelValues(result(err)).Inc()
	if err == nil {
		c.definitionsLoaded.Set(float64(count))
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
