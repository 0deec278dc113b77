package observability

import (
	"context"
	"sync/atomic"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors shared by every editor it records. Used
// directly as a plugin it records one editor; Recorder returns a plugin per
// additional editor.
type Metrics struct {
	registry *prometheus.Registry

	commits   *prometheus.CounterVec
	rollbacks prometheus.Counter
	duration  prometheus.Histogram
	dirty     prometheus.Histogram
	nodes     *prometheus.GaugeVec
	version   *prometheus.GaugeVec
	changes   *prometheus.CounterVec

	own *Recorder
}

// NewMetrics creates the collectors under namespace ("folio" when empty).
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "folio"
	}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Published snapshots by commit tag.",
		}, []string{"tag"}),
		rollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollbacks_total",
			Help:      "Updates discarded because the body failed or the tree was invalid.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_duration_seconds",
			Help:      "Time from the start of an update to its commit.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
		dirty: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_dirty_nodes",
			Help:      "Nodes written per committed update.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 6),
		}),
		nodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "document_nodes",
			Help:      "Nodes in the committed snapshot.",
		}, []string{"document"}),
		version: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "document_version",
			Help:      "Version of the committed snapshot.",
		}, []string{"document"}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_changes_total",
			Help:      "Nodes created, destroyed or updated by commits.",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(m.commits, m.rollbacks, m.duration, m.dirty, m.nodes, m.version, m.changes)
	return m
}

// Registry returns the registry holding the plugin's collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Name() string { return "metrics" }

func (m *Metrics) SetUp(host ports.Host) error {
	m.own = m.Recorder()
	return m.own.SetUp(host)
}

func (m *Metrics) TearDown() error {
	if m.own == nil {
		return nil
	}
	return m.own.TearDown()
}

// Recorder returns a plugin that records one editor into m.
func (m *Metrics) Recorder() *Recorder {
	return &Recorder{m: m}
}

// Recorder feeds the collectors of a Metrics from one editor. Document gauges
// are labeled with the editor name, or "default".
type Recorder struct {
	m   *Metrics
	doc string

	// Hooks cannot be removed from an editor, so TearDown only mutes them.
	active atomic.Bool
	cancel func()
}

func (r *Recorder) Name() string { return "metrics" }

func (r *Recorder) SetUp(host ports.Host) error {
	r.doc = "default"
	if named, ok := host.(interface{ Name() string }); ok && named.Name() != "" {
		r.doc = named.Name()
	}
	r.active.Store(true)
	host.AddHooks(domain.LifecycleHooks{
		OnCommit:   r.onCommit,
		OnRollback: r.onRollback,
	})
	r.cancel = host.Subscribe(r.onSnapshot)

	snap := host.CurrentSnapshot()
	r.m.nodes.WithLabelValues(r.doc).Set(float64(snap.Len()))
	r.m.version.WithLabelValues(r.doc).Set(float64(snap.Version()))
	return nil
}

func (r *Recorder) TearDown() error {
	r.active.Store(false)
	if r.cancel != nil {
		r.cancel()
	}
	r.m.nodes.DeleteLabelValues(r.doc)
	r.m.version.DeleteLabelValues(r.doc)
	return nil
}

func (r *Recorder) onCommit(_ context.Context, ev *domain.CommitEvent) {
	if !r.active.Load() {
		return
	}
	tag := ev.Tag
	if tag == "" {
		tag = "none"
	}
	r.m.commits.WithLabelValues(tag).Inc()
	r.m.duration.Observe(ev.Duration.Seconds())
	r.m.dirty.Observe(float64(ev.Dirty))
}

func (r *Recorder) onRollback(context.Context, *domain.RollbackEvent) {
	if r.active.Load() {
		r.m.rollbacks.Inc()
	}
}

func (r *Recorder) onSnapshot(_ context.Context, prev, next *domain.Snapshot) {
	r.m.nodes.WithLabelValues(r.doc).Set(float64(next.Len()))
	r.m.version.WithLabelValues(r.doc).Set(float64(next.Version()))

	d := domain.Diff(prev, next)
	r.m.changes.WithLabelValues("created").Add(float64(len(d.Created)))
	r.m.changes.WithLabelValues("destroyed").Add(float64(len(d.Destroyed)))
	r.m.changes.WithLabelValues("updated").Add(float64(len(d.Updated)))
}
