package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Download outcomes.
const (
	OutcomeServed    = "served"
	OutcomeThrottled = "throttled"
	OutcomeInvalid   = "invalid_token"
	OutcomeExpired   = "expired_token"
	OutcomeNotFound  = "not_found"
	OutcomeRejected  = "invalid_identifier"
	OutcomeError     = "error"
)

// Metrics defines counters for the report lifecycle.
type Metrics interface {
	IncDownload(outcome string)
	IncReportsSaved()
	IncReportsDeleted(reason string)
	IncSweepFailures()
	IncSweeps()
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncDownload(string)       {}
func (Noop) IncReportsSaved()         {}
func (Noop) IncReportsDeleted(string) {}
func (Noop) IncSweepFailures()        {}
func (Noop) IncSweeps()               {}

// Prom implements Metrics backed by Prometheus counters.
type Prom struct {
	downloads      *prometheus.CounterVec
	reportsSaved   prometheus.Counter
	reportsDeleted *prometheus.CounterVec
	sweepFailures  prometheus.Counter
	sweeps         prometheus.Counter
	gatherer       prometheus.Gatherer
}

// NewProm registers the counters on a fresh registry so several instances
// (and tests) never collide on the global one.
func NewProm(namespace string) *Prom {
	reg := prometheus.NewRegistry()
	p := &Prom{
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Report download attempts by outcome",
		}, []string{"outcome"}),
		reportsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_saved_total",
			Help:      "Reports persisted to the store",
		}),
		reportsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_deleted_total",
			Help:      "Reports removed by reason",
		}, []string{"reason"}),
		sweepFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_failures_total",
			Help:      "Files the retention sweeper failed to remove",
		}),
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Completed retention sweeps",
		}),
		gatherer: reg,
	}
	reg.MustRegister(p.downloads, p.reportsSaved, p.reportsDeleted, p.sweepFailures, p.sweeps)
	return p
}

func (p *Prom) IncDownload(outcome string) {
	p.downloads.WithLabelValues(outcome).Inc()
}

func (p *Prom) IncReportsSaved() {
	p.reportsSaved.Inc()
}

func (p *Prom) IncReportsDeleted(reason string) {
	p.reportsDeleted.WithLabelValues(reason).Inc()
}

func (p *Prom) IncSweepFailures() {
	p.sweepFailures.Inc()
}

func (p *Prom) IncSweeps() {
	p.sweeps.Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}
