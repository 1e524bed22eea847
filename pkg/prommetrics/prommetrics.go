// Package prommetrics exports form and tracker metrics to Prometheus.
package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	tform "github.com/lucasols/t-form"
)

// Provider implements tform.MetricsProvider on Prometheus collectors.
type Provider struct {
	transactions    *prometheus.CounterVec
	transactionTime *prometheus.HistogramVec
	fieldNotFound   *prometheus.CounterVec
	configErrors    *prometheus.CounterVec
	trackerState    prometheus.Gauge
	stateChanges    *prometheus.CounterVec
	processTime     *prometheus.HistogramVec
	changesReceived prometheus.Counter
}

// New registers the collectors on reg under namespace. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, namespace string) *Provider {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Provider{
		transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "form_transactions_total",
			Help:      "Form operations by operation and whether a new state was committed",
		}, []string{"operation", "changed"}),
		transactionTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "form_transaction_duration_seconds",
			Help:      "Duration of form operations",
			Buckets:   []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"operation"}),
		fieldNotFound: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "form_field_not_found_total",
			Help:      "Updates that referenced an unknown field",
		}, []string{"field"}),
		configErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "form_config_errors_total",
			Help:      "Rejected form configurations by operation",
		}, []string{"operation"}),
		trackerState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracker_state",
			Help:      "Current tracker state (0 loading, 1 healthy, 2 degraded, 3 empty)",
		}),
		stateChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracker_state_changes_total",
			Help:      "Tracker state transitions",
		}, []string{"from", "to"}),
		processTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tracker_process_duration_seconds",
			Help:      "Duration of definition document processing by outcome",
			Buckets:   []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"outcome"}),
		changesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracker_changes_received_total",
			Help:      "Raw documents received from watchers",
		}),
	}
}

func (p *Provider) OnTransaction(op string, changed bool, d time.Duration) {
	label := "false"
	if changed {
		label = "true"
	}
	p.transactions.WithLabelValues(op, label).Inc()
	p.transactionTime.WithLabelValues(op).Observe(d.Seconds())
}

func (p *Provider) OnFieldNotFound(fieldID string) {
	p.fieldNotFound.WithLabelValues(fieldID).Inc()
}

func (p *Provider) OnConfigError(op string) {
	p.configErrors.WithLabelValues(op).Inc()
}

func (p *Provider) OnStateChange(from, to tform.State) {
	p.trackerState.Set(float64(to))
	p.stateChanges.WithLabelValues(from.String(), to.String()).Inc()
}

func (p *Provider) OnProcessSuccess(d time.Duration) {
	p.processTime.WithLabelValues("success").Observe(d.Seconds())
}

// OnProcessFailure records the duration under the failing stage.
func (p *Provider) OnProcessFailure(stage string, d time.Duration) {
	p.processTime.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *Provider) OnChangeReceived() {
	p.changesReceived.Inc()
}

var _ tform.MetricsProvider = (*Provider)(nil)
