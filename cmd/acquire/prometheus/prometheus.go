package prometheus

import (
	golibConfig "github.com/dipdup-net/go-lib/config"
	"github.com/dipdup-net/go-lib/prometheus"
)

// metric names
const (
	MetricCallsCounter    = "acquire_calls"
	MetricEntitiesCounter = "acquire_entities"
	MetricBudgetRemaining = "acquire_budget_remaining"
	MetricRunsCounter     = "acquire_runs"
)

// Prometheus -
type Prometheus struct {
	service *prometheus.Service
}

// NewPrometheus - returns nil if metrics are not configured
func NewPrometheus(cfg *golibConfig.Prometheus) *Prometheus {
	if cfg == nil {
		return nil
	}

	prometheusService := prometheus.NewService(cfg)

	prometheusService.RegisterGoBuildMetrics()
	prometheusService.RegisterCounter(MetricCallsCounter, "Count of external calls", "kind", "origin")
	prometheusService.RegisterCounter(MetricEntitiesCounter, "Count of checkpointed entities", "status")
	prometheusService.RegisterGauge(MetricBudgetRemaining, "Calls left in the current run budget")
	prometheusService.RegisterCounter(MetricRunsCounter, "Count of acquisition runs", "mode", "result")

	return &Prometheus{prometheusService}
}

// Start -
func (p *Prometheus) Start() {
	if p == nil || p.service == nil {
		return
	}
	p.service.Start()
}

// Close -
func (p *Prometheus) Close() error {
	if p == nil || p.service == nil {
		return nil
	}
	return p.service.Close()
}

// IncrementCall -
func (p *Prometheus) IncrementCall(kind, origin string) {
	if p == nil || p.service == nil {
		return
	}
	p.service.IncrementCounter(MetricCallsCounter, map[string]string{
		"kind":   kind,
		"origin": origin,
	})
}

// IncrementEntity -
func (p *Prometheus) IncrementEntity(status string) {
	if p == nil || p.service == nil {
		return
	}
	p.service.IncrementCounter(MetricEntitiesCounter, map[string]string{
		"status": status,
	})
}

// SetBudgetRemaining -
func (p *Prometheus) SetBudgetRemaining(value int) {
	if p == nil || p.service == nil {
		return
	}
	p.service.SetGaugeValue(MetricBudgetRemaining, map[string]string{}, float64(value))
}

// IncrementRun -
func (p *Prometheus) IncrementRun(mode, result string) {
	if p == nil || p.service == nil {
		return
	}
	p.service.IncrementCounter(MetricRunsCounter, map[string]string{
		"mode":   mode,
		"result": result,
	})
}
