// Package metrics exposes agent activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"co2_monitor/internal/models"
)

const metricPrefix = "co2_monitor_"

// Metrics implements the agent's Recorder on top of a Prometheus registry.
type Metrics struct {
	gatherer prometheus.Gatherer

	co2         *prometheus.GaugeVec
	temperature *prometheus.GaugeVec
	tier        *prometheus.GaugeVec

	polls         *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// New registers the collectors on a fresh registry that also carries the Go
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	labels := []string{"device_id", "module_id"}
	m := &Metrics{
		gatherer: gatherer,
		co2: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "co2_ppm",
				Help: "Last CO2 reading of the monitored device",
			},
			labels,
		),
		temperature: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "temperature_celsius",
				Help: "Last temperature reading of the monitored device",
			},
			labels,
		),
		tier: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "tier",
				Help: "Current tier of the monitored device (0 none, 1 yellow, 2 orange, 3 red)",
			},
			labels,
		),
		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "polls_total",
				Help: "Total device polls by outcome",
			},
			[]string{"outcome"},
		),
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "token_refreshes_total",
				Help: "Total token refresh attempts by outcome",
			},
			[]string{"outcome"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_total",
				Help: "Total notifications sent by tier",
			},
			[]string{"tier"},
		),
	}
	reg.MustRegister(m.co2, m.temperature, m.tier, m.polls, m.refreshes, m.notifications)
	return m
}

func (m *Metrics) ObserveReading(d models.Device, tier models.Tier) {
	if d.CO2 != nil {
		m.co2.WithLabelValues(d.ID, d.ModuleID).Set(*d.CO2)
	}
	if d.HasTemperature() {
		m.temperature.WithLabelValues(d.ID, d.ModuleID).Set(d.Temperature)
	}
	m.tier.WithLabelValues(d.ID, d.ModuleID).Set(float64(tier))
}

func (m *Metrics) IncPoll(outcome string) {
	m.polls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncRefresh(outcome string) {
	m.refreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncNotification(tier models.Tier) {
	m.notifications.WithLabelValues(tier.String()).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
