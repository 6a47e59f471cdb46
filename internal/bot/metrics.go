package bot

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what the bot does. A nil registerer keeps the collectors
// private, which is what tests use.
type Metrics struct {
	pings          *prometheus.CounterVec
	commands       *prometheus.CounterVec
	renders        *prometheus.CounterVec
	renderDuration prometheus.Histogram
	hits           prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hopper",
			Name:      "help_requests_total",
			Help:      "Groundhelp requests by outcome.",
		}, []string{"outcome"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hopper",
			Name:      "commands_total",
			Help:      "Slash commands by name and outcome.",
		}, []string{"command", "outcome"}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hopper",
			Name:      "roster_renders_total",
			Help:      "Line-up renders by outcome.",
		}, []string{"outcome"}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hopper",
			Name:      "roster_render_seconds",
			Help:      "Time spent rendering the line-up.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		}),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hopper",
			Name:      "activity_hits_total",
			Help:      "Messages and reactions recorded as activity.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.pings, m.commands, m.renders, m.renderDuration, m.hits)
	}
	return m
}

func (m *Metrics) Ping(outcome string) {
	m.pings.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Command(name, outcome string) {
	m.commands.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) Roster(outcome string, elapsed time.Duration) {
	m.renders.WithLabelValues(outcome).Inc()
	m.renderDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) Hit() {
	m.hits.Inc()
}
