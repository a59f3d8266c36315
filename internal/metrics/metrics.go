package metrics

import (
	"net/http"

	"github.com/gridtie/mqtt2soyo/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mqtt2soyo"

const (
	REJECT_REASON_INVALID = "invalid"
	REJECT_REASON_STALE   = "stale"
)

type Metrics struct {
	registry          *prometheus.Registry
	samplesTotal      *prometheus.CounterVec
	rejectedSamples   *prometheus.CounterVec
	framesWritten     *prometheus.CounterVec
	serialWriteErrors prometheus.Counter
	pollErrors        prometheus.Counter
	outagesTotal      prometheus.Counter
	outageActive      prometheus.Gauge
	signalWatts       prometheus.Gauge
	demandWatts       prometheus.Gauge
	ceilingWatts      prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		samplesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Accepted telemetry samples by channel.",
		}, []string{"channel"}),
		rejectedSamples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_samples_total",
			Help:      "Rejected telemetry samples by channel and reason.",
		}, []string{"channel", "reason"}),
		framesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_written_total",
			Help:      "Command frames written to the serial link by origin.",
		}, []string{"origin"}),
		serialWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "serial_write_errors_total",
			Help:      "Failed command frame writes.",
		}),
		pollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_errors_total",
			Help:      "Failed telemetry polls.",
		}),
		outagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outages_total",
			Help:      "Transitions into telemetry outage.",
		}),
		outageActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outage_active",
			Help:      "1 while telemetry is stale and zero output is forced.",
		}),
		signalWatts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "signal_watts",
			Help:      "Last accepted grid power signal.",
		}),
		demandWatts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "demand_watts",
			Help:      "Last commanded per-unit demand.",
		}),
		ceilingWatts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ceiling_watts",
			Help:      "Current fleet output ceiling.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.samplesTotal,
		m.rejectedSamples,
		m.framesWritten,
		m.serialWriteErrors,
		m.pollErrors,
		m.outagesTotal,
		m.outageActive,
		m.signalWatts,
		m.demandWatts,
		m.ceilingWatts,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) SampleAccepted(channel domain.Channel) {
	m.samplesTotal.WithLabelValues(string(channel)).Inc()
}

func (m *Metrics) SampleRejected(channel domain.Channel, reason string) {
	m.rejectedSamples.WithLabelValues(string(channel), reason).Inc()
}

func (m *Metrics) FrameWritten(origin string) {
	m.framesWritten.WithLabelValues(origin).Inc()
}

func (m *Metrics) SerialWriteFailed() {
	m.serialWriteErrors.Inc()
}

func (m *Metrics) PollFailed() {
	m.pollErrors.Inc()
}

func (m *Metrics) OutageEntered() {
	m.outagesTotal.Inc()
	m.outageActive.Set(1)
}

func (m *Metrics) OutageCleared() {
	m.outageActive.Set(0)
}

func (m *Metrics) ControlUpdated(signal, demand int) {
	m.signalWatts.Set(float64(signal))
	m.demandWatts.Set(float64(demand))
}

func (m *Metrics) CeilingUpdated(ceiling int) {
	m.ceilingWatts.Set(float64(ceiling))
}
