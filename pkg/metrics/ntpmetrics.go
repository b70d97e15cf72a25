package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghewgill/sntpc/internal/ntp"
)

// RunMetrics describes the outcome of one sntpc run
type RunMetrics struct {
	OffsetSeconds    *prometheus.GaugeVec
	Stratum          *prometheus.GaugeVec
	Attempts         *prometheus.GaugeVec
	LeapIndicator    *prometheus.GaugeVec
	RunSuccess       *prometheus.GaugeVec
	ClockStepped     *prometheus.GaugeVec
	LastRunTimestamp *prometheus.GaugeVec
	ErrorsTotal      *prometheus.CounterVec
	BuildInfo        *prometheus.GaugeVec
}

// NewRunMetricsWithConfig creates the run metrics with custom namespace and subsystem
func NewRunMetricsWithConfig(namespace, subsystem string) *RunMetrics {
	return &RunMetrics{
		OffsetSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "offset_seconds",
				Help:      "Local clock minus server clock in whole seconds (positive means local is ahead)",
			},
			[]string{"server"},
		),
		Stratum: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stratum",
				Help:      "Stratum reported by the server",
			},
			[]string{"server"},
		),
		Attempts: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "attempts",
				Help:      "Number of requests sent before a reply arrived or the client gave up",
			},
			[]string{"server"},
		),
		LeapIndicator: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "leap_indicator",
				Help:      "Leap indicator from the server reply (0 none, 1 insert, 2 delete, 3 unsynchronized)",
			},
			[]string{"server"},
		),
		RunSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "run_success",
				Help:      "Whether the last run succeeded (1) or failed (0)",
			},
			[]string{"server"},
		),
		ClockStepped: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "clock_stepped",
				Help:      "Whether the last run stepped the system clock (1) or not (0)",
			},
			[]string{"server"},
		),
		LastRunTimestamp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time at which the last run finished",
			},
			[]string{"server"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "errors_total",
				Help:      "Failed runs by error kind",
			},
			[]string{"server", "kind"},
		),
		BuildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "build_info",
				Help:      "sntpc build information",
			},
			[]string{"version"},
		),
	}
}

// NewRunMetrics creates the run metrics with the default namespace
func NewRunMetrics() *RunMetrics {
	return NewRunMetricsWithConfig("sntpc", "")
}

// Observe records a finished run. Every error kind of the server is
// initialized so the counters exist even before the first failure.
func (m *RunMetrics) Observe(report *ntp.Report, finished time.Time) {
	server := report.Server

	for _, kind := range ntp.ErrorKinds() {
		m.ErrorsTotal.WithLabelValues(server, kind)
	}

	m.Attempts.WithLabelValues(server).Set(float64(report.Attempts))
	m.LastRunTimestamp.WithLabelValues(server).Set(float64(finished.Unix()))
	m.ClockStepped.WithLabelValues(server).Set(boolToFloat(report.Stepped))

	// Reply fields are only meaningful once a reply was decoded
	if report.Leap != "" {
		m.Stratum.WithLabelValues(server).Set(float64(report.Stratum))
		m.LeapIndicator.WithLabelValues(server).Set(float64(leapValue(report.Leap)))
	}
	if report.ServerTime != 0 && report.LocalTime != 0 {
		m.OffsetSeconds.WithLabelValues(server).Set(float64(report.Offset))
	}

	if report.ErrorKind == "" {
		m.RunSuccess.WithLabelValues(server).Set(1)
		return
	}
	m.RunSuccess.WithLabelValues(server).Set(0)
	m.ErrorsTotal.WithLabelValues(server, report.ErrorKind).Inc()
}

// SetBuildInfo publishes the version label
func (m *RunMetrics) SetBuildInfo(version string) {
	m.BuildInfo.WithLabelValues(version).Set(1)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func leapValue(leap string) int {
	switch leap {
	case "none":
		return 0
	case "insert":
		return 1
	case "delete":
		return 2
	default:
		return 3
	}
}

// getAllMetrics returns all metric collectors
func (m *RunMetrics) getAllMetrics() []prometheus.Collector {
	return []prometheus.Collector{
		m.OffsetSeconds,
		m.Stratum,
		m.Attempts,
		m.LeapIndicator,
		m.RunSuccess,
		m.ClockStepped,
		m.LastRunTimestamp,
		m.ErrorsTotal,
		m.BuildInfo,
	}
}

// Describe implements prometheus.Collector interface
func (m *RunMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, metric := range m.getAllMetrics() {
		metric.Describe(ch)
	}
}

// Collect implements prometheus.Collector interface
func (m *RunMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, metric := range m.getAllMetrics() {
		metric.Collect(ch)
	}
}
