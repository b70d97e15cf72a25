package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry manages Prometheus metric registration
type Registry struct {
	registry   *prometheus.Registry
	runMetrics *RunMetrics
}

// NewRegistry creates a new metrics registry with run metrics
// Uses default namespace "sntpc" and empty subsystem
func NewRegistry() *Registry {
	return NewRegistryWithConfig("sntpc", "")
}

// NewRegistryWithConfig creates a new metrics registry with custom namespace and subsystem
func NewRegistryWithConfig(namespace, subsystem string) *Registry {
	return &Registry{
		registry:   prometheus.NewRegistry(),
		runMetrics: NewRunMetricsWithConfig(namespace, subsystem),
	}
}

// Register registers the run metrics collector
func (r *Registry) Register() error {
	return r.registry.Register(r.runMetrics)
}

// GetRegistry returns the underlying Prometheus registry
func (r *Registry) GetRegistry() *prometheus.Registry {
	return r.registry
}

// GetMetrics returns the run metrics instance
func (r *Registry) GetMetrics() *RunMetrics {
	return r.runMetrics
}

// MustRegister registers all metrics and panics on error
func (r *Registry) MustRegister() {
	if err := r.Register(); err != nil {
		panic(err)
	}
}

// WriteTextfile writes the gathered metrics in the text exposition format,
// for pickup by the node exporter textfile collector. The file is replaced
// atomically.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
