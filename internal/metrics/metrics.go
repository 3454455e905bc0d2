// Package metrics exposes the operator's own counters through the
// controller-runtime metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	configWrites = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nrf_operator_config_writes_total",
		Help: "Number of times the workload config file was (re)written.",
	})
	serviceRestarts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nrf_operator_service_restarts_total",
		Help: "Number of times the NRF service was restarted.",
	})
	certificatesStored = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nrf_operator_certificates_stored_total",
		Help: "Number of times a new certificate was stored on the workload.",
	})
)

func init() {
	ctrlmetrics.Registry.MustRegister(configWrites, serviceRestarts, certificatesStored)
}

// Observer feeds reconciliation side effects into the counters.
type Observer struct{}

func (Observer) ConfigWritten()     { configWrites.Inc() }
func (Observer) ServiceRestarted()  { serviceRestarts.Inc() }
func (Observer) CertificateStored() { certificatesStored.Inc() }
