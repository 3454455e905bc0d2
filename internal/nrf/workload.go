package nrf

import (
	"context"
	"fmt"
	"reflect"

	"github.com/go-logr/logr"
)

// ServiceSpec is one service definition in a supervisor plan layer.
type ServiceSpec struct {
	Override    string            `yaml:"override,omitempty"`
	Startup     string            `yaml:"startup,omitempty"`
	Command     string            `yaml:"command,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
}

// Layer is a supervisor plan layer.
type Layer struct {
	Summary     string                 `yaml:"summary,omitempty"`
	Description string                 `yaml:"description,omitempty"`
	Services    map[string]ServiceSpec `yaml:"services"`
}

// serviceEnvironment is the fixed environment of the NRF service.
func serviceEnvironment() map[string]string {
	return map[string]string{
		"GRPC_GO_LOG_VERBOSITY_LEVEL": "99",
		"GRPC_GO_LOG_SEVERITY_LEVEL":  "info",
		"GRPC_TRACE":                  "all",
		"GRPC_VERBOSITY":              "debug",
		"MANAGED_BY_CONFIG_POD":       "true",
	}
}

// DesiredLayer returns the supervisor layer for the NRF service.
func DesiredLayer(settings Settings) Layer {
	return Layer{
		Summary:     "nrf layer",
		Description: "supervisor config layer for nrf",
		Services: map[string]ServiceSpec{
			ServiceName: {
				Override:    "replace",
				Startup:     "enabled",
				Command:     fmt.Sprintf("/bin/nrf --nrfcfg %s", settings.ConfigPath()),
				Environment: serviceEnvironment(),
			},
		},
	}
}

// Driver applies the desired supervisor plan. It is the only component that
// may disrupt the workload process: the layer is applied only when the
// active plan's service definition differs, and the service restarts only
// when the caller observed a config or certificate change.
type Driver struct {
	Workload Workload
	Settings Settings
	Log      logr.Logger
	Observer Observer
}

// Configure converges the supervisor plan and restarts the service when
// restart is set. Replan semantics: the named service is replaced, other
// services in the plan are untouched.
func (d Driver) Configure(ctx context.Context, restart bool) error {
	desired := DesiredLayer(d.Settings)
	current, err := d.Workload.PlanServices(ctx)
	if err != nil {
		return fmt.Errorf("get supervisor plan: %w", err)
	}
	if !reflect.DeepEqual(current[ServiceName], desired.Services[ServiceName]) {
		if err := d.Workload.ApplyLayer(ctx, ServiceName, desired); err != nil {
			return fmt.Errorf("apply supervisor layer: %w", err)
		}
		d.Log.Info("New supervisor layer added", "service", ServiceName)
	}
	if restart {
		if err := d.Workload.Restart(ctx, ServiceName); err != nil {
			return fmt.Errorf("restart service %s: %w", ServiceName, err)
		}
		d.Observer.ServiceRestarted()
		d.Log.Info("Restarted service", "service", ServiceName)
	}
	return nil
}

// Running reports whether the NRF service is running. False when the
// container is unreachable or the service is not yet part of the plan.
func (d Driver) Running(ctx context.Context) bool {
	if !d.Workload.Reachable(ctx) {
		return false
	}
	running, err := d.Workload.ServiceRunning(ctx, ServiceName)
	if err != nil {
		return false
	}
	return running
}
