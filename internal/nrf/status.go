package nrf

import (
	"context"
	"fmt"
	"strings"
)

// StatusClass is the coarse status classification.
type StatusClass string

const (
	StatusBlocked StatusClass = "Blocked"
	StatusWaiting StatusClass = "Waiting"
	StatusActive  StatusClass = "Active"
)

// Status is the externally visible classification of the unit.
type Status struct {
	Class   StatusClass
	Message string
}

// CollectStatus re-evaluates the readiness precondition chain, extended
// with certificate availability and the running state of the supervised
// service. Read-only and safe to call at any time; evaluation stops at the
// first non-passing check.
func (r *Reconciler) CollectStatus(ctx context.Context) Status {
	if !r.Leader {
		return Status{StatusBlocked, "Scaling is not implemented for this application"}
	}
	if !r.Workload.Reachable(ctx) {
		return Status{StatusWaiting, "Waiting for container to be ready"}
	}
	snap, err := r.collector().Collect(ctx)
	if err != nil {
		return Status{StatusWaiting, fmt.Sprintf("Failed to collect dependencies: %s", err)}
	}
	if missing := snap.MissingRelations(r.Settings); len(missing) > 0 {
		return Status{StatusBlocked, fmt.Sprintf("Waiting for %s relation(s)", strings.Join(missing, ", "))}
	}
	if !snap.DatabaseCreated {
		return Status{StatusWaiting, "Waiting for the database to be available"}
	}
	if snap.DatabaseURI == "" {
		return Status{StatusWaiting, "Waiting for database URI"}
	}
	if r.Settings.WebuiRequired && snap.WebuiURL == "" {
		return Status{StatusWaiting, "Waiting for Webui data to be available"}
	}
	if !snap.StorageAttached {
		return Status{StatusWaiting, "Waiting for storage to be attached"}
	}
	available, err := r.Certificates.Available(ctx)
	if err != nil || !available {
		return Status{StatusWaiting, "Waiting for certificates to be available"}
	}
	if !r.driver().Running(ctx) {
		return Status{StatusWaiting, "Waiting for NRF service to start"}
	}
	return Status{StatusActive, ""}
}

// WorkloadVersion reads the workload's version file. Informational only:
// returns "" when the container is unreachable or the file is absent.
func (r *Reconciler) WorkloadVersion(ctx context.Context) string {
	if !r.Workload.Reachable(ctx) {
		return ""
	}
	exists, err := r.Workload.Exists(ctx, WorkloadVersionPath)
	if err != nil || !exists {
		return ""
	}
	version, err := r.Workload.ReadFile(ctx, WorkloadVersionPath)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(version))
}
