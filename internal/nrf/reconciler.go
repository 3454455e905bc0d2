package nrf

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
)

// SignalKind tags the external events delivered to the reconciler.
type SignalKind string

const (
	// SignalConverge covers every event that only changes input values:
	// container ready, relation joined/changed, database created, webui
	// URL available, certificate available. They all funnel into one
	// convergence pass.
	SignalConverge SignalKind = "converge"

	// SignalNRFRelationJoined is a new fiveg-nrf requirer joining.
	SignalNRFRelationJoined SignalKind = "nrf-relation-joined"

	// SignalCertificateExpiring notifies that a certificate is about to
	// expire. Payload: the expiring certificate.
	SignalCertificateExpiring SignalKind = "certificate-expiring"

	// SignalCertificatesRelationBroken is the certificates relation
	// being removed.
	SignalCertificatesRelationBroken SignalKind = "certificates-relation-broken"
)

// Signal is one external event.
type Signal struct {
	Kind SignalKind

	// RelationID is set for SignalNRFRelationJoined.
	RelationID string

	// Certificate is set for SignalCertificateExpiring.
	Certificate []byte
}

// Outcome classifies what a reconciliation pass did.
type Outcome string

const (
	// OutcomeApplied: the pass ran to completion; the workload converged.
	OutcomeApplied Outcome = "applied"

	// OutcomeNotReady: preconditions not met; nothing was done. Not an
	// error: a later event re-triggers the pass.
	OutcomeNotReady Outcome = "not-ready"

	// OutcomeDeferred: a mutation was required but the container is
	// unreachable. The host must redeliver the signal.
	OutcomeDeferred Outcome = "deferred"
)

// Result is the outcome of handling one signal.
type Result struct {
	Outcome Outcome
	Reason  string
}

func applied() Result               { return Result{Outcome: OutcomeApplied} }
func notReady(reason string) Result { return Result{Outcome: OutcomeNotReady, Reason: reason} }
func deferred(reason string) Result { return Result{Outcome: OutcomeDeferred, Reason: reason} }

// Reconciler drives the workload toward its target state. One logical
// actor per unit: single-threaded, run-to-completion, no internal retries.
// Only the leader mutates; non-leaders are restricted to CollectStatus.
type Reconciler struct {
	Workload     Workload
	Relations    RelationStore
	Certificates CertificateLifecycle
	Settings     Settings
	Leader       bool
	Log          logr.Logger
	Observer     Observer

	// HostAddress resolves the unit's own network address.
	HostAddress func() string
}

func (r *Reconciler) collector() Collector {
	return Collector{
		Workload:    r.Workload,
		Relations:   r.Relations,
		Settings:    r.Settings,
		HostAddress: r.HostAddress,
	}
}

func (r *Reconciler) driver() Driver {
	return Driver{
		Workload: r.Workload,
		Settings: r.Settings,
		Log:      r.Log,
		Observer: r.observer(),
	}
}

func (r *Reconciler) observer() Observer {
	if r.Observer == nil {
		return NopObserver{}
	}
	return r.Observer
}

// Handle dispatches one external signal. Mutating signals are declined on
// non-leaders. Errors are transient collaborator failures; the host retries
// by redelivering.
func (r *Reconciler) Handle(ctx context.Context, signal Signal) (Result, error) {
	if err := r.Settings.Validate(); err != nil {
		return notReady(err.Error()), err
	}
	if !r.Leader {
		return notReady("unit is not leader"), nil
	}
	switch signal.Kind {
	case SignalNRFRelationJoined:
		return r.handleRelationJoined(ctx, signal.RelationID)
	case SignalCertificateExpiring:
		return r.handleCertificateExpiring(ctx, signal.Certificate)
	case SignalCertificatesRelationBroken:
		return r.handleCertificatesBroken(ctx)
	case SignalConverge:
		return r.converge(ctx)
	default:
		return Result{}, fmt.Errorf("unknown signal kind %q", signal.Kind)
	}
}

// converge is the single reconciliation pass: gate, certificate lifecycle,
// config synthesis, workload plan, publication. Idempotent: re-running with
// an unchanged snapshot performs zero writes and zero restarts.
func (r *Reconciler) converge(ctx context.Context) (Result, error) {
	snap, err := r.collector().Collect(ctx)
	if err != nil {
		return Result{}, err
	}
	if !ReadyToConfigure(snap, r.Settings) {
		r.Log.Info("Preconditions for configuration are not met yet")
		return notReady("preconditions not met"), nil
	}

	certResult, err := r.Certificates.Sync(ctx)
	if err != nil {
		return Result{}, err
	}
	available, err := r.Certificates.Available(ctx)
	if err != nil {
		return Result{}, err
	}
	if !available {
		r.Log.Info("Certificate is not available yet")
		return notReady("certificate not available"), nil
	}

	desired := RenderConfig(snap, r.Settings)
	if desired == "" {
		return notReady("config inputs incomplete"), nil
	}
	configChanged, err := ConfigUpdateRequired(ctx, r.Workload, r.Settings.ConfigPath(), desired)
	if err != nil {
		return Result{}, err
	}
	if configChanged {
		if err := r.Workload.WriteFile(ctx, r.Settings.ConfigPath(), []byte(desired)); err != nil {
			return Result{}, err
		}
		r.observer().ConfigWritten()
		r.Log.Info("Pushed config file to workload", "path", r.Settings.ConfigPath())
	}

	if err := r.driver().Configure(ctx, configChanged || certResult.Changed()); err != nil {
		return Result{}, err
	}

	if err := r.publishToAll(ctx); err != nil {
		return Result{}, err
	}
	return applied(), nil
}

// handleCertificateExpiring guards against stale notifications, requests a
// renewal, then converges.
func (r *Reconciler) handleCertificateExpiring(ctx context.Context, expiring []byte) (Result, error) {
	if !r.Workload.Reachable(ctx) {
		return deferred("container not reachable"), nil
	}
	if err := r.Certificates.HandleExpiry(ctx, expiring); err != nil {
		return Result{}, err
	}
	return r.converge(ctx)
}

// handleCertificatesBroken deletes the TLS artifacts. Requires a reachable
// container: when unreachable the signal is deferred for redelivery, never
// dropped.
func (r *Reconciler) handleCertificatesBroken(ctx context.Context) (Result, error) {
	if !r.Workload.Reachable(ctx) {
		return deferred("container not reachable"), nil
	}
	if err := r.Certificates.Cleanup(ctx); err != nil {
		return Result{}, err
	}
	return applied(), nil
}
