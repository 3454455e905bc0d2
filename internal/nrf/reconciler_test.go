package nrf

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
)

// readyCollaborators returns a workload, store and authority wired so that a
// converge pass runs all the way through: every relation joined with data,
// storage attached, container reachable, and a certificate assigned for the
// csr the authority will generate.
func readyCollaborators() (*fakeWorkload, *fakeStore, *fakeAuthority) {
	w := newFakeWorkload()
	s := newFakeStore()
	s.add(RelationDatabase, "database:0", map[string]string{
		"database": "free5gc",
		"uris":     "mongodb://mongo-0:27017,mongodb://mongo-1:27017",
	})
	s.add(RelationSdcoreConfig, "sdcore-config:1", map[string]string{
		"webui_url": "sdcore-webui:9876",
	})
	s.add(RelationCertificates, "certificates:2", nil)
	s.add(RelationFivegNRF, "fiveg-nrf:3", nil)
	a := &fakeAuthority{
		assigned: []AssignedCertificate{
			{CSR: []byte("csr(key-1,nrf.sdcore)"), Certificate: []byte("cert")},
		},
	}
	return w, s, a
}

func newReconciler(w *fakeWorkload, s *fakeStore, a *fakeAuthority) *Reconciler {
	settings := DefaultSettings("nrf")
	return &Reconciler{
		Workload:  w,
		Relations: s,
		Certificates: ManualLifecycle{
			Workload:  w,
			Authority: a,
			Settings:  settings,
			Log:       logr.Discard(),
			Observer:  NopObserver{},
		},
		Settings:    settings,
		Leader:      true,
		Log:         logr.Discard(),
		HostAddress: func() string { return "10.1.0.7" },
	}
}

func TestConvergeApplies(t *testing.T) {
	ctx := context.Background()
	w, s, a := readyCollaborators()
	r := newReconciler(w, s, a)

	result, err := r.Handle(ctx, Signal{Kind: SignalConverge})
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != OutcomeApplied {
		t.Fatalf("expected applied, got %s (%s)", result.Outcome, result.Reason)
	}

	if _, ok := w.files[r.Settings.ConfigPath()]; !ok {
		t.Error("config file not written")
	}
	if _, ok := w.files[r.Settings.CertificatePath()]; !ok {
		t.Error("certificate not stored")
	}
	running, _ := w.ServiceRunning(ctx, ServiceName)
	if !running {
		t.Error("service not started")
	}
	if w.restarts != 1 {
		t.Errorf("expected one restart, got %d", w.restarts)
	}
	url := s.data["fiveg-nrf:3"]["url"]
	if url != "https://nrf:29510" {
		t.Errorf("expected published URL https://nrf:29510, got %q", url)
	}
}

func TestConvergeIdempotent(t *testing.T) {
	ctx := context.Background()
	w, s, a := readyCollaborators()
	r := newReconciler(w, s, a)

	if _, err := r.Handle(ctx, Signal{Kind: SignalConverge}); err != nil {
		t.Fatal(err)
	}
	writes, layers, restarts := w.writes, w.layers, w.restarts

	result, err := r.Handle(ctx, Signal{Kind: SignalConverge})
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != OutcomeApplied {
		t.Fatalf("expected applied, got %s", result.Outcome)
	}
	if w.writes != writes {
		t.Errorf("second pass must not write files, writes went %d -> %d", writes, w.writes)
	}
	if w.layers != layers {
		t.Errorf("second pass must not apply layers, layers went %d -> %d", layers, w.layers)
	}
	if w.restarts != restarts {
		t.Errorf("second pass must not restart, restarts went %d -> %d", restarts, w.restarts)
	}
}

func TestConvergeNotReady(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*fakeWorkload, *fakeStore, *fakeAuthority)
	}{
		{"container unreachable", func(w *fakeWorkload, s *fakeStore, a *fakeAuthority) {
			w.reachable = false
		}},
		{"database relation missing", func(w *fakeWorkload, s *fakeStore, a *fakeAuthority) {
			s.remove(RelationDatabase, "database:0")
		}},
		{"database not created", func(w *fakeWorkload, s *fakeStore, a *fakeAuthority) {
			s.data["database:0"] = map[string]string{}
		}},
		{"database URI missing", func(w *fakeWorkload, s *fakeStore, a *fakeAuthority) {
			s.data["database:0"] = map[string]string{"database": "free5gc"}
		}},
		{"webui URL missing", func(w *fakeWorkload, s *fakeStore, a *fakeAuthority) {
			s.data["sdcore-config:1"] = map[string]string{}
		}},
		{"storage not attached", func(w *fakeWorkload, s *fakeStore, a *fakeAuthority) {
			w.dirs[CertsDir] = false
		}},
		{"certificate not assigned", func(w *fakeWorkload, s *fakeStore, a *fakeAuthority) {
			a.assigned = nil
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, s, a := readyCollaborators()
			tc.mutate(w, s, a)
			r := newReconciler(w, s, a)

			result, err := r.Handle(ctx, Signal{Kind: SignalConverge})
			if err != nil {
				t.Fatal(err)
			}
			if result.Outcome != OutcomeNotReady {
				t.Errorf("expected not-ready, got %s", result.Outcome)
			}
			if _, ok := w.files[r.Settings.ConfigPath()]; ok {
				t.Error("config must not be written when not ready")
			}
			if w.restarts != 0 {
				t.Errorf("service must not restart when not ready, got %d restarts", w.restarts)
			}
		})
	}
}

func TestConvergeRestartsOnConfigChange(t *testing.T) {
	ctx := context.Background()
	w, s, a := readyCollaborators()
	r := newReconciler(w, s, a)

	if _, err := r.Handle(ctx, Signal{Kind: SignalConverge}); err != nil {
		t.Fatal(err)
	}

	// A changed database URI changes the rendered config.
	s.data["database:0"]["uris"] = "mongodb://mongo-2:27017"
	if _, err := r.Handle(ctx, Signal{Kind: SignalConverge}); err != nil {
		t.Fatal(err)
	}
	if w.restarts != 2 {
		t.Errorf("a config change must restart the service, got %d restarts", w.restarts)
	}
}

func TestHandleRejectsInvalidSettings(t *testing.T) {
	ctx := context.Background()
	w, s, a := readyCollaborators()
	r := newReconciler(w, s, a)
	r.Settings.LogLevel = "shout"

	result, err := r.Handle(ctx, Signal{Kind: SignalConverge})
	if err == nil {
		t.Fatal("expected a validation error")
	}
	if result.Outcome != OutcomeNotReady {
		t.Errorf("expected not-ready, got %s", result.Outcome)
	}
	if w.writes != 0 {
		t.Error("invalid settings must prevent any mutation")
	}
}

func TestHandleNonLeaderDeclinesMutations(t *testing.T) {
	ctx := context.Background()
	w, s, a := readyCollaborators()
	r := newReconciler(w, s, a)
	r.Leader = false

	result, err := r.Handle(ctx, Signal{Kind: SignalConverge})
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != OutcomeNotReady {
		t.Errorf("expected not-ready, got %s", result.Outcome)
	}
	if w.writes != 0 || w.restarts != 0 {
		t.Error("a non-leader must not mutate the workload")
	}
}

func TestHandleCertificateExpiring(t *testing.T) {
	ctx := context.Background()
	w, s, a := readyCollaborators()
	r := newReconciler(w, s, a)

	if _, err := r.Handle(ctx, Signal{Kind: SignalConverge}); err != nil {
		t.Fatal(err)
	}

	result, err := r.Handle(ctx, Signal{
		Kind:        SignalCertificateExpiring,
		Certificate: []byte("cert"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != OutcomeApplied {
		t.Fatalf("expected applied, got %s (%s)", result.Outcome, result.Reason)
	}
	if len(a.requested) != 2 {
		t.Errorf("expiry of the stored certificate must request a renewal, got %d requests", len(a.requested))
	}
}

func TestHandleCertificateExpiringDeferredWhenUnreachable(t *testing.T) {
	ctx := context.Background()
	w, s, a := readyCollaborators()
	r := newReconciler(w, s, a)
	w.reachable = false

	result, err := r.Handle(ctx, Signal{
		Kind:        SignalCertificateExpiring,
		Certificate: []byte("cert"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != OutcomeDeferred {
		t.Errorf("expected deferred, got %s", result.Outcome)
	}
}

func TestHandleCertificatesBroken(t *testing.T) {
	ctx := context.Background()
	w, s, a := readyCollaborators()
	r := newReconciler(w, s, a)

	if _, err := r.Handle(ctx, Signal{Kind: SignalConverge}); err != nil {
		t.Fatal(err)
	}

	result, err := r.Handle(ctx, Signal{Kind: SignalCertificatesRelationBroken})
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != OutcomeApplied {
		t.Fatalf("expected applied, got %s", result.Outcome)
	}
	for _, path := range []string{r.Settings.PrivateKeyPath(), r.Settings.CSRPath(), r.Settings.CertificatePath()} {
		if _, ok := w.files[path]; ok {
			t.Errorf("%s still present after relation broken", path)
		}
	}
}

func TestHandleCertificatesBrokenDeferredWhenUnreachable(t *testing.T) {
	ctx := context.Background()
	w, s, a := readyCollaborators()
	r := newReconciler(w, s, a)
	w.reachable = false

	result, err := r.Handle(ctx, Signal{Kind: SignalCertificatesRelationBroken})
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != OutcomeDeferred {
		t.Errorf("unreachable container must defer cleanup, got %s", result.Outcome)
	}
}

func TestHandleRelationJoined(t *testing.T) {
	ctx := context.Background()
	w, s, a := readyCollaborators()
	r := newReconciler(w, s, a)

	// Service not running yet: publication is a no-op.
	result, err := r.Handle(ctx, Signal{Kind: SignalNRFRelationJoined, RelationID: "fiveg-nrf:3"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != OutcomeNotReady {
		t.Errorf("expected not-ready before service runs, got %s", result.Outcome)
	}
	if s.writes != 0 {
		t.Error("nothing must be published before the service runs")
	}

	if _, err := r.Handle(ctx, Signal{Kind: SignalConverge}); err != nil {
		t.Fatal(err)
	}
	s.add(RelationFivegNRF, "fiveg-nrf:4", nil)

	result, err = r.Handle(ctx, Signal{Kind: SignalNRFRelationJoined, RelationID: "fiveg-nrf:4"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != OutcomeApplied {
		t.Fatalf("expected applied, got %s", result.Outcome)
	}
	if s.data["fiveg-nrf:4"]["url"] != "https://nrf:29510" {
		t.Errorf("expected published URL, got %q", s.data["fiveg-nrf:4"]["url"])
	}
}

func TestConvergePublishesToAllRequirers(t *testing.T) {
	ctx := context.Background()
	w, s, a := readyCollaborators()
	s.add(RelationFivegNRF, "fiveg-nrf:4", nil)
	r := newReconciler(w, s, a)

	if _, err := r.Handle(ctx, Signal{Kind: SignalConverge}); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"fiveg-nrf:3", "fiveg-nrf:4"} {
		if s.data[id]["url"] != "https://nrf:29510" {
			t.Errorf("relation %s missing published URL, got %q", id, s.data[id]["url"])
		}
	}
}

func TestHandleUnknownSignal(t *testing.T) {
	ctx := context.Background()
	w, s, a := readyCollaborators()
	r := newReconciler(w, s, a)

	if _, err := r.Handle(ctx, Signal{Kind: "bogus"}); err == nil {
		t.Error("expected an error for an unknown signal kind")
	}
}
