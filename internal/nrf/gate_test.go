package nrf

import "testing"

func readySnapshot() Snapshot {
	return Snapshot{
		ContainerReachable: true,
		Relations: map[string]bool{
			RelationDatabase:     true,
			RelationCertificates: true,
			RelationSdcoreConfig: true,
		},
		DatabaseCreated: true,
		DatabaseURI:     "mongodb://mongo:27017",
		WebuiURL:        "sdcore-webui:9876",
		StorageAttached: true,
		HostAddress:     "10.1.0.7",
	}
}

func TestReadyToConfigure(t *testing.T) {
	settings := DefaultSettings("nrf")

	tests := []struct {
		name   string
		mutate func(*Snapshot)
		want   bool
	}{
		{"all preconditions met", func(s *Snapshot) {}, true},
		{"container unreachable", func(s *Snapshot) { s.ContainerReachable = false }, false},
		{"database relation missing", func(s *Snapshot) { s.Relations[RelationDatabase] = false }, false},
		{"certificates relation missing", func(s *Snapshot) { s.Relations[RelationCertificates] = false }, false},
		{"sdcore-config relation missing", func(s *Snapshot) { s.Relations[RelationSdcoreConfig] = false }, false},
		{"database not created", func(s *Snapshot) { s.DatabaseCreated = false }, false},
		{"database URI missing", func(s *Snapshot) { s.DatabaseURI = "" }, false},
		{"webui URL missing", func(s *Snapshot) { s.WebuiURL = "" }, false},
		{"storage not attached", func(s *Snapshot) { s.StorageAttached = false }, false},
		{"host address missing", func(s *Snapshot) { s.HostAddress = "" }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			snap := readySnapshot()
			tc.mutate(&snap)
			if got := ReadyToConfigure(snap, settings); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestReadyToConfigureWithoutWebuiRequirement(t *testing.T) {
	settings := DefaultSettings("nrf")
	settings.WebuiRequired = false

	snap := readySnapshot()
	snap.Relations[RelationSdcoreConfig] = false
	snap.WebuiURL = ""
	if !ReadyToConfigure(snap, settings) {
		t.Error("webui data must not gate when not required")
	}
}

func TestMissingRelationsOrder(t *testing.T) {
	settings := DefaultSettings("nrf")
	snap := readySnapshot()
	snap.Relations = map[string]bool{}

	got := snap.MissingRelations(settings)
	want := []string{RelationDatabase, RelationSdcoreConfig, RelationCertificates}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
