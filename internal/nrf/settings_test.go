package nrf

import (
	"errors"
	"testing"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings("nrf")
	if err := s.Validate(); err != nil {
		t.Fatalf("default settings should be valid, got %v", err)
	}
	if s.SBIPort != 29510 {
		t.Errorf("expected default SBI port 29510, got %d", s.SBIPort)
	}
	if s.URL() != "https://nrf:29510" {
		t.Errorf("unexpected URL: %s", s.URL())
	}
}

func TestSettingsPaths(t *testing.T) {
	s := DefaultSettings("nrf")
	if s.ConfigPath() != "/etc/nrf/nrfcfg.yaml" {
		t.Errorf("unexpected config path: %s", s.ConfigPath())
	}
	if s.PrivateKeyPath() != "/support/TLS/nrf.key" {
		t.Errorf("unexpected key path: %s", s.PrivateKeyPath())
	}
	if s.CSRPath() != "/support/TLS/nrf.csr" {
		t.Errorf("unexpected csr path: %s", s.CSRPath())
	}
	if s.CertificatePath() != "/support/TLS/nrf.pem" {
		t.Errorf("unexpected certificate path: %s", s.CertificatePath())
	}
}

func TestRequiredRelations(t *testing.T) {
	s := DefaultSettings("nrf")
	got := s.RequiredRelations()
	want := []string{RelationDatabase, RelationSdcoreConfig, RelationCertificates}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	s.WebuiRequired = false
	got = s.RequiredRelations()
	if len(got) != 2 || got[0] != RelationDatabase || got[1] != RelationCertificates {
		t.Errorf("expected [database certificates], got %v", got)
	}
}

func TestValidateAggregatesInvalidFields(t *testing.T) {
	s := Settings{
		AppName:    "nrf",
		LogLevel:   "verbose",
		SBIPort:    0,
		Scheme:     "ftp",
		CommonName: "nrf.sdcore",
	}
	err := s.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	var invalid *InvalidConfigError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidConfigError, got %T", err)
	}
	want := "the following configurations are not valid: ['log-level', 'sbi-port', 'scheme']"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestValidateLogLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "fatal", "panic"} {
		s := DefaultSettings("nrf")
		s.LogLevel = level
		if err := s.Validate(); err != nil {
			t.Errorf("level %q should be valid, got %v", level, err)
		}
	}
	s := DefaultSettings("nrf")
	s.LogLevel = "trace"
	if err := s.Validate(); err == nil {
		t.Error("level trace should be invalid")
	}
}
