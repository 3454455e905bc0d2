// Package nrf implements the reconciliation core for the SD-Core NRF
// workload: it collects the current value of every external dependency,
// decides whether the workload may be (re)configured, converges the config
// file, TLS material and supervisor plan on the workload container, and
// publishes the NRF's connection URL to its requirers.
//
// The package is host-agnostic: all side effects go through the small
// collaborator interfaces defined in snapshot.go, so the same core is
// driven by the controller-runtime host in production and by in-memory
// fakes in tests.
package nrf

import (
	"fmt"
	"sort"
	"strings"
)

// Relation kinds consumed or provided by the NRF.
const (
	RelationDatabase     = "database"
	RelationCertificates = "certificates"
	RelationSdcoreConfig = "sdcore-config"
	RelationFivegNRF     = "fiveg-nrf"
)

// Fixed workload paths and identifiers. The TLS paths are hardcoded in the
// NRF binary and must not change.
const (
	ConfigDir           = "/etc/nrf"
	ConfigFileName      = "nrfcfg.yaml"
	CertsDir            = "/support/TLS"
	PrivateKeyName      = "nrf.key"
	CSRName             = "nrf.csr"
	CertificateName     = "nrf.pem"
	WorkloadVersionPath = "/etc/workload-version"

	ServiceName  = "nrf"
	DatabaseName = "free5gc"
)

// Default ports.
const (
	DefaultSBIPort        = 29510
	DefaultPrometheusPort = 8080
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true,
	"error": true, "fatal": true, "panic": true,
}

// Settings carries every constant and configurable the reconciler needs.
// It is built once per reconciliation from the NRF resource spec and passed
// in explicitly; the core keeps no package-level mutable state.
type Settings struct {
	// AppName is the stable service name the NRF is reachable under.
	// It is embedded in the published URL and the rendered config.
	AppName string

	LogLevel string
	SBIPort  int
	Scheme   string

	// CommonName is the certificate subject CN and single DNS SAN.
	CommonName string

	// WebuiRequired gates on the sdcore-config relation. The earlier
	// certificate generation predates that relation and runs without it.
	WebuiRequired bool
}

// DefaultSettings returns the settings used for an NRF named appName,
// matching the workload's built-in expectations.
func DefaultSettings(appName string) Settings {
	return Settings{
		AppName:       appName,
		LogLevel:      "info",
		SBIPort:       DefaultSBIPort,
		Scheme:        "https",
		CommonName:    "nrf.sdcore",
		WebuiRequired: true,
	}
}

// ConfigPath returns the absolute path of the workload config file.
func (s Settings) ConfigPath() string {
	return ConfigDir + "/" + ConfigFileName
}

// PrivateKeyPath returns the absolute path of the stored private key.
func (s Settings) PrivateKeyPath() string { return CertsDir + "/" + PrivateKeyName }

// CSRPath returns the absolute path of the stored signing request.
func (s Settings) CSRPath() string { return CertsDir + "/" + CSRName }

// CertificatePath returns the absolute path of the stored certificate.
func (s Settings) CertificatePath() string { return CertsDir + "/" + CertificateName }

// URL returns the NRF's own connection URL.
func (s Settings) URL() string {
	return fmt.Sprintf("%s://%s:%d", s.Scheme, s.AppName, s.SBIPort)
}

// RequiredRelations returns the relation kinds that must be present before
// the workload can be configured, in gate evaluation order.
func (s Settings) RequiredRelations() []string {
	required := []string{RelationDatabase}
	if s.WebuiRequired {
		required = append(required, RelationSdcoreConfig)
	}
	return append(required, RelationCertificates)
}

// InvalidConfigError reports every invalid configuration field in a single
// message. It is a classification input, not a crash: the host surfaces it
// as a blocked status.
type InvalidConfigError struct {
	Fields []string
}

func (e *InvalidConfigError) Error() string {
	quoted := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		quoted[i] = "'" + f + "'"
	}
	return fmt.Sprintf("the following configurations are not valid: [%s]", strings.Join(quoted, ", "))
}

// Validate checks the settings and aggregates all invalid field names,
// sorted, into one InvalidConfigError.
func (s Settings) Validate() error {
	var invalid []string
	if s.AppName == "" {
		invalid = append(invalid, "app-name")
	}
	if !validLogLevels[s.LogLevel] {
		invalid = append(invalid, "log-level")
	}
	if s.SBIPort < 1 || s.SBIPort > 65535 {
		invalid = append(invalid, "sbi-port")
	}
	if s.Scheme != "http" && s.Scheme != "https" {
		invalid = append(invalid, "scheme")
	}
	if s.CommonName == "" {
		invalid = append(invalid, "common-name")
	}
	if len(invalid) == 0 {
		return nil
	}
	sort.Strings(invalid)
	return &InvalidConfigError{Fields: invalid}
}
