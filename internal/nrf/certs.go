package nrf

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-logr/logr"
)

// CertSyncResult reports which TLS artifacts changed during a sync pass.
type CertSyncResult struct {
	KeyChanged         bool
	CSRChanged         bool
	CertificateChanged bool
}

// Changed reports whether any artifact changed.
func (r CertSyncResult) Changed() bool {
	return r.KeyChanged || r.CSRChanged || r.CertificateChanged
}

// CertificateLifecycle owns the key/CSR/certificate rotation protocol.
// Two interchangeable strategies exist: ManualLifecycle keeps the CSR
// bookkeeping itself, DelegatedLifecycle receives issued material directly.
type CertificateLifecycle interface {
	// Available reports whether a usable certificate is obtainable right
	// now. Read-only.
	Available(ctx context.Context) (bool, error)

	// Sync drives the rotation state machine one idempotent step:
	// missing artifacts are generated and persisted, newly issued
	// certificates are stored. A second call with unchanged inputs
	// reports zero changes.
	Sync(ctx context.Context) (CertSyncResult, error)

	// HandleExpiry reacts to an expiring-certificate notification.
	// Notifications that do not match the stored certificate are
	// ignored.
	HandleExpiry(ctx context.Context, expiring []byte) error

	// Cleanup deletes the private key, signing request and certificate,
	// in that order, tolerating any partial combination.
	Cleanup(ctx context.Context) error
}

// ManualLifecycle is the strategy that performs its own CSR bookkeeping:
// generate a private key if absent, generate and submit a signing request
// if absent, and store the issued certificate whose embedded request
// byte-equals the local one.
type ManualLifecycle struct {
	Workload  Workload
	Authority CertificateAuthority
	Settings  Settings
	Log       logr.Logger
	Observer  Observer
}

// Available reports whether the external PKI currently assigns a
// certificate matching the stored signing request.
func (m ManualLifecycle) Available(ctx context.Context) (bool, error) {
	csr, err := m.storedCSR(ctx)
	if err != nil || csr == nil {
		return false, err
	}
	match, err := m.assignedMatch(ctx, csr)
	if err != nil {
		return false, err
	}
	return match != nil, nil
}

func (m ManualLifecycle) Sync(ctx context.Context) (CertSyncResult, error) {
	var result CertSyncResult

	key, generated, err := m.ensureKey(ctx)
	if err != nil {
		return result, err
	}
	result.KeyChanged = generated

	csr, requested, err := m.ensureCSR(ctx, key)
	if err != nil {
		return result, err
	}
	result.CSRChanged = requested

	stored, err := m.storeMatchingCertificate(ctx, csr)
	if err != nil {
		return result, err
	}
	result.CertificateChanged = stored
	return result, nil
}

// HandleExpiry requests a fresh certificate for the existing private key.
// A notification that does not byte-equal the stored certificate is stale
// or foreign: logged and ignored.
func (m ManualLifecycle) HandleExpiry(ctx context.Context, expiring []byte) error {
	exists, err := m.Workload.Exists(ctx, m.Settings.CertificatePath())
	if err != nil {
		return err
	}
	if !exists {
		m.Log.Info("Expiry notification with no stored certificate, ignoring")
		return nil
	}
	stored, err := m.Workload.ReadFile(ctx, m.Settings.CertificatePath())
	if err != nil {
		return err
	}
	if !bytes.Equal(stored, expiring) {
		m.Log.Info("Expiry notification does not match stored certificate, ignoring")
		return nil
	}
	keyExists, err := m.Workload.Exists(ctx, m.Settings.PrivateKeyPath())
	if err != nil {
		return err
	}
	if !keyExists {
		return fmt.Errorf("certificate expiring but no private key stored")
	}
	key, err := m.Workload.ReadFile(ctx, m.Settings.PrivateKeyPath())
	if err != nil {
		return err
	}
	csr, err := m.Authority.GenerateCSR(key, m.Settings.CommonName, []string{m.Settings.CommonName})
	if err != nil {
		return fmt.Errorf("generate signing request: %w", err)
	}
	if err := m.Workload.WriteFile(ctx, m.Settings.CSRPath(), csr); err != nil {
		return err
	}
	if err := m.Authority.RequestCertificate(ctx, csr); err != nil {
		return fmt.Errorf("request certificate renewal: %w", err)
	}
	m.Log.Info("Requested certificate renewal")
	return nil
}

func (m ManualLifecycle) Cleanup(ctx context.Context) error {
	return cleanupArtifacts(ctx, m.Workload, m.Settings, m.Log)
}

// ensureKey returns the stored private key, generating and persisting one
// when absent. Acts only when the key is missing.
func (m ManualLifecycle) ensureKey(ctx context.Context) (key []byte, generated bool, err error) {
	exists, err := m.Workload.Exists(ctx, m.Settings.PrivateKeyPath())
	if err != nil {
		return nil, false, err
	}
	if exists {
		key, err = m.Workload.ReadFile(ctx, m.Settings.PrivateKeyPath())
		return key, false, err
	}
	key, err = m.Authority.GeneratePrivateKey()
	if err != nil {
		return nil, false, fmt.Errorf("generate private key: %w", err)
	}
	if err := m.Workload.WriteFile(ctx, m.Settings.PrivateKeyPath(), key); err != nil {
		return nil, false, err
	}
	m.Log.Info("Stored private key")
	return key, true, nil
}

// ensureCSR returns the stored signing request, generating, persisting and
// submitting one when absent.
func (m ManualLifecycle) ensureCSR(ctx context.Context, key []byte) (csr []byte, requested bool, err error) {
	exists, err := m.Workload.Exists(ctx, m.Settings.CSRPath())
	if err != nil {
		return nil, false, err
	}
	if exists {
		csr, err = m.Workload.ReadFile(ctx, m.Settings.CSRPath())
		return csr, false, err
	}
	csr, err = m.Authority.GenerateCSR(key, m.Settings.CommonName, []string{m.Settings.CommonName})
	if err != nil {
		return nil, false, fmt.Errorf("generate signing request: %w", err)
	}
	if err := m.Workload.WriteFile(ctx, m.Settings.CSRPath(), csr); err != nil {
		return nil, false, err
	}
	if err := m.Authority.RequestCertificate(ctx, csr); err != nil {
		return nil, false, fmt.Errorf("request certificate: %w", err)
	}
	m.Log.Info("Stored signing request and requested certificate")
	return csr, true, nil
}

// storeMatchingCertificate scans the assigned certificates for the one
// whose embedded request byte-equals csr. First match wins. No match means
// "not yet available", never an error. The certificate is written only when
// it differs from the one on disk.
func (m ManualLifecycle) storeMatchingCertificate(ctx context.Context, csr []byte) (bool, error) {
	match, err := m.assignedMatch(ctx, csr)
	if err != nil {
		return false, err
	}
	if match == nil {
		return false, nil
	}
	exists, err := m.Workload.Exists(ctx, m.Settings.CertificatePath())
	if err != nil {
		return false, err
	}
	if exists {
		current, err := m.Workload.ReadFile(ctx, m.Settings.CertificatePath())
		if err != nil {
			return false, err
		}
		if bytes.Equal(current, match) {
			return false, nil
		}
	}
	if err := m.Workload.WriteFile(ctx, m.Settings.CertificatePath(), match); err != nil {
		return false, err
	}
	m.Observer.CertificateStored()
	m.Log.Info("Stored certificate")
	return true, nil
}

func (m ManualLifecycle) assignedMatch(ctx context.Context, csr []byte) ([]byte, error) {
	assigned, err := m.Authority.AssignedCertificates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list assigned certificates: %w", err)
	}
	for _, a := range assigned {
		if bytes.Equal(a.CSR, csr) {
			return a.Certificate, nil
		}
	}
	return nil, nil
}

func (m ManualLifecycle) storedCSR(ctx context.Context) ([]byte, error) {
	exists, err := m.Workload.Exists(ctx, m.Settings.CSRPath())
	if err != nil || !exists {
		return nil, err
	}
	return m.Workload.ReadFile(ctx, m.Settings.CSRPath())
}

// DelegatedLifecycle is the strategy where CSR and rotation bookkeeping is
// handled externally: the source hands out an issued certificate and key
// pair, and this strategy only stores whichever of the two changed.
type DelegatedLifecycle struct {
	Workload Workload
	Source   AssignedCertificateSource
	Settings Settings
	Log      logr.Logger
	Observer Observer
}

func (d DelegatedLifecycle) Available(ctx context.Context) (bool, error) {
	cert, key, err := d.Source.Assigned(ctx)
	if err != nil {
		return false, err
	}
	return cert != nil && key != nil, nil
}

func (d DelegatedLifecycle) Sync(ctx context.Context) (CertSyncResult, error) {
	var result CertSyncResult
	cert, key, err := d.Source.Assigned(ctx)
	if err != nil {
		return result, err
	}
	if cert == nil || key == nil {
		d.Log.V(1).Info("Certificate or private key not assigned yet")
		return result, nil
	}
	certChanged, err := storeIfChanged(ctx, d.Workload, d.Settings.CertificatePath(), cert)
	if err != nil {
		return result, err
	}
	if certChanged {
		d.Observer.CertificateStored()
		d.Log.Info("Stored certificate")
	}
	keyChanged, err := storeIfChanged(ctx, d.Workload, d.Settings.PrivateKeyPath(), key)
	if err != nil {
		return result, err
	}
	if keyChanged {
		d.Log.Info("Stored private key")
	}
	result.CertificateChanged = certChanged
	result.KeyChanged = keyChanged
	return result, nil
}

// HandleExpiry is a no-op: renewal is the delegated source's job.
func (d DelegatedLifecycle) HandleExpiry(ctx context.Context, expiring []byte) error {
	return nil
}

func (d DelegatedLifecycle) Cleanup(ctx context.Context) error {
	return cleanupArtifacts(ctx, d.Workload, d.Settings, d.Log)
}

// storeIfChanged writes data to path only when the current content differs.
func storeIfChanged(ctx context.Context, w Workload, path string, data []byte) (bool, error) {
	exists, err := w.Exists(ctx, path)
	if err != nil {
		return false, err
	}
	if exists {
		current, err := w.ReadFile(ctx, path)
		if err != nil {
			return false, err
		}
		if bytes.Equal(current, data) {
			return false, nil
		}
	}
	if err := w.WriteFile(ctx, path, data); err != nil {
		return false, err
	}
	return true, nil
}

// cleanupArtifacts deletes the private key, signing request and certificate
// in that order. Each deletion is a no-op when the file is already absent,
// so any partial combination is tolerated.
func cleanupArtifacts(ctx context.Context, w Workload, settings Settings, log logr.Logger) error {
	for _, path := range []string{settings.PrivateKeyPath(), settings.CSRPath(), settings.CertificatePath()} {
		exists, err := w.Exists(ctx, path)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}
		if err := w.RemoveFile(ctx, path); err != nil {
			return err
		}
		log.Info("Removed TLS artifact", "path", path)
	}
	return nil
}
