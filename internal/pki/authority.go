// Package pki implements the external PKI collaborators over the
// certificates relation databag: signing requests go out through the
// databag, issued certificates come back through it.
package pki

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"

	"gopkg.in/yaml.v2"

	"github.com/sdcore/nrf-operator/internal/nrf"
)

const keyBits = 2048

// Databag keys on the certificates relation.
const (
	csrKey          = "csr"
	certificatesKey = "certificates"
	certificateKey  = "certificate"
	privateKeyKey   = "private-key"
)

// RelationAuthority implements nrf.CertificateAuthority. Key and CSR
// generation is local; the request/issue exchange runs over the
// certificates relation.
type RelationAuthority struct {
	Relations nrf.RelationStore
}

// GeneratePrivateKey returns a new PEM-encoded RSA private key.
func (a *RelationAuthority) GeneratePrivateKey() ([]byte, error) {
	key, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, fmt.Errorf("generate RSA key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}), nil
}

// GenerateCSR builds a PEM-encoded signing request for the given
// PEM-encoded key, common name and DNS SANs.
func (a *RelationAuthority) GenerateCSR(keyPEM []byte, commonName string, sansDNS []string) ([]byte, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, fmt.Errorf("decode private key PEM")
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	der, err := x509.CreateCertificateRequest(rand.Reader, &x509.CertificateRequest{
		Subject:  pkix.Name{CommonName: commonName},
		DNSNames: sansDNS,
	}, key)
	if err != nil {
		return nil, fmt.Errorf("create signing request: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der}), nil
}

// RequestCertificate publishes the CSR into the certificates relation.
func (a *RelationAuthority) RequestCertificate(ctx context.Context, csr []byte) error {
	id, err := a.relationID(ctx)
	if err != nil {
		return err
	}
	return a.Relations.Write(ctx, id, map[string]string{csrKey: string(csr)})
}

// AssignedCertificates reads back every certificate the provider side has
// issued, each paired with the signing request it was issued for.
func (a *RelationAuthority) AssignedCertificates(ctx context.Context) ([]nrf.AssignedCertificate, error) {
	id, err := a.relationID(ctx)
	if err != nil {
		return nil, err
	}
	data, err := a.Relations.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	raw := data[certificatesKey]
	if raw == "" {
		return nil, nil
	}
	var entries []struct {
		CSR         string `yaml:"csr"`
		Certificate string `yaml:"certificate"`
	}
	if err := yaml.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decode assigned certificates: %w", err)
	}
	assigned := make([]nrf.AssignedCertificate, 0, len(entries))
	for _, e := range entries {
		assigned = append(assigned, nrf.AssignedCertificate{
			CSR:         []byte(e.CSR),
			Certificate: []byte(e.Certificate),
		})
	}
	return assigned, nil
}

func (a *RelationAuthority) relationID(ctx context.Context) (string, error) {
	ids, err := a.Relations.IDs(ctx, nrf.RelationCertificates)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("certificates relation not present")
	}
	return ids[0], nil
}

// RelationSource implements nrf.AssignedCertificateSource for the
// delegated lifecycle: the provider side writes the issued certificate and
// private key straight into the databag.
type RelationSource struct {
	Relations nrf.RelationStore
}

// Assigned returns the issued pair, or nils when not issued yet. An absent
// certificates relation is "not assigned", not an error.
func (s *RelationSource) Assigned(ctx context.Context) (cert, key []byte, err error) {
	ids, err := s.Relations.IDs(ctx, nrf.RelationCertificates)
	if err != nil {
		return nil, nil, err
	}
	if len(ids) == 0 {
		return nil, nil, nil
	}
	data, err := s.Relations.Read(ctx, ids[0])
	if err != nil {
		return nil, nil, err
	}
	if data[certificateKey] == "" || data[privateKeyKey] == "" {
		return nil, nil, nil
	}
	return []byte(data[certificateKey]), []byte(data[privateKeyKey]), nil
}
