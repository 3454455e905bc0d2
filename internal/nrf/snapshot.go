package nrf

import (
	"context"
	"strings"
)

// Workload is the container/process collaborator: a filesystem plus a
// process supervisor. The production implementation talks to the Pebble
// daemon in the workload container.
type Workload interface {
	// Reachable reports whether the supervisor API answers at all.
	Reachable(ctx context.Context) bool
	Exists(ctx context.Context, path string) (bool, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, data []byte) error
	RemoveFile(ctx context.Context, path string) error

	// PlanServices returns the service definitions of the currently
	// active supervisor plan, keyed by service name.
	PlanServices(ctx context.Context) (map[string]ServiceSpec, error)
	ApplyLayer(ctx context.Context, label string, layer Layer) error
	Restart(ctx context.Context, service string) error
	ServiceRunning(ctx context.Context, service string) (bool, error)
}

// RelationStore is the relation/databag collaborator: a named key-value
// exchange per relation instance.
type RelationStore interface {
	Present(ctx context.Context, kind string) (bool, error)
	// IDs enumerates the relation instances of a kind.
	IDs(ctx context.Context, kind string) ([]string, error)
	Read(ctx context.Context, id string) (map[string]string, error)
	// Write merges data into the relation's outgoing view. Writing to an
	// id that does not exist is an error.
	Write(ctx context.Context, id string, data map[string]string) error
}

// AssignedCertificate pairs an issued certificate with the signing request
// it was issued for.
type AssignedCertificate struct {
	CSR         []byte
	Certificate []byte
}

// CertificateAuthority is the external PKI collaborator used by the manual
// certificate lifecycle.
type CertificateAuthority interface {
	GeneratePrivateKey() ([]byte, error)
	GenerateCSR(key []byte, commonName string, sansDNS []string) ([]byte, error)
	RequestCertificate(ctx context.Context, csr []byte) error
	AssignedCertificates(ctx context.Context) ([]AssignedCertificate, error)
}

// AssignedCertificateSource is the collaborator for the delegated
// certificate lifecycle: it hands out an already-issued certificate and
// private key pair, or nils when none is assigned yet.
type AssignedCertificateSource interface {
	Assigned(ctx context.Context) (cert, key []byte, err error)
}

// Snapshot is the value of every external dependency at one instant.
// Built fresh per reconciliation, never cached.
type Snapshot struct {
	ContainerReachable bool
	Relations          map[string]bool
	DatabaseCreated    bool
	DatabaseURI        string
	WebuiURL           string
	StorageAttached    bool
	HostAddress        string
}

// MissingRelations returns the required relations absent from the
// snapshot, in gate evaluation order.
func (s Snapshot) MissingRelations(settings Settings) []string {
	var missing []string
	for _, kind := range settings.RequiredRelations() {
		if !s.Relations[kind] {
			missing = append(missing, kind)
		}
	}
	return missing
}

// Collector gathers a Snapshot from the collaborators. Leaf component:
// read-only, no sub-dependencies.
type Collector struct {
	Workload  Workload
	Relations RelationStore
	Settings  Settings

	// HostAddress resolves the unit's own network address. May be nil
	// when the host cannot provide one.
	HostAddress func() string
}

// Collect builds a fresh snapshot. Relation reads that fail are reported
// as errors; an unreachable container is a value, not an error.
func (c Collector) Collect(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Relations: map[string]bool{}}
	snap.ContainerReachable = c.Workload.Reachable(ctx)

	for _, kind := range []string{RelationDatabase, RelationCertificates, RelationSdcoreConfig, RelationFivegNRF} {
		present, err := c.Relations.Present(ctx, kind)
		if err != nil {
			return Snapshot{}, err
		}
		snap.Relations[kind] = present
	}

	if snap.Relations[RelationDatabase] {
		created, uri, err := c.databaseInfo(ctx)
		if err != nil {
			return Snapshot{}, err
		}
		snap.DatabaseCreated = created
		snap.DatabaseURI = uri
	}

	if snap.Relations[RelationSdcoreConfig] {
		url, err := c.webuiURL(ctx)
		if err != nil {
			return Snapshot{}, err
		}
		snap.WebuiURL = url
	}

	if snap.ContainerReachable {
		attached, err := c.storageAttached(ctx)
		if err != nil {
			return Snapshot{}, err
		}
		snap.StorageAttached = attached
	}

	if c.HostAddress != nil {
		snap.HostAddress = c.HostAddress()
	}
	return snap, nil
}

// databaseInfo reads the first database relation instance. The resource is
// considered created once the provider confirmed the database name; the URI
// is the first entry of the comma-separated uris value.
func (c Collector) databaseInfo(ctx context.Context) (created bool, uri string, err error) {
	ids, err := c.Relations.IDs(ctx, RelationDatabase)
	if err != nil || len(ids) == 0 {
		return false, "", err
	}
	data, err := c.Relations.Read(ctx, ids[0])
	if err != nil {
		return false, "", err
	}
	if data["database"] == "" {
		return false, "", nil
	}
	uris := data["uris"]
	if uris == "" {
		return true, "", nil
	}
	return true, strings.Split(uris, ",")[0], nil
}

func (c Collector) webuiURL(ctx context.Context) (string, error) {
	ids, err := c.Relations.IDs(ctx, RelationSdcoreConfig)
	if err != nil || len(ids) == 0 {
		return "", err
	}
	data, err := c.Relations.Read(ctx, ids[0])
	if err != nil {
		return "", err
	}
	return data["webui_url"], nil
}

// storageAttached reports whether both required mount points exist on the
// workload filesystem.
func (c Collector) storageAttached(ctx context.Context) (bool, error) {
	for _, path := range []string{ConfigDir, CertsDir} {
		ok, err := c.Workload.Exists(ctx, path)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
