package nrf

import (
	"context"
	"fmt"
)

// fakeWorkload is an in-memory container: a filesystem, a supervisor plan
// and per-service running state. It counts mutations so tests can assert
// idempotence.
type fakeWorkload struct {
	reachable bool
	dirs      map[string]bool
	files     map[string][]byte
	services  map[string]ServiceSpec
	running   map[string]bool

	writes   int
	removes  int
	layers   int
	restarts int
}

func newFakeWorkload() *fakeWorkload {
	return &fakeWorkload{
		reachable: true,
		dirs:      map[string]bool{ConfigDir: true, CertsDir: true},
		files:     map[string][]byte{},
		services:  map[string]ServiceSpec{},
		running:   map[string]bool{},
	}
}

func (f *fakeWorkload) Reachable(ctx context.Context) bool { return f.reachable }

func (f *fakeWorkload) Exists(ctx context.Context, path string) (bool, error) {
	if f.dirs[path] {
		return true, nil
	}
	_, ok := f.files[path]
	return ok, nil
}

func (f *fakeWorkload) ReadFile(ctx context.Context, path string) ([]byte, error) {
	data, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", path)
	}
	return data, nil
}

func (f *fakeWorkload) WriteFile(ctx context.Context, path string, data []byte) error {
	f.files[path] = append([]byte(nil), data...)
	f.writes++
	return nil
}

func (f *fakeWorkload) RemoveFile(ctx context.Context, path string) error {
	if _, ok := f.files[path]; !ok {
		return fmt.Errorf("no such file: %s", path)
	}
	delete(f.files, path)
	f.removes++
	return nil
}

func (f *fakeWorkload) PlanServices(ctx context.Context) (map[string]ServiceSpec, error) {
	out := map[string]ServiceSpec{}
	for name, spec := range f.services {
		out[name] = spec
	}
	return out, nil
}

func (f *fakeWorkload) ApplyLayer(ctx context.Context, label string, layer Layer) error {
	for name, spec := range layer.Services {
		f.services[name] = spec
		if spec.Startup == "enabled" {
			f.running[name] = true
		}
	}
	f.layers++
	return nil
}

func (f *fakeWorkload) Restart(ctx context.Context, service string) error {
	if _, ok := f.services[service]; !ok {
		return fmt.Errorf("unknown service: %s", service)
	}
	f.running[service] = true
	f.restarts++
	return nil
}

func (f *fakeWorkload) ServiceRunning(ctx context.Context, service string) (bool, error) {
	return f.running[service], nil
}

// fakeStore is an in-memory relation store.
type fakeStore struct {
	kinds  map[string][]string
	data   map[string]map[string]string
	writes int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		kinds: map[string][]string{},
		data:  map[string]map[string]string{},
	}
}

func (s *fakeStore) add(kind, id string, data map[string]string) {
	s.kinds[kind] = append(s.kinds[kind], id)
	if data == nil {
		data = map[string]string{}
	}
	s.data[id] = data
}

func (s *fakeStore) remove(kind, id string) {
	var kept []string
	for _, existing := range s.kinds[kind] {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	s.kinds[kind] = kept
	delete(s.data, id)
}

func (s *fakeStore) Present(ctx context.Context, kind string) (bool, error) {
	return len(s.kinds[kind]) > 0, nil
}

func (s *fakeStore) IDs(ctx context.Context, kind string) ([]string, error) {
	return s.kinds[kind], nil
}

func (s *fakeStore) Read(ctx context.Context, id string) (map[string]string, error) {
	data, ok := s.data[id]
	if !ok {
		return nil, fmt.Errorf("no such relation: %s", id)
	}
	return data, nil
}

func (s *fakeStore) Write(ctx context.Context, id string, data map[string]string) error {
	existing, ok := s.data[id]
	if !ok {
		return fmt.Errorf("no such relation: %s", id)
	}
	for k, v := range data {
		existing[k] = v
	}
	s.writes++
	return nil
}

// fakeAuthority is a scripted PKI: generated artifacts are deterministic
// and issued certificates are whatever the test assigns.
type fakeAuthority struct {
	keys      int
	requested [][]byte
	assigned  []AssignedCertificate
}

func (a *fakeAuthority) GeneratePrivateKey() ([]byte, error) {
	a.keys++
	return []byte(fmt.Sprintf("key-%d", a.keys)), nil
}

func (a *fakeAuthority) GenerateCSR(key []byte, commonName string, sansDNS []string) ([]byte, error) {
	return []byte(fmt.Sprintf("csr(%s,%s)", key, commonName)), nil
}

func (a *fakeAuthority) RequestCertificate(ctx context.Context, csr []byte) error {
	a.requested = append(a.requested, append([]byte(nil), csr...))
	return nil
}

func (a *fakeAuthority) AssignedCertificates(ctx context.Context) ([]AssignedCertificate, error) {
	return a.assigned, nil
}

// fakeSource is a scripted delegated certificate source.
type fakeSource struct {
	cert []byte
	key  []byte
}

func (s *fakeSource) Assigned(ctx context.Context) (cert, key []byte, err error) {
	return s.cert, s.key, nil
}
