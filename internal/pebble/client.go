// Package pebble adapts the Pebble daemon running inside the NRF workload
// container to the collaborator interface the reconciliation core expects.
package pebble

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	pebbleclient "github.com/canonical/pebble/client"
	"gopkg.in/yaml.v2"

	"github.com/sdcore/nrf-operator/internal/nrf"
)

const restartTimeout = 30 * time.Second

// Client implements nrf.Workload over the Pebble HTTP API.
type Client struct {
	pebble *pebbleclient.Client
}

// NewClient returns a client for the Pebble daemon at baseURL,
// e.g. "http://nrf.sdcore.svc:8484".
func NewClient(baseURL string) (*Client, error) {
	c, err := pebbleclient.New(&pebbleclient.Config{BaseURL: baseURL})
	if err != nil {
		return nil, fmt.Errorf("create pebble client: %w", err)
	}
	return &Client{pebble: c}, nil
}

// Reachable reports whether the Pebble daemon answers at all.
func (c *Client) Reachable(ctx context.Context) bool {
	_, err := c.pebble.SysInfo()
	return err == nil
}

// Exists reports whether path exists on the workload filesystem.
func (c *Client) Exists(ctx context.Context, path string) (bool, error) {
	_, err := c.pebble.ListFiles(&pebbleclient.ListFilesOptions{Path: path, Itself: true})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return true, nil
}

func (c *Client) ReadFile(ctx context.Context, path string) ([]byte, error) {
	var buf bytes.Buffer
	err := c.pebble.Pull(&pebbleclient.PullOptions{Path: path, Target: &buf})
	if err != nil {
		return nil, fmt.Errorf("pull %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

func (c *Client) WriteFile(ctx context.Context, path string, data []byte) error {
	err := c.pebble.Push(&pebbleclient.PushOptions{
		Source:   bytes.NewReader(data),
		Path:     path,
		MakeDirs: true,
	})
	if err != nil {
		return fmt.Errorf("push %s: %w", path, err)
	}
	return nil
}

func (c *Client) RemoveFile(ctx context.Context, path string) error {
	err := c.pebble.RemovePath(&pebbleclient.RemovePathOptions{Path: path})
	if err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// PlanServices returns the service definitions of the active plan.
func (c *Client) PlanServices(ctx context.Context) (map[string]nrf.ServiceSpec, error) {
	data, err := c.pebble.PlanBytes(&pebbleclient.PlanOptions{})
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	var plan struct {
		Services map[string]nrf.ServiceSpec `yaml:"services"`
	}
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	return plan.Services, nil
}

// ApplyLayer adds the layer with combine semantics: the named services are
// replaced, other services in the plan are untouched.
func (c *Client) ApplyLayer(ctx context.Context, label string, layer nrf.Layer) error {
	data, err := yaml.Marshal(layer)
	if err != nil {
		return fmt.Errorf("encode layer: %w", err)
	}
	err = c.pebble.AddLayer(&pebbleclient.AddLayerOptions{
		Combine:   true,
		Label:     label,
		LayerData: data,
	})
	if err != nil {
		return fmt.Errorf("add layer %s: %w", label, err)
	}
	// Replan so that newly enabled services are started.
	changeID, err := c.pebble.Replan(&pebbleclient.ServiceOptions{})
	if err != nil {
		return fmt.Errorf("replan: %w", err)
	}
	if _, err := c.pebble.WaitChange(changeID, &pebbleclient.WaitChangeOptions{Timeout: restartTimeout}); err != nil {
		return fmt.Errorf("wait for replan: %w", err)
	}
	return nil
}

// Restart restarts the service and waits for the change to complete.
func (c *Client) Restart(ctx context.Context, service string) error {
	changeID, err := c.pebble.Restart(&pebbleclient.ServiceOptions{Names: []string{service}})
	if err != nil {
		return fmt.Errorf("restart %s: %w", service, err)
	}
	if _, err := c.pebble.WaitChange(changeID, &pebbleclient.WaitChangeOptions{Timeout: restartTimeout}); err != nil {
		return fmt.Errorf("wait for restart of %s: %w", service, err)
	}
	return nil
}

// ServiceRunning reports whether the named service is active. A service
// not yet part of the plan reports false.
func (c *Client) ServiceRunning(ctx context.Context, service string) (bool, error) {
	infos, err := c.pebble.Services(&pebbleclient.ServicesOptions{Names: []string{service}})
	if err != nil {
		return false, fmt.Errorf("get service status: %w", err)
	}
	for _, info := range infos {
		if info.Name == service {
			return info.Current == pebbleclient.StatusActive, nil
		}
	}
	return false, nil
}

func isNotFound(err error) bool {
	var clientErr *pebbleclient.Error
	return errors.As(err, &clientErr) && clientErr.StatusCode == http.StatusNotFound
}
