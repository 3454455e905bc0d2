// Package relation models the databag exchange between cooperating
// applications as labelled ConfigMaps: one ConfigMap per relation instance,
// carrying a small key/value mapping.
package relation

import (
	"context"
	"fmt"
	"sort"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Labels identifying relation ConfigMaps.
const (
	KindLabel = "sdcore.io/relation"
	AppLabel  = "sdcore.io/app"
)

// ConfigMapStore implements the relation collaborator over ConfigMaps in
// the application's namespace.
type ConfigMapStore struct {
	Client    client.Client
	Namespace string
	App       string
}

// Present reports whether at least one relation instance of kind exists.
func (s *ConfigMapStore) Present(ctx context.Context, kind string) (bool, error) {
	ids, err := s.IDs(ctx, kind)
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// IDs enumerates the relation instances of kind, sorted for deterministic
// iteration.
func (s *ConfigMapStore) IDs(ctx context.Context, kind string) ([]string, error) {
	list := &corev1.ConfigMapList{}
	err := s.Client.List(ctx, list,
		client.InNamespace(s.Namespace),
		client.MatchingLabels{KindLabel: kind, AppLabel: s.App},
	)
	if err != nil {
		return nil, fmt.Errorf("list %s relations: %w", kind, err)
	}
	ids := make([]string, 0, len(list.Items))
	for _, cm := range list.Items {
		ids = append(ids, cm.Name)
	}
	sort.Strings(ids)
	return ids, nil
}

// Read returns the relation's databag.
func (s *ConfigMapStore) Read(ctx context.Context, id string) (map[string]string, error) {
	cm := &corev1.ConfigMap{}
	if err := s.Client.Get(ctx, types.NamespacedName{Name: id, Namespace: s.Namespace}, cm); err != nil {
		return nil, fmt.Errorf("read relation %s: %w", id, err)
	}
	if cm.Data == nil {
		return map[string]string{}, nil
	}
	return cm.Data, nil
}

// Write merges data into the relation's databag. Writing to a relation
// that does not exist is an error: relations are created by the requirer,
// never implicitly by a write.
func (s *ConfigMapStore) Write(ctx context.Context, id string, data map[string]string) error {
	cm := &corev1.ConfigMap{}
	if err := s.Client.Get(ctx, types.NamespacedName{Name: id, Namespace: s.Namespace}, cm); err != nil {
		return fmt.Errorf("write relation %s: %w", id, err)
	}
	if cm.Data == nil {
		cm.Data = map[string]string{}
	}
	changed := false
	for k, v := range data {
		if cm.Data[k] != v {
			cm.Data[k] = v
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := s.Client.Update(ctx, cm); err != nil {
		return fmt.Errorf("write relation %s: %w", id, err)
	}
	return nil
}
