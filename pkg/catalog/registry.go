package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/labdesc/pkg/observability"
	"github.com/ethpandaops/labdesc/pkg/types"
)

// Registry holds the loaded scenarios of one catalog root.
type Registry struct {
	log            logrus.FieldLogger
	root           string
	descriptorName string

	mu      sync.RWMutex
	entries []Entry
	byName  map[string]*Entry
}

// NewRegistry scans root and fails if any scenario fails to load.
func NewRegistry(log logrus.FieldLogger, root, descriptorName string) (*Registry, error) {
	r := &Registry{
		log:            log.WithField("component", "catalog"),
		root:           root,
		descriptorName: descriptorName,
	}

	if err := r.Reload(); err != nil {
		return nil, err
	}

	return r, nil
}

// Reload rescans the root and swaps in the new contents. On failure the
// previous contents stay in place.
func (r *Registry) Reload() error {
	entries, err := Scan(r.root, r.descriptorName)
	if err != nil {
		return fmt.Errorf("loading catalog %s: %w", r.root, err)
	}

	byName := make(map[string]*Entry, len(entries))
	for i := range entries {
		byName[entries[i].Name] = &entries[i]
	}

	r.mu.Lock()
	r.entries = entries
	r.byName = byName
	r.mu.Unlock()

	observability.CatalogScenarios.Set(float64(len(entries)))

	r.log.WithFields(logrus.Fields{
		"root":           r.root,
		"scenario_count": len(entries),
	}).Info("Catalog loaded")

	return nil
}

// All returns a copy of every entry.
func (r *Registry) All() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		e.Descriptor = e.Descriptor.Clone()
		result[i] = e
	}

	return result
}

// Get returns a copy of the named entry.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byName[name]
	if !ok {
		return Entry{}, false
	}

	out := *e
	out.Descriptor = e.Descriptor.Clone()

	return out, true
}

// Summaries returns the condensed view of every entry.
func (r *Registry) Summaries() []types.ScenarioSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]types.ScenarioSummary, 0, len(r.entries))
	for _, e := range r.entries {
		result = append(result, e.Summary())
	}

	return result
}

// Count returns the number of loaded scenarios.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// ImageIDs returns the distinct backend image ids in use, sorted.
func (r *Registry) ImageIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := make(map[string]struct{})
	for _, e := range r.entries {
		if id := e.Descriptor.Backend.ImageID; id != "" {
			set[id] = struct{}{}
		}
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}
