package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"testrig/internal/lifecycle"
	"testrig/internal/service"
	"testrig/pkg/logging"
)

// Adapter is the lifecycle.ContainerAdapter of the memory container. The
// descriptor's scans name modules of the adapter's catalog.
type Adapter struct {
	mu      sync.RWMutex
	catalog map[string]Module
	vocab   service.Vocabulary
}

// NewAdapter returns an adapter using the default qualifier vocabulary.
func NewAdapter() *Adapter {
	return &Adapter{
		catalog: make(map[string]Module),
		vocab:   service.DefaultVocabulary(),
	}
}

// AddModule makes m available to descriptors scanning name.
func (a *Adapter) AddModule(name string, m Module) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.catalog[name] = m
}

// Modules lists the catalog names in order.
func (a *Adapter) Modules() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.catalog))
	for name := range a.catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (a *Adapter) Create(ctx context.Context, rc *lifecycle.Context) (any, error) {
	return New(), nil
}

func (a *Adapter) Configure(ctx context.Context, rc *lifecycle.Context, raw any) (service.Facade, error) {
	c, ok := raw.(*Container)
	if !ok {
		return nil, fmt.Errorf("expected *memory.Container, got %T", raw)
	}

	for _, scan := range rc.Descriptor().Scans() {
		a.mu.RLock()
		m, ok := a.catalog[scan]
		a.mu.RUnlock()
		if !ok {
			_ = c.Close(ctx)
			return nil, fmt.Errorf("no module named %q to scan", scan)
		}
		if err := c.LoadModules(m); err != nil {
			_ = c.Close(ctx)
			return nil, fmt.Errorf("scan %s: %w", scan, err)
		}
		logging.Debug("Facade", "Loaded module %s for %s", scan, rc.ID())
	}
	return service.New(c, a.vocab), nil
}
