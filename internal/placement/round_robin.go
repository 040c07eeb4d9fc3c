package placement

import (
	"fmt"
	"sync"

	"github.com/Cafe137/swarm-chunked-upload/internal/repository/objectstore"
)

type target struct {
	name string
	repo objectstore.ObjectRepository
}

// RoundRobinPlacer sends chunk i to target i mod n, in registration order.
type RoundRobinPlacer struct {
	mu      sync.RWMutex
	targets []target
}

// NewRoundRobinPlacer returns a placer with no targets.
func NewRoundRobinPlacer() *RoundRobinPlacer {
	return &RoundRobinPlacer{}
}

// RegisterTarget appends an export target. Names must be unique.
func (p *RoundRobinPlacer) RegisterTarget(name string, repo objectstore.ObjectRepository) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.find(name); ok {
		return fmt.Errorf("export target %s already registered", name)
	}
	p.targets = append(p.targets, target{name: name, repo: repo})
	return nil
}

// Target looks up a registered export target by name.
func (p *RoundRobinPlacer) Target(name string) (objectstore.ObjectRepository, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	t, ok := p.find(name)
	if !ok {
		return nil, fmt.Errorf("unknown export target %s", name)
	}
	return t.repo, nil
}

func (p *RoundRobinPlacer) Place(chunkIndex int) (string, objectstore.ObjectRepository, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	switch {
	case len(p.targets) == 0:
		return "", nil, fmt.Errorf("no export targets registered")
	case chunkIndex < 0:
		return "", nil, fmt.Errorf("invalid chunk index %d", chunkIndex)
	}
	t := p.targets[chunkIndex%len(p.targets)]
	return t.name, t.repo, nil
}

// Targets returns the target names in registration order.
func (p *RoundRobinPlacer) Targets() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.targets))
	for _, t := range p.targets {
		names = append(names, t.name)
	}
	return names
}

func (p *RoundRobinPlacer) find(name string) (target, bool) {
	for _, t := range p.targets {
		if t.name == name {
			return t, true
		}
	}
	return target{}, false
}
