package resilience

import (
	"sync"

	"github.com/coreflow-dev/agentcore/pkg/apierr"
	"github.com/coreflow-dev/agentcore/pkg/config"
)

// Breakers is a process-wide directory of named circuit breakers,
// lazily constructing one (from config.Config.Circuit's fallback-to-default
// lookup) the first time a name is used.
type Breakers struct {
	mu   sync.Mutex
	cfg  *config.Config
	byName map[string]*CircuitBreaker
}

// NewBreakers constructs an empty directory.
func NewBreakers(cfg *config.Config) *Breakers {
	return &Breakers{cfg: cfg, byName: map[string]*CircuitBreaker{}}
}

// Get returns the named breaker, creating it on first use.
func (d *Breakers) Get(name string) *CircuitBreaker {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.byName[name]; ok {
		return b
	}
	b := NewCircuitBreaker(name, d.cfg.Circuit(name))
	d.byName[name] = b
	return b
}

// Reset forces the named breaker back to closed, or apierr.NotFound if it
// has never been used.
func (d *Breakers) Reset(name string) error {
	d.mu.Lock()
	b, ok := d.byName[name]
	d.mu.Unlock()
	if !ok {
		return apierr.NotFound("circuit_breaker", name)
	}
	b.Reset()
	return nil
}

// List returns every breaker constructed so far, keyed by name.
func (d *Breakers) List() map[string]CircuitState {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]CircuitState, len(d.byName))
	for name, b := range d.byName {
		out[name] = b.State()
	}
	return out
}
