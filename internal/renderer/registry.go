package renderer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/alexisbeaulieu97/deckr/internal/element"
	deckerrors "github.com/alexisbeaulieu97/deckr/pkg/errors"
)

// Factory builds the instance for one host element.
type Factory func(props element.Props, fallback int, opts element.Options) (*element.LcdKey, error)

// Registry maps host element types to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry with the lcdKey element registered.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	_ = r.Register(element.Type, newLcdKey)
	return r
}

// Register adds a factory for typ.
func (r *Registry) Register(typ string, f Factory) error {
	if typ == "" {
		return deckerrors.NewConfigurationError(typ, "element type is empty")
	}
	if f == nil {
		return deckerrors.NewConfigurationError(typ, "factory is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[typ]; exists {
		return deckerrors.NewConfigurationError(typ, "element type already registered")
	}
	r.factories[typ] = f
	return nil
}

// Lookup returns the factory for typ.
func (r *Registry) Lookup(typ string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[typ]
	if !ok {
		return nil, deckerrors.NewConfigurationError(typ, fmt.Sprintf("unsupported type: %s", typ))
	}
	return f, nil
}

// Types lists the registered element types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.factories))
	for typ := range r.factories {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}

func newLcdKey(props element.Props, fallback int, opts element.Options) (*element.LcdKey, error) {
	return element.NewLcdKey(props, fallback, opts), nil
}
