package providers

import (
	"fmt"
	"sort"

	"github.com/tobimartins/servicehub-backend/pkg/enums"
)

// Registry resolves payment methods to their adapters. It is populated once
// at startup and read-only afterwards.
type Registry struct {
	adapters map[enums.PaymentMethod]Adapter
}

// NewRegistry indexes the provided adapters by method key.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	index := make(map[enums.PaymentMethod]Adapter, len(adapters))
	for _, adapter := range adapters {
		if adapter == nil {
			return nil, fmt.Errorf("nil adapter provided")
		}
		name := adapter.Name()
		if !name.IsValid() {
			return nil, fmt.Errorf("adapter has invalid method key %q", name)
		}
		if _, exists := index[name]; exists {
			return nil, fmt.Errorf("duplicate adapter for method %q", name)
		}
		index[name] = adapter
	}
	return &Registry{adapters: index}, nil
}

// Resolve returns the adapter for the method, or an error if none registered.
func (r *Registry) Resolve(method enums.PaymentMethod) (Adapter, error) {
	adapter, ok := r.adapters[method]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for method %q", method)
	}
	return adapter, nil
}

// Methods lists the registered method keys in stable order.
func (r *Registry) Methods() []enums.PaymentMethod {
	methods := make([]enums.PaymentMethod, 0, len(r.adapters))
	for method := range r.adapters {
		methods = append(methods, method)
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i] < methods[j] })
	return methods
}
