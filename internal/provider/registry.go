package provider

// Registry holds the statically known set of payment providers. It is built
// once at process start from configuration and passed by reference to the
// services and handlers that need it.
type Registry struct {
	providers map[string]PaymentProvider
	order     []string
}

// NewRegistry builds a registry from the given adapters. Registration order
// is preserved for deterministic iteration.
func NewRegistry(providers ...PaymentProvider) *Registry {
	r := &Registry{providers: make(map[string]PaymentProvider)}
	for _, p := range providers {
		if _, ok := r.providers[p.ID()]; ok {
			continue
		}
		r.providers[p.ID()] = p
		r.order = append(r.order, p.ID())
	}
	return r
}

// Get returns the adapter for id, whether enabled or not.
func (r *Registry) Get(id string) (PaymentProvider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// Enabled returns the adapters that are both configured and enabled.
func (r *Registry) Enabled() []PaymentProvider {
	var result []PaymentProvider
	for _, id := range r.order {
		p := r.providers[id]
		if p.IsConfigured() && p.IsEnabled() {
			result = append(result, p)
		}
	}
	return result
}
