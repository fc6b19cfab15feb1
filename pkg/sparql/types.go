package sparql

import "github.com/gitvan-dev/gitvan/pkg/quad"

// Binding is one solution mapping: variable name (without '?') to the
// term it is bound to. A variable absent from the map is unbound.
type Binding map[string]quad.Term

func cloneBinding(b Binding) Binding {
	nb := make(Binding, len(b)+2)
	for k, v := range b {
		nb[k] = v
	}
	return nb
}
