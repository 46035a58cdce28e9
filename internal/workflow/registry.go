package workflow

// Registry holds workflow definitions in registration order.
type Registry struct {
	order []ID
	defs  map[ID]*Definition
}

// NewRegistry registers defs in order. A later definition with an ID already
// seen replaces the earlier one and keeps its position.
func NewRegistry(defs ...*Definition) *Registry {
	r := &Registry{defs: make(map[ID]*Definition, len(defs))}
	for _, d := range defs {
		r.Register(d)
	}
	return r
}

// Register adds or replaces def.
func (r *Registry) Register(def *Definition) {
	if def == nil {
		return
	}
	if _, ok := r.defs[def.ID]; !ok {
		r.order = append(r.order, def.ID)
	}
	r.defs[def.ID] = def
}

// Get returns the definition registered under id.
func (r *Registry) Get(id ID) (*Definition, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// IDs returns the registered ids in order.
func (r *Registry) IDs() []ID {
	out := make([]ID, len(r.order))
	copy(out, r.order)
	return out
}
