package bounty

import "sort"

// Registry maps live entity handles to their bindings.
type Registry struct {
	byHandle map[EntityHandle]Binding
}

func NewRegistry() *Registry {
	return &Registry{byHandle: map[EntityHandle]Binding{}}
}

func (r *Registry) Bind(h EntityHandle, b Binding) {
	if h == "" {
		return
	}
	if prev, ok := r.byHandle[h]; ok && b.OriginalName == "" {
		b.OriginalName = prev.OriginalName
	}
	r.byHandle[h] = b
}

func (r *Registry) Lookup(h EntityHandle) (Binding, bool) {
	b, ok := r.byHandle[h]
	return b, ok
}

// SetOriginalName records the pre-binding display name once.
func (r *Registry) SetOriginalName(h EntityHandle, name string) {
	b, ok := r.byHandle[h]
	if !ok || b.OriginalName != "" {
		return
	}
	b.OriginalName = name
	r.byHandle[h] = b
}

func (r *Registry) Unbind(h EntityHandle) {
	delete(r.byHandle, h)
}

// ForBounty lists the handles bound to bountyID in handle order.
func (r *Registry) ForBounty(bountyID string) []EntityHandle {
	var out []EntityHandle
	for h, b := range r.byHandle {
		if b.BountyID == bountyID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
