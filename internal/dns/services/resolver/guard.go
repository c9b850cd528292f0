package resolver

// guard is the per-resolution loop protector: a set of the (name, type,
// class) triples currently on the resolution stack. Entering a triple twice
// means the data forms a cycle. A single resolution is one logical task, so
// the set needs no lock; concurrent top-level resolutions each carry their
// own guard.
type guard struct {
	active map[string]struct{}
}

func newGuard() *guard {
	return &guard{active: make(map[string]struct{})}
}

// maxNestedDepth bounds the resolution stack. Glueless nameserver chases
// and validator key fetches nest through resolve, and a hostile zone layout
// can keep that nesting growing without ever repeating a triple.
const maxNestedDepth = 64

// enter marks key active and returns a release function for the caller to
// defer, so every exit path pops the slot. Entering an active key fails
// with ErrLoopDetected; stacking past maxNestedDepth fails with
// ErrDepthLimit.
func (g *guard) enter(key string) (func(), error) {
	if _, exists := g.active[key]; exists {
		return nil, ErrLoopDetected
	}
	if g.depth() >= maxNestedDepth {
		return nil, ErrDepthLimit
	}
	g.active[key] = struct{}{}
	return func() { delete(g.active, key) }, nil
}

// depth returns the number of active frames, which bounds nested fetches.
func (g *guard) depth() int {
	return len(g.active)
}
