package kernelgen

// VarRewrites is a process-local `renamed -> canonical` mapping, transitively
// closed on lookup (spec §3, §9). Populated by the Unifier when it elides a
// pure shape-identity op; consumed by the kernel assembler when resolving
// input and output names.
type VarRewrites struct {
	m map[string]string
}

// NewVarRewrites returns an empty table.
func NewVarRewrites() *VarRewrites {
	return &VarRewrites{m: map[string]string{}}
}

// Insert records that renamed should resolve to canonical.
func (v *VarRewrites) Insert(renamed, canonical string) {
	v.m[renamed] = canonical
}

// Lookup follows the rewrite chain until a name is not itself a key,
// guaranteeing Lookup(Lookup(name)) == Lookup(name).
func (v *VarRewrites) Lookup(name string) string {
	visited := map[string]bool{name: true}
	for {
		next, ok := v.m[name]
		if !ok {
			return name
		}
		if visited[next] {
			// Cycle: insertion is expected never to create one (spec §9); bail
			// out returning the last well-defined name rather than looping forever.
			return name
		}
		visited[next] = true
		name = next
	}
}
