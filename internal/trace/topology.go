// topology.go - Transition-graph and authority checks over the path log.

package trace

// StartNode is the implicit predecessor of the first agent in a path.
const StartNode = "start"

// TopologyGuard validates that each agent only ever follows an allowed
// predecessor. The allowed map is predecessor -> permitted successors.
type TopologyGuard struct {
	allowed map[string][]string
}

// NewTopologyGuard creates a guard from an allowed-transition map.
func NewTopologyGuard(allowed map[string][]string) *TopologyGuard {
	return &TopologyGuard{allowed: allowed}
}

// CheckAccess reports whether agent may act on the task given the last entry
// in its path log.
func (g *TopologyGuard) CheckAccess(agent string, st *TaskState) bool {
	last := StartNode
	if n := len(st.Meta.PathLog); n > 0 {
		last = st.Meta.PathLog[n-1]
	}
	for _, next := range g.allowed[last] {
		if next == agent {
			return true
		}
	}
	return false
}

// Gate is the high-privilege admission check: the path log must replay to
// the claimed fingerprint, and the required role must appear in it. A forged
// log fails the math; a valid log without the role fails the policy.
type Gate struct {
	inspector *Inspector
}

// NewGate creates a gate backed by the given inspector.
func NewGate(inspector *Inspector) *Gate {
	return &Gate{inspector: inspector}
}

// RequireAuthority verifies the task's path mathematically and then checks
// the role's presence.
func (g *Gate) RequireAuthority(st *TaskState, requiredRole string) (bool, error) {
	ok, err := g.inspector.VerifyPath(st.Meta.TraceT, st.Meta.PathLog)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	for _, agent := range st.Meta.PathLog {
		if agent == requiredRole {
			return true, nil
		}
	}
	return false, nil
}
