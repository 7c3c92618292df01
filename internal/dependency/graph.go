// internal/dependency/graph.go
package dependency

import (
	"fmt"
	"strings"
)

// NodeState represents the convergence state of a node (resource) within one
// run. The engine updates it as it walks the graph and reports render it.
type NodeState int

const (
	StatePending NodeState = iota
	StateInSync
	StateChanged
	StateFailed
	StateSkipped
)

func (s NodeState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateInSync:
		return "in-sync"
	case StateChanged:
		return "changed"
	case StateFailed:
		return "failed"
	case StateSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// NodeID is the unique identifier for a node inside a dependency graph.
// Resources use "<kind>:<name>", e.g. "file:/etc/rabbitmq/rabbitmq.config".
type NodeID string

// NodeKind categorises nodes by resource type.
type NodeKind int

const (
	KindUnknown NodeKind = iota
	KindPackage
	KindRepo
	KindDirectory
	KindFile
	KindExec
	KindPlugin
	KindService
	KindUser
	KindDownload
)

func (k NodeKind) String() string {
	switch k {
	case KindPackage:
		return "package"
	case KindRepo:
		return "repo"
	case KindDirectory:
		return "directory"
	case KindFile:
		return "file"
	case KindExec:
		return "exec"
	case KindPlugin:
		return "plugin"
	case KindService:
		return "service"
	case KindUser:
		return "user"
	case KindDownload:
		return "download"
	default:
		return "unknown"
	}
}

// Node represents one resource together with its dependency list.
//
// A node can depend on zero or more other nodes. The graph must be a
// Directed Acyclic Graph; TopologicalOrder reports cycles.
type Node struct {
	ID           NodeID
	FriendlyName string
	Kind         NodeKind
	DependsOn    []NodeID
	State        NodeState
}

// Graph is a very small helper to answer dependency queries. It is *not*
// thread-safe by itself; callers must synchronise if they write concurrently.
// Insertion order is remembered so that ordering is deterministic.
type Graph struct {
	nodes map[NodeID]*Node
	order []NodeID
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[NodeID]*Node)}
}

// AddNode adds (or replaces) a node in the graph.
func (g *Graph) AddNode(n Node) {
	if g.nodes == nil {
		g.nodes = make(map[NodeID]*Node)
	}
	if _, exists := g.nodes[n.ID]; !exists {
		g.order = append(g.order, n.ID)
	}
	// Copy to avoid external mutations; duplicate edges collapse into one.
	copied := n
	copied.DependsOn = nil
	seen := make(map[NodeID]bool, len(n.DependsOn))
	for _, dep := range n.DependsOn {
		if !seen[dep] {
			seen[dep] = true
			copied.DependsOn = append(copied.DependsOn, dep)
		}
	}
	g.nodes[n.ID] = &copied
}

// Get returns a pointer to the stored node or nil if it does not exist.
func (g *Graph) Get(id NodeID) *Node {
	return g.nodes[id]
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// SetState records the state of a node; unknown IDs are ignored.
func (g *Graph) SetState(id NodeID, state NodeState) {
	if n, ok := g.nodes[id]; ok {
		n.State = state
	}
}

// Dependencies returns a slice of immediate dependency IDs for the given node.
func (g *Graph) Dependencies(id NodeID) []NodeID {
	if n, ok := g.nodes[id]; ok {
		// Return a copy to avoid callers modifying internal slice.
		depsCopy := make([]NodeID, len(n.DependsOn))
		copy(depsCopy, n.DependsOn)
		return depsCopy
	}
	return nil
}

// Dependents returns all node IDs that have a direct dependency on the given
// node, in insertion order. This is an O(n) walk but catalogs are small.
func (g *Graph) Dependents(id NodeID) []NodeID {
	var res []NodeID
	for _, nid := range g.order {
		for _, dep := range g.nodes[nid].DependsOn {
			if dep == id {
				res = append(res, nid)
				break
			}
		}
	}
	return res
}

// TransitiveDependents returns every node that depends on id directly or
// indirectly, in insertion order.
func (g *Graph) TransitiveDependents(id NodeID) []NodeID {
	seen := map[NodeID]bool{}
	queue := []NodeID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range g.Dependents(cur) {
			if !seen[d] {
				seen[d] = true
				queue = append(queue, d)
			}
		}
	}

	var res []NodeID
	for _, nid := range g.order {
		if seen[nid] {
			res = append(res, nid)
		}
	}
	return res
}

// CycleError reports a dependency cycle.
type CycleError struct {
	Path []NodeID
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = string(id)
	}
	return "dependency cycle: " + strings.Join(parts, " -> ")
}

// TopologicalOrder returns all nodes ordered so that every node comes after
// its dependencies. Among nodes whose dependencies are satisfied, insertion
// order wins, so the same graph always yields the same order. A dependency
// on an unknown node or a cycle is an error.
func (g *Graph) TopologicalOrder() ([]NodeID, error) {
	indegree := make(map[NodeID]int, len(g.nodes))
	for _, id := range g.order {
		for _, dep := range g.nodes[id].DependsOn {
			if _, ok := g.nodes[dep]; !ok {
				return nil, fmt.Errorf("node %s depends on unknown node %s", id, dep)
			}
			indegree[id]++
		}
	}

	done := make(map[NodeID]bool, len(g.nodes))
	result := make([]NodeID, 0, len(g.nodes))
	for len(result) < len(g.order) {
		progressed := false
		for _, id := range g.order {
			if done[id] || indegree[id] > 0 {
				continue
			}
			done[id] = true
			result = append(result, id)
			for _, dependent := range g.Dependents(id) {
				indegree[dependent]--
			}
			progressed = true
			break
		}
		if !progressed {
			return nil, &CycleError{Path: g.findCycle(done)}
		}
	}
	return result, nil
}

// findCycle walks remaining nodes depth-first until a node repeats.
func (g *Graph) findCycle(done map[NodeID]bool) []NodeID {
	var start NodeID
	for _, id := range g.order {
		if !done[id] {
			start = id
			break
		}
	}

	index := map[NodeID]int{}
	var path []NodeID
	cur := start
	for {
		if i, ok := index[cur]; ok {
			return append(path[i:], cur)
		}
		index[cur] = len(path)
		path = append(path, cur)
		next := NodeID("")
		for _, dep := range g.nodes[cur].DependsOn {
			if !done[dep] {
				next = dep
				break
			}
		}
		if next == "" {
			return path
		}
		cur = next
	}
}
