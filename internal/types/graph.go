package types

import "sort"

type DependencyNode struct {
	Name             PackageName
	Metadata         PackageMetadata
	State            NodeState
	Origin           Origin
	InstalledVersion string
	// Requirements are the constraints placed on this node by the roots
	// and by its dependents.
	Requirements []Dependency
	// Dependents is a diagnostic back-reference ("required by").
	Dependents []PackageName
	Root       bool
	Force      bool
}

// DependsOn returns the distinct, sorted names this node requires.
func (n *DependencyNode) DependsOn() []PackageName {
	seen := map[PackageName]struct{}{}
	var out []PackageName
	for _, dep := range n.Metadata.Dependencies() {
		if _, ok := seen[dep.Name]; ok {
			continue
		}
		seen[dep.Name] = struct{}{}
		out = append(out, dep.Name)
	}
	SortNames(out)
	return out
}

type DependencyGraph struct {
	Nodes map[PackageName]*DependencyNode
	Roots []PackageName
}

func NewDependencyGraph() DependencyGraph {
	return DependencyGraph{Nodes: map[PackageName]*DependencyNode{}}
}

// Names returns every node name in lexical order.
func (g DependencyGraph) Names() []PackageName {
	out := make([]PackageName, 0, len(g.Nodes))
	for name := range g.Nodes {
		out = append(out, name)
	}
	SortNames(out)
	return out
}

// NamesInState returns the sorted names of nodes in the given state.
func (g DependencyGraph) NamesInState(state NodeState) []PackageName {
	var out []PackageName
	for name, node := range g.Nodes {
		if node.State == state {
			out = append(out, name)
		}
	}
	SortNames(out)
	return out
}

func SortNames(names []PackageName) {
	sort.Slice(names, func(i, j int) bool {
		return names[i] < names[j]
	})
}
