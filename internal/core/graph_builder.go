package core

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"raur/internal/ports"
	"raur/internal/types"
)

// GraphBuilder expands requested packages into a dependency graph.
type GraphBuilder struct {
	Metadata  ports.MetadataPort
	Installed ports.InstalledPort
	// Repo is optional. When set, names unknown to the metadata service
	// but served by the sync repositories become repo nodes.
	Repo ports.RepoPort
}

type ResolveOptions struct {
	// Force ignores the installed state of the roots so they are rebuilt.
	Force bool
}

func NewGraphBuilder(metadata ports.MetadataPort, installed ports.InstalledPort) GraphBuilder {
	return GraphBuilder{
		Metadata:  metadata,
		Installed: installed,
	}
}

func (b GraphBuilder) WithRepo(repo ports.RepoPort) GraphBuilder {
	b.Repo = repo
	return b
}

// Resolve expands roots breadth-first, one frontier at a time. Every
// frontier is visited in lexical order and looked up with a single
// metadata call, so the resulting graph does not depend on how the
// metadata client schedules its requests.
func (b GraphBuilder) Resolve(ctx context.Context, roots []types.Dependency, opts ResolveOptions) (types.DependencyGraph, error) {
	if b.Metadata == nil || b.Installed == nil {
		return types.DependencyGraph{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("graph builder requires metadata and installed ports")
	}
	if len(roots) == 0 {
		return types.DependencyGraph{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("no packages requested")
	}

	graph := types.NewDependencyGraph()
	requiredBy := map[types.PackageName]map[types.PackageName]struct{}{}
	cache := map[types.PackageName]types.PackageMetadata{}
	frontier := map[types.PackageName]struct{}{}

	for _, root := range roots {
		node, ok := graph.Nodes[root.Name]
		if !ok {
			node = &types.DependencyNode{
				Name:  root.Name,
				State: types.NodeStatePending,
				Root:  true,
				Force: opts.Force,
			}
			graph.Nodes[root.Name] = node
			graph.Roots = append(graph.Roots, root.Name)
		}
		node.Requirements = appendRequirement(node.Requirements, root)
		frontier[root.Name] = struct{}{}
	}

	depth := 0
	for len(frontier) > 0 {
		names := sortedSet(frontier)
		frontier = map[types.PackageName]struct{}{}
		log.Ctx(ctx).Debug().Int("depth", depth).Int("names", len(names)).Msg("expanding frontier")

		var expand, lookup []types.PackageName
		for _, name := range names {
			node := graph.Nodes[name]
			satisfied, err := b.checkInstalled(ctx, node)
			if err != nil {
				return types.DependencyGraph{}, err
			}
			if satisfied {
				continue
			}
			expand = append(expand, name)
			if _, ok := cache[name]; !ok {
				lookup = append(lookup, name)
			}
		}

		if len(lookup) > 0 {
			found, err := b.Metadata.Lookup(ctx, lookup)
			if err != nil {
				return types.DependencyGraph{}, &ResolveError{Kind: ResolveMetadataUnavailable, Err: err}
			}
			for name, meta := range found {
				cache[name] = meta
			}
		}

		for _, name := range expand {
			node := graph.Nodes[name]
			meta, ok := cache[name]
			if !ok {
				if err := b.resolveFromRepo(ctx, node, requiredBy[name]); err != nil {
					return types.DependencyGraph{}, err
				}
				continue
			}
			if !SatisfiesAll(meta.Version, node.Requirements) {
				return types.DependencyGraph{}, unsatisfiedError(node, meta.Version, requiredBy[name])
			}
			node.Metadata = meta
			node.Origin = types.OriginAUR
			node.State = types.NodeStateResolved

			for _, dep := range meta.Dependencies() {
				if requiredBy[dep.Name] == nil {
					requiredBy[dep.Name] = map[types.PackageName]struct{}{}
				}
				requiredBy[dep.Name][name] = struct{}{}

				child, exists := graph.Nodes[dep.Name]
				if !exists {
					graph.Nodes[dep.Name] = &types.DependencyNode{
						Name:         dep.Name,
						State:        types.NodeStatePending,
						Requirements: []types.Dependency{dep},
					}
					frontier[dep.Name] = struct{}{}
					continue
				}
				child.Requirements = appendRequirement(child.Requirements, dep)
				switch child.State {
				case types.NodeStateSatisfied:
					// Installed, but too old for this dependent.
					if !Satisfies(child.InstalledVersion, dep) {
						child.State = types.NodeStatePending
						frontier[dep.Name] = struct{}{}
					}
				case types.NodeStateResolved:
					if !Satisfies(child.Metadata.Version, dep) {
						return types.DependencyGraph{}, unsatisfiedError(child, child.Metadata.Version, requiredBy[dep.Name])
					}
				}
			}
		}
		depth++
	}

	for name, set := range requiredBy {
		node, ok := graph.Nodes[name]
		if !ok {
			continue
		}
		node.Dependents = sortedSet(set)
	}

	if cycle := detectCycle(graph); len(cycle) > 0 {
		return types.DependencyGraph{}, &ResolveError{Kind: ResolveCycle, Name: cycle[0], Cycle: cycle}
	}

	log.Ctx(ctx).Debug().
		Int("nodes", len(graph.Nodes)).
		Int("satisfied", len(graph.NamesInState(types.NodeStateSatisfied))).
		Msg("dependency graph resolved")
	return graph, nil
}

// checkInstalled marks node satisfied when the installed version meets
// every requirement collected so far. Forced roots are never satisfied.
func (b GraphBuilder) checkInstalled(ctx context.Context, node *types.DependencyNode) (bool, error) {
	version, installed, err := b.Installed.Query(ctx, node.Name)
	if err != nil {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("query installed state of %s", node.Name)).
			WithCause(err)
	}
	if !installed {
		return false, nil
	}
	node.InstalledVersion = version
	if node.Root && node.Force {
		return false, nil
	}
	ok, err := installedSatisfies(ctx, b.Installed, version, node.Requirements)
	if err != nil {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("query installed state of %s", node.Name)).
			WithCause(err)
	}
	if !ok {
		return false, nil
	}
	node.State = types.NodeStateSatisfied
	log.Ctx(ctx).Debug().Str("package", string(node.Name)).Str("version", version).Msg("already installed")
	return true, nil
}

// installedSatisfies checks reqs against an installed version. A name
// that is only provided has no version of its own, so its versioned
// requirements go to the installed oracle, which knows provide versions.
func installedSatisfies(ctx context.Context, installed ports.InstalledPort, version string, reqs []types.Dependency) (bool, error) {
	if version != "" {
		return SatisfiesAll(version, reqs), nil
	}
	for _, req := range reqs {
		if req.Op == types.ConstraintOpNone {
			continue
		}
		ok, err := installed.Satisfied(ctx, req)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// resolveFromRepo serves a non-root node from the sync repositories. The
// provider's own version is never compared with the requirements: a
// requirement on a provided name is checked by the repository itself.
func (b GraphBuilder) resolveFromRepo(ctx context.Context, node *types.DependencyNode, parents map[types.PackageName]struct{}) error {
	if b.Repo != nil && !node.Root {
		provider, ok, err := b.repoProvider(ctx, types.Dependency{Name: node.Name})
		if err != nil {
			return err
		}
		if ok {
			for _, req := range node.Requirements {
				if req.Op == types.ConstraintOpNone {
					continue
				}
				_, found, err := b.repoProvider(ctx, req)
				if err != nil {
					return err
				}
				if !found {
					node.State = types.NodeStateFailed
					return &ResolveError{
						Kind:       ResolveMissingDependency,
						Name:       node.Name,
						RequiredBy: sortedSet(parents),
						Reason:     fmt.Sprintf("no sync package satisfies %s", req),
					}
				}
			}
			node.Origin = types.OriginRepo
			node.State = types.NodeStateResolved
			node.Metadata = types.PackageMetadata{Name: provider.Name, Version: provider.Version}
			log.Ctx(ctx).Debug().
				Str("package", string(node.Name)).
				Str("provider", string(provider.Name)).
				Msg("served by sync repository")
			return nil
		}
	}
	node.State = types.NodeStateFailed
	if node.Root {
		return &ResolveError{Kind: ResolvePackageNotFound, Name: node.Name}
	}
	return &ResolveError{Kind: ResolveMissingDependency, Name: node.Name, RequiredBy: sortedSet(parents)}
}

func (b GraphBuilder) repoProvider(ctx context.Context, dep types.Dependency) (types.InstalledPackage, bool, error) {
	provider, ok, err := b.Repo.Provider(ctx, dep)
	if err != nil {
		return types.InstalledPackage{}, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("query sync repositories for %s", dep)).
			WithCause(err)
	}
	return provider, ok, nil
}

func unsatisfiedError(node *types.DependencyNode, version string, parents map[types.PackageName]struct{}) error {
	node.State = types.NodeStateFailed
	var unmet []string
	for _, req := range node.Requirements {
		if !Satisfies(version, req) {
			unmet = append(unmet, req.String())
		}
	}
	reason := fmt.Sprintf("available version %s does not satisfy %v", version, unmet)
	if node.Root && len(parents) == 0 {
		return &ResolveError{Kind: ResolvePackageNotFound, Name: node.Name, Reason: reason}
	}
	return &ResolveError{
		Kind:       ResolveMissingDependency,
		Name:       node.Name,
		RequiredBy: sortedSet(parents),
		Reason:     reason,
	}
}

type dfsFrame struct {
	name types.PackageName
	deps []types.PackageName
	next int
}

// detectCycle walks resolved nodes depth-first with an explicit stack. A
// node is in the Resolving state while it is on the active path; meeting
// such a node again closes a cycle, which is returned as a path whose
// first and last elements are equal.
func detectCycle(graph types.DependencyGraph) []types.PackageName {
	done := map[types.PackageName]bool{}
	for _, start := range graph.Names() {
		root := graph.Nodes[start]
		if root.State != types.NodeStateResolved || done[start] {
			continue
		}
		root.State = types.NodeStateResolving
		stack := []dfsFrame{{name: start, deps: root.DependsOn()}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next >= len(top.deps) {
				graph.Nodes[top.name].State = types.NodeStateResolved
				done[top.name] = true
				stack = stack[:len(stack)-1]
				continue
			}
			dep := top.deps[top.next]
			top.next++
			child, ok := graph.Nodes[dep]
			if !ok || done[dep] {
				continue
			}
			switch child.State {
			case types.NodeStateResolving:
				cycle := []types.PackageName{}
				for i := range stack {
					if stack[i].name == dep {
						for _, frame := range stack[i:] {
							cycle = append(cycle, frame.name)
						}
						break
					}
				}
				cycle = append(cycle, dep)
				for _, frame := range stack {
					graph.Nodes[frame.name].State = types.NodeStateResolved
				}
				return cycle
			case types.NodeStateResolved:
				child.State = types.NodeStateResolving
				stack = append(stack, dfsFrame{name: dep, deps: child.DependsOn()})
			}
		}
	}
	return nil
}

func appendRequirement(reqs []types.Dependency, dep types.Dependency) []types.Dependency {
	for _, existing := range reqs {
		if existing == dep {
			return reqs
		}
	}
	return append(reqs, dep)
}

func sortedSet(set map[types.PackageName]struct{}) []types.PackageName {
	out := make([]types.PackageName, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	types.SortNames(out)
	return out
}
