package core

import (
	"context"

	"github.com/rs/zerolog/log"

	"raur/internal/types"
)

type Planner struct{}

func NewPlanner() Planner {
	return Planner{}
}

// Plan orders the resolved nodes of graph so that every prerequisite
// precedes its dependents. Satisfied nodes are left out. Among nodes that
// are ready at the same time the lexically smallest name goes first.
func (Planner) Plan(ctx context.Context, graph types.DependencyGraph) (types.BuildPlan, error) {
	included := map[types.PackageName]*types.DependencyNode{}
	for name, node := range graph.Nodes {
		if node.State == types.NodeStateResolved {
			included[name] = node
		}
	}
	roots := map[types.PackageName]struct{}{}
	for _, name := range graph.Roots {
		roots[name] = struct{}{}
	}

	requires := map[types.PackageName][]types.PackageName{}
	reverse := map[types.PackageName][]types.PackageName{}
	inDegree := map[types.PackageName]int{}
	for name, node := range included {
		inDegree[name] += 0
		for _, dep := range node.DependsOn() {
			if _, ok := included[dep]; !ok {
				continue
			}
			requires[name] = append(requires[name], dep)
			reverse[dep] = append(reverse[dep], name)
			inDegree[name]++
		}
	}

	var ready []types.PackageName
	for name, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, name)
		}
	}

	plan := types.BuildPlan{Entries: make([]types.PlanEntry, 0, len(included))}
	for len(ready) > 0 {
		types.SortNames(ready)
		name := ready[0]
		ready = ready[1:]

		node := included[name]
		_, explicit := roots[name]
		plan.Entries = append(plan.Entries, types.PlanEntry{
			Name:         name,
			Origin:       node.Origin,
			Metadata:     node.Metadata,
			Requires:     requires[name],
			Requirements: node.Requirements,
			Explicit:     explicit,
			Force:        node.Root && node.Force,
		})
		for _, dependent := range reverse[name] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(plan.Entries) != len(included) {
		var stuck []types.PackageName
		for name, degree := range inDegree {
			if degree > 0 {
				stuck = append(stuck, name)
			}
		}
		types.SortNames(stuck)
		return types.BuildPlan{}, &PlanError{Cycle: stuck}
	}

	log.Ctx(ctx).Debug().Int("entries", plan.Len()).Msg("build plan ordered")
	return plan, nil
}
