package core

import (
	"fmt"
	"strings"

	"raur/internal/types"
)

type ResolveErrorKind string

const (
	ResolvePackageNotFound     ResolveErrorKind = "package-not-found"
	ResolveMissingDependency   ResolveErrorKind = "missing-dependency"
	ResolveCycle               ResolveErrorKind = "cycle"
	ResolveMetadataUnavailable ResolveErrorKind = "metadata-unavailable"
)

// ResolveError aborts a run before any build work starts.
type ResolveError struct {
	Kind ResolveErrorKind
	Name types.PackageName
	// RequiredBy lists the packages that asked for Name.
	RequiredBy []types.PackageName
	// Cycle is the closed path, first element repeated at the end.
	Cycle  []types.PackageName
	Reason string
	Err    error
}

func (e *ResolveError) Error() string {
	switch e.Kind {
	case ResolvePackageNotFound:
		msg := fmt.Sprintf("package not found: %s", e.Name)
		if e.Reason != "" {
			msg += ": " + e.Reason
		}
		return msg
	case ResolveMissingDependency:
		msg := fmt.Sprintf("missing dependency %s (required by %s)", e.Name, joinNames(e.RequiredBy))
		if e.Reason != "" {
			msg += ": " + e.Reason
		}
		return msg
	case ResolveCycle:
		return fmt.Sprintf("dependency cycle: %s", joinPath(e.Cycle))
	case ResolveMetadataUnavailable:
		if e.Err != nil {
			return fmt.Sprintf("metadata unavailable: %v", e.Err)
		}
		return "metadata unavailable"
	default:
		return string(e.Kind)
	}
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// PlanError reports a cycle found while ordering the graph.
type PlanError struct {
	Cycle []types.PackageName
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("cannot order build plan, cycle among: %s", joinNames(e.Cycle))
}

func joinNames(names []types.PackageName) string {
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, string(name))
	}
	return strings.Join(parts, ", ")
}

func joinPath(names []types.PackageName) string {
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, string(name))
	}
	return strings.Join(parts, " -> ")
}
