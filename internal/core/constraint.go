package core

import (
	"github.com/ZanzyTHEbar/errbuilder-go"

	"raur/internal/shared"
	"raur/internal/types"
)

// ParseRequests parses user supplied package requests ("foo", "foo>=1.2")
// and merges duplicates so each name appears once, in input order.
func ParseRequests(raw []string) ([]types.Dependency, error) {
	if len(raw) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("no packages requested")
	}
	seen := map[types.PackageName]struct{}{}
	out := make([]types.Dependency, 0, len(raw))
	for _, item := range raw {
		dep, err := shared.ParseDependency(item)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[dep.Name]; ok && dep.Op == types.ConstraintOpNone {
			continue
		}
		seen[dep.Name] = struct{}{}
		out = append(out, dep)
	}
	return out, nil
}

// Satisfies reports whether version meets the dependency's constraint.
// A bare name reference is satisfied by any version.
func Satisfies(version string, dep types.Dependency) bool {
	if dep.Op == types.ConstraintOpNone {
		return true
	}
	c := CompareVersions(version, dep.Version)
	switch dep.Op {
	case types.ConstraintOpEq:
		// "=1.2" without a release matches every release of 1.2.
		want := ParseVersion(dep.Version)
		if want.Release == "" {
			have := ParseVersion(version)
			have.Release = ""
			return have.Compare(want) == 0
		}
		return c == 0
	case types.ConstraintOpGte:
		return c >= 0
	case types.ConstraintOpLte:
		return c <= 0
	case types.ConstraintOpGt:
		return c > 0
	case types.ConstraintOpLt:
		return c < 0
	default:
		return false
	}
}

// SatisfiesAll reports whether version meets every constraint.
func SatisfiesAll(version string, deps []types.Dependency) bool {
	for _, dep := range deps {
		if !Satisfies(version, dep) {
			return false
		}
	}
	return true
}
