package shared

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"raur/internal/types"
)

// opTokens is the ordered list of operators tried during parsing. Longer
// tokens must precede shorter ones (">=" before ">").
var opTokens = []types.ConstraintOp{
	types.ConstraintOpGte,
	types.ConstraintOpLte,
	types.ConstraintOpEq,
	types.ConstraintOpGt,
	types.ConstraintOpLt,
}

// ValidatePackageName checks a name against the pacman naming rules:
// alphanumerics and @._+- only, not starting with a hyphen or a dot.
func ValidatePackageName(raw string) (types.PackageName, error) {
	if raw == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("empty package name")
	}
	if raw[0] == '-' || raw[0] == '.' {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid package name: %s", raw))
	}
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("@._+-", r):
		default:
			return "", errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid package name: %s", raw))
		}
	}
	return types.PackageName(raw), nil
}

// ParseDependency splits a raw "name>=version" string into a Dependency.
// A string without an operator is a bare name reference.
func ParseDependency(raw string) (types.Dependency, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return types.Dependency{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("empty dependency")
	}
	for _, op := range opTokens {
		idx := strings.Index(raw, string(op))
		if idx < 0 {
			continue
		}
		name := strings.TrimSpace(raw[:idx])
		version := strings.TrimSpace(raw[idx+len(op):])
		if name == "" || version == "" {
			return types.Dependency{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid dependency: %s", raw))
		}
		valid, err := ValidatePackageName(name)
		if err != nil {
			return types.Dependency{}, err
		}
		return types.Dependency{Name: valid, Op: op, Version: version}, nil
	}
	valid, err := ValidatePackageName(raw)
	if err != nil {
		return types.Dependency{}, err
	}
	return types.Dependency{Name: valid}, nil
}
