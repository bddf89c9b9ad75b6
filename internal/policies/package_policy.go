package policies

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"raur/internal/shared"
	"raur/internal/types"
)

// PackagePolicy decides which packages a run may touch. Ignore patterns
// are "name", "prefix*" or "*", optionally scoped by origin ("aur:name",
// "repo:prefix*").
type PackagePolicy struct {
	Patterns       []string
	exactByOrigin  map[types.Origin]map[types.PackageName]struct{}
	exactAny       map[types.PackageName]struct{}
	prefixByOrigin map[types.Origin][]string
	prefixAny      []string
	wildcardOrigin map[types.Origin]struct{}
	wildcardAny    bool
}

func NewPackagePolicy(patterns []string) PackagePolicy {
	policy := PackagePolicy{Patterns: append([]string(nil), patterns...)}
	policy.compile()
	return policy
}

// Ignored reports whether name from origin matches an ignore pattern.
func (p PackagePolicy) Ignored(origin types.Origin, name types.PackageName) bool {
	if p.wildcardAny {
		return true
	}
	if _, ok := p.wildcardOrigin[origin]; ok {
		return true
	}
	if _, ok := p.exactAny[name]; ok {
		return true
	}
	if _, ok := p.exactByOrigin[origin][name]; ok {
		return true
	}
	for _, prefix := range p.prefixAny {
		if strings.HasPrefix(string(name), prefix) {
			return true
		}
	}
	for _, prefix := range p.prefixByOrigin[origin] {
		if strings.HasPrefix(string(name), prefix) {
			return true
		}
	}
	return false
}

// CheckRequest rejects explicit requests for debug variants and ignored
// packages.
func (p PackagePolicy) CheckRequest(name types.PackageName) error {
	if shared.IsDebugPackage(string(name)) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("debug package %s cannot be requested directly", name))
	}
	if p.Ignored(types.OriginAUR, name) {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("package %s is ignored by configuration", name))
	}
	return nil
}

// UpdateCandidate reports whether an installed foreign package should be
// considered by update.
func (p PackagePolicy) UpdateCandidate(name types.PackageName) bool {
	return !shared.IsDebugPackage(string(name)) && !p.Ignored(types.OriginAUR, name)
}

type patternKind int

const (
	patternExact patternKind = iota
	patternPrefix
	patternWildcard
	patternInvalid
)

type parsedPattern struct {
	origin *types.Origin
	kind   patternKind
	name   string
}

func (p *PackagePolicy) compile() {
	p.exactByOrigin = map[types.Origin]map[types.PackageName]struct{}{}
	p.exactAny = map[types.PackageName]struct{}{}
	p.prefixByOrigin = map[types.Origin][]string{}
	p.prefixAny = nil
	p.wildcardOrigin = map[types.Origin]struct{}{}
	p.wildcardAny = false
	for _, pattern := range p.Patterns {
		parsed, ok := parsePattern(pattern)
		if !ok {
			continue
		}
		switch parsed.kind {
		case patternWildcard:
			if parsed.origin == nil {
				p.wildcardAny = true
			} else {
				p.wildcardOrigin[*parsed.origin] = struct{}{}
			}
		case patternExact:
			name := types.PackageName(parsed.name)
			if parsed.origin == nil {
				p.exactAny[name] = struct{}{}
				continue
			}
			if p.exactByOrigin[*parsed.origin] == nil {
				p.exactByOrigin[*parsed.origin] = map[types.PackageName]struct{}{}
			}
			p.exactByOrigin[*parsed.origin][name] = struct{}{}
		case patternPrefix:
			if parsed.origin == nil {
				p.prefixAny = append(p.prefixAny, parsed.name)
			} else {
				p.prefixByOrigin[*parsed.origin] = append(p.prefixByOrigin[*parsed.origin], parsed.name)
			}
		}
	}
}

func parsePattern(pattern string) (parsedPattern, bool) {
	trimmed := strings.TrimSpace(pattern)
	if trimmed == "" {
		return parsedPattern{kind: patternInvalid}, false
	}
	if trimmed == "*" {
		return parsedPattern{kind: patternWildcard}, true
	}
	parts := strings.Split(trimmed, ":")
	if len(parts) == 2 {
		origin, ok := parseOrigin(parts[0])
		if !ok {
			return parsedPattern{kind: patternInvalid}, false
		}
		name, kind := parseNamePattern(parts[1])
		if kind == patternInvalid {
			return parsedPattern{kind: patternInvalid}, false
		}
		return parsedPattern{origin: &origin, kind: kind, name: name}, true
	}
	name, kind := parseNamePattern(trimmed)
	if kind == patternInvalid {
		return parsedPattern{kind: patternInvalid}, false
	}
	return parsedPattern{kind: kind, name: name}, true
}

func parseOrigin(token string) (types.Origin, bool) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "aur":
		return types.OriginAUR, true
	case "repo":
		return types.OriginRepo, true
	default:
		return "", false
	}
}

func parseNamePattern(value string) (string, patternKind) {
	pattern := strings.TrimSpace(value)
	if pattern == "" {
		return "", patternInvalid
	}
	if pattern == "*" {
		return "", patternWildcard
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.TrimSuffix(pattern, "*"), patternPrefix
	}
	return pattern, patternExact
}
