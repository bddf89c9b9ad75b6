package types

// Dependency is a package reference as it appears in a depends array,
// e.g. "python-requests>=2.31".
type Dependency struct {
	Name    PackageName
	Op      ConstraintOp
	Version string
}

func (d Dependency) String() string {
	if d.Op == ConstraintOpNone {
		return string(d.Name)
	}
	return string(d.Name) + string(d.Op) + d.Version
}
