package types

// PackageName identifies a package. Equality is case-sensitive.
type PackageName string

func (n PackageName) String() string {
	return string(n)
}

// PackageMetadata is the validated view of a metadata service record.
type PackageMetadata struct {
	Name                PackageName
	PackageBase         string
	Version             string
	Description         string
	Maintainer          string
	Popularity          float64
	OutOfDate           bool
	BuildDependencies   []Dependency
	RuntimeDependencies []Dependency
	// RecipeSource is the git locator of the recipe; SnapshotPath is the
	// tarball path relative to the metadata service.
	RecipeSource string
	SnapshotPath string
}

// Dependencies returns build dependencies followed by runtime dependencies.
func (m PackageMetadata) Dependencies() []Dependency {
	out := make([]Dependency, 0, len(m.BuildDependencies)+len(m.RuntimeDependencies))
	out = append(out, m.BuildDependencies...)
	out = append(out, m.RuntimeDependencies...)
	return out
}

// Base returns the package base, falling back to the package name.
func (m PackageMetadata) Base() string {
	if m.PackageBase != "" {
		return m.PackageBase
	}
	return string(m.Name)
}

type InstalledPackage struct {
	Name    PackageName
	Version string
}
