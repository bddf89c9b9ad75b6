package types

type PlanEntry struct {
	Name     PackageName
	Origin   Origin
	Metadata PackageMetadata
	// Requires lists the prerequisites that are also part of the plan.
	Requires     []PackageName
	Requirements []Dependency
	// Explicit entries were requested by the user and are installed as
	// explicitly installed packages; the rest are installed as dependencies.
	Explicit bool
	Force    bool
}

type BuildPlan struct {
	Entries []PlanEntry
}

func (p BuildPlan) Names() []PackageName {
	out := make([]PackageName, 0, len(p.Entries))
	for _, entry := range p.Entries {
		out = append(out, entry.Name)
	}
	return out
}

func (p BuildPlan) Len() int {
	return len(p.Entries)
}

// Dependents maps every plan entry to the entries that directly require it.
func (p BuildPlan) Dependents() map[PackageName][]PackageName {
	out := map[PackageName][]PackageName{}
	for _, entry := range p.Entries {
		for _, req := range entry.Requires {
			out[req] = append(out[req], entry.Name)
		}
	}
	return out
}
