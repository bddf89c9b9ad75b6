package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"raur/internal/core"
	"raur/internal/types"
)

// Update rebuilds every foreign package whose AUR version is newer than
// the installed one. Debug variants and ignored packages are left alone.
func (s Service) Update(ctx context.Context, req UpdateRequest) (UpdateResult, error) {
	if err := s.Privilege.Check(true); err != nil {
		return UpdateResult{}, err
	}
	foreign, err := s.Installed.ListForeign(ctx)
	if err != nil {
		return UpdateResult{}, err
	}
	installed := map[types.PackageName]string{}
	var names []types.PackageName
	for _, pkg := range foreign {
		if !s.Policy.UpdateCandidate(pkg.Name) {
			log.Ctx(ctx).Debug().Str("package", string(pkg.Name)).Msg("skipping update candidate")
			continue
		}
		installed[pkg.Name] = pkg.Version
		names = append(names, pkg.Name)
	}
	types.SortNames(names)

	result := UpdateResult{}
	if len(names) == 0 {
		return result, nil
	}
	found, err := s.Metadata.Lookup(ctx, names)
	if err != nil {
		return result, &core.ResolveError{Kind: core.ResolveMetadataUnavailable, Err: err}
	}

	var roots []types.Dependency
	for _, name := range names {
		meta, ok := found[name]
		if !ok {
			result.NotInAUR = append(result.NotInAUR, name)
			continue
		}
		if core.CompareVersions(meta.Version, installed[name]) <= 0 {
			continue
		}
		result.Updates = append(result.Updates, PackageUpdate{
			Name:      name,
			Installed: installed[name],
			Available: meta.Version,
		})
		roots = append(roots, types.Dependency{Name: name, Op: types.ConstraintOpGte, Version: meta.Version})
	}
	if len(roots) == 0 {
		return result, nil
	}

	run, err := s.run(ctx, "update", roots, core.ResolveOptions{Force: true}, req.Confirm)
	result.Run = run
	return result, err
}
