package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"raur/internal/shared"
	"raur/internal/types"
)

func (s Service) Info(ctx context.Context, req InfoRequest) (InfoResult, error) {
	if len(req.Names) == 0 {
		return InfoResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("no packages requested")
	}
	names := make([]types.PackageName, 0, len(req.Names))
	for _, raw := range req.Names {
		name, err := shared.ValidatePackageName(strings.TrimSpace(raw))
		if err != nil {
			return InfoResult{}, err
		}
		names = append(names, name)
	}
	found, err := s.Metadata.Lookup(ctx, names)
	if err != nil {
		return InfoResult{}, err
	}

	result := InfoResult{}
	var missing []string
	for _, name := range names {
		meta, ok := found[name]
		if !ok {
			missing = append(missing, string(name))
			continue
		}
		info := PackageInfo{Metadata: meta}
		if s.Installed != nil {
			version, installed, err := s.Installed.Query(ctx, name)
			if err != nil {
				return InfoResult{}, err
			}
			info.Installed = installed
			info.InstalledVersion = version
		}
		result.Packages = append(result.Packages, info)
	}
	if len(missing) > 0 {
		return result, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("package not found: %s", strings.Join(missing, ", ")))
	}
	return result, nil
}

// Search marks results that are installed as foreign packages.
func (s Service) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	if s.Searcher == nil {
		return SearchResult{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("search is not available")
	}
	found, err := s.Searcher.Search(ctx, strings.TrimSpace(req.Term))
	if err != nil {
		return SearchResult{}, err
	}
	installed := map[types.PackageName]string{}
	if s.Installed != nil {
		foreign, err := s.Installed.ListForeign(ctx)
		if err != nil {
			return SearchResult{}, err
		}
		for _, pkg := range foreign {
			installed[pkg.Name] = pkg.Version
		}
	}
	result := SearchResult{Packages: make([]PackageInfo, 0, len(found))}
	for _, meta := range found {
		version, ok := installed[meta.Name]
		result.Packages = append(result.Packages, PackageInfo{
			Metadata:         meta,
			Installed:        ok,
			InstalledVersion: version,
		})
	}
	return result, nil
}
