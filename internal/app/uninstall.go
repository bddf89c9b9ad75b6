package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"raur/internal/shared"
	"raur/internal/types"
)

func (s Service) Uninstall(ctx context.Context, req UninstallRequest) (UninstallResult, error) {
	if len(req.Names) == 0 {
		return UninstallResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("no packages requested")
	}
	seen := map[types.PackageName]struct{}{}
	var names []types.PackageName
	for _, raw := range req.Names {
		name, err := shared.ValidatePackageName(strings.TrimSpace(raw))
		if err != nil {
			return UninstallResult{}, err
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	if err := s.Privilege.Check(true); err != nil {
		return UninstallResult{}, err
	}
	lock, err := s.lock()
	if err != nil {
		return UninstallResult{}, err
	}
	defer lock.Release()

	for _, name := range names {
		_, installed, err := s.Installed.Query(ctx, name)
		if err != nil {
			return UninstallResult{}, err
		}
		if !installed {
			return UninstallResult{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("package %s is not installed", name))
		}
	}
	if err := s.Installer.Preflight(); err != nil {
		return UninstallResult{}, err
	}
	if err := s.Installer.Remove(ctx, names); err != nil {
		return UninstallResult{}, err
	}
	return UninstallResult{Removed: names}, nil
}
