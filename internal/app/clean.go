package app

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
)

// Clean removes staged recipe directories from the work directory. Only
// directories holding a PKGBUILD are touched.
func (s Service) Clean(ctx context.Context, req CleanRequest) (CleanResult, error) {
	if s.WorkDir == "" {
		return CleanResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("work directory is empty")
	}
	entries, err := os.ReadDir(s.WorkDir)
	if os.IsNotExist(err) {
		return CleanResult{}, nil
	}
	if err != nil {
		return CleanResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read work directory").
			WithCause(err)
	}

	lock, err := s.lock()
	if err != nil {
		return CleanResult{}, err
	}
	defer lock.Release()

	result := CleanResult{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(s.WorkDir, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, "PKGBUILD")); err != nil {
			continue
		}
		if !req.DryRun {
			if err := os.RemoveAll(dir); err != nil {
				return result, errbuilder.New().
					WithCode(errbuilder.CodeInternal).
					WithMsg("failed to remove " + dir).
					WithCause(err)
			}
		}
		log.Ctx(ctx).Debug().Str("dir", dir).Bool("dry_run", req.DryRun).Msg("cleaned build directory")
		result.Removed = append(result.Removed, dir)
	}
	sort.Strings(result.Removed)
	return result, nil
}
