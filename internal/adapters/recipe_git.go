package adapters

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	git "github.com/go-git/go-git/v5"
	gitPlumbing "github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/rs/zerolog/log"

	"raur/internal/ports"
	"raur/internal/types"
)

// DefaultMirrorURL hosts every AUR package base as a branch.
const DefaultMirrorURL = "https://github.com/archlinux/aur.git"

// GitRecipeStager clones a package base into WorkDir/<base>. With
// UseMirror it clones the base's branch of MirrorURL instead of the
// per-package AUR repository.
type GitRecipeStager struct {
	WorkDir   string
	MirrorURL string
	UseMirror bool
	// Depth limits clone history; 0 clones everything.
	Depth int
}

func NewGitRecipeStager(workDir string, mirrorURL string, useMirror bool) GitRecipeStager {
	if strings.TrimSpace(mirrorURL) == "" {
		mirrorURL = DefaultMirrorURL
	}
	return GitRecipeStager{
		WorkDir:   workDir,
		MirrorURL: mirrorURL,
		UseMirror: useMirror,
		Depth:     1,
	}
}

func (s GitRecipeStager) Stage(ctx context.Context, meta types.PackageMetadata) (types.StagedRecipe, error) {
	if strings.TrimSpace(s.WorkDir) == "" {
		return types.StagedRecipe{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("work directory is empty")
	}
	dir, err := prepareStageDir(s.WorkDir, meta.Base())
	if err != nil {
		return types.StagedRecipe{}, err
	}

	opts := &git.CloneOptions{URL: meta.RecipeSource, Depth: s.Depth}
	if s.UseMirror {
		opts.URL = s.MirrorURL
		opts.ReferenceName = gitPlumbing.NewBranchReferenceName(meta.Base())
		opts.SingleBranch = true
	}
	if strings.TrimSpace(opts.URL) == "" {
		return types.StagedRecipe{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("no recipe source for %s", meta.Name))
	}

	log.Ctx(ctx).Debug().Str("url", opts.URL).Str("dir", dir).Msg("cloning recipe")
	repo, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		_ = os.RemoveAll(dir)
		if errors.Is(err, transport.ErrEmptyRemoteRepository) || errors.Is(err, gitPlumbing.ErrReferenceNotFound) {
			return types.StagedRecipe{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("no recipe published for %s", meta.Base())).
				WithCause(err)
		}
		return types.StagedRecipe{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to clone recipe for %s", meta.Base())).
			WithCause(err)
	}
	if err := requirePKGBUILD(dir); err != nil {
		return types.StagedRecipe{}, err
	}
	head, err := repo.Head()
	if err != nil {
		return types.StagedRecipe{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to resolve recipe commit for %s", meta.Base())).
			WithCause(err)
	}
	return types.StagedRecipe{Dir: dir, Digest: "git:" + head.Hash().String()}, nil
}

// prepareStageDir returns a fresh WorkDir/<base>. Staged trees are never
// reused across runs.
func prepareStageDir(workDir string, base string) (string, error) {
	if base == "" || strings.ContainsAny(base, `/\`) || base == "." || base == ".." {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid package base: %q", base))
	}
	if err := os.MkdirAll(workDir, 0o750); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create work directory").
			WithCause(err)
	}
	dir := filepath.Join(workDir, base)
	if err := os.RemoveAll(dir); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to clear %s", dir)).
			WithCause(err)
	}
	return dir, nil
}

func requirePKGBUILD(dir string) error {
	if _, err := os.Stat(filepath.Join(dir, "PKGBUILD")); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("staged recipe has no PKGBUILD: %s", dir)).
			WithCause(err)
	}
	return nil
}

var _ ports.RecipeStagerPort = GitRecipeStager{}
