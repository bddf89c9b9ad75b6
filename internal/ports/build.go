package ports

import (
	"context"

	"raur/internal/types"
)

// RecipeStagerPort produces a local working directory holding the recipe
// together with a digest of the staged source.
type RecipeStagerPort interface {
	Stage(ctx context.Context, meta types.PackageMetadata) (types.StagedRecipe, error)
}

type BuildRequest struct {
	Name types.PackageName
	Dir  string
}

// BuildStepPort runs the unprivileged build and returns artifact paths.
type BuildStepPort interface {
	Build(ctx context.Context, req BuildRequest) ([]string, error)
}

type InstallRequest struct {
	// Artifacts are built package files; Packages are sync repository
	// targets. Exactly one of the two is set.
	Artifacts []string
	Packages  []types.PackageName
	AsDeps    bool
}

// InstallStepPort is the only component allowed to request elevation.
type InstallStepPort interface {
	Preflight() error
	Install(ctx context.Context, req InstallRequest) error
	Remove(ctx context.Context, names []types.PackageName) error
}
