package ports

import (
	"context"

	"raur/internal/types"
)

// InstalledPort answers questions about the local package database.
type InstalledPort interface {
	// Query returns the installed version of name, or installed=false.
	Query(ctx context.Context, name types.PackageName) (version string, installed bool, err error)
	// ListForeign lists installed packages not provided by any sync
	// repository.
	ListForeign(ctx context.Context) ([]types.InstalledPackage, error)
	// Satisfied reports whether an installed package or one of its
	// versioned provides meets dep.
	Satisfied(ctx context.Context, dep types.Dependency) (bool, error)
}

// RepoPort resolves names against the binary sync repositories.
type RepoPort interface {
	// Provider returns the sync package that satisfies dep, matching
	// versioned provides as well as package versions.
	Provider(ctx context.Context, dep types.Dependency) (types.InstalledPackage, bool, error)
}
