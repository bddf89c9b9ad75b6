package ports

import (
	"context"

	"raur/internal/types"
)

// MetadataPort looks packages up by exact name. A name missing from the
// returned map was not found; a non-nil error means the service could not
// be reached or answered with something that failed validation.
type MetadataPort interface {
	Lookup(ctx context.Context, names []types.PackageName) (map[types.PackageName]types.PackageMetadata, error)
}

// SearchPort performs a fuzzy search against the metadata service.
type SearchPort interface {
	Search(ctx context.Context, term string) ([]types.PackageMetadata, error)
}
