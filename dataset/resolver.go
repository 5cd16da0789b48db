package dataset

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/absmach/supermq/pkg/errors"
)

// Resolver finds a usable dataset: a local one first, otherwise one fetched from a registry.
type Resolver struct {
	registry Registry
	logger   *slog.Logger
}

func NewResolver(registry Registry, logger *slog.Logger) *Resolver {
	return &Resolver{
		registry: registry,
		logger:   logger,
	}
}

// Resolve returns workDir/dataset when it holds a descriptor, without touching the network.
// Otherwise it fetches ref with credential. Every failure wraps ErrNoDatasetAvailable.
func (r *Resolver) Resolve(ctx context.Context, workDir, credential string, ref Ref) (Location, error) {
	local := Location(filepath.Join(workDir, LocalDir))
	if _, err := os.Stat(local.Descriptor()); err == nil {
		r.logger.Info("Found local dataset", slog.String("location", local.String()))

		return local, nil
	}

	r.logger.Info("Local dataset not found, fetching from registry", slog.String("dataset", ref.String()))

	if credential == "" || credential == PlaceholderCredential {
		return "", errors.Wrap(ErrNoDatasetAvailable, ErrMissingCredential)
	}

	if ref.Format == "" {
		ref.Format = DefaultFormat
	}

	loc, err := r.registry.Fetch(ctx, credential, ref)
	if err != nil {
		return "", errors.Wrap(ErrNoDatasetAvailable, err)
	}

	r.logger.Info("Dataset downloaded", slog.String("location", loc.String()))

	return loc, nil
}
