package dataset

import "github.com/absmach/supermq/pkg/errors"

var (
	// ErrNoDatasetAvailable is returned when there is no local dataset and none could be fetched.
	ErrNoDatasetAvailable = errors.New("no dataset available")
	ErrMissingCredential  = errors.New("missing dataset registry credential")
	ErrMissingWorkspace   = errors.New("missing dataset workspace")
	ErrMissingProject     = errors.New("missing dataset project")
	ErrInvalidVersion     = errors.New("dataset version must be positive")
	ErrMissingDescriptor  = errors.New("dataset descriptor not found")
)
