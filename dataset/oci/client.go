// Package oci pulls dataset versions published as OCI artifacts.
package oci

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/absmach/detlab/dataset"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/file"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/retry"
)

const dirPerm = 0o755

var _ dataset.Registry = (*client)(nil)

type Config struct {
	RegistryURL string `env:"URL"        envDefault:"localhost:5000"`
	Username    string `env:"USERNAME"   envDefault:""`
	Password    string `env:"PASSWORD"   envDefault:""`
	PlainHTTP   bool   `env:"PLAIN_HTTP" envDefault:"false"`
	WorkDir     string `env:"-"`
}

type client struct {
	cfg    Config
	logger *slog.Logger
	source func(ref dataset.Ref, credential string) (oras.ReadOnlyTarget, error)
}

func New(cfg Config, logger *slog.Logger) dataset.Registry {
	c := &client{
		cfg:    cfg,
		logger: logger,
	}
	c.source = c.repository

	return c
}

// Reference maps a dataset ref to <registry>/<workspace>/<project>:v<version>-<format>.
func Reference(registryURL string, ref dataset.Ref) string {
	return fmt.Sprintf("%s/%s/%s:%s", registryURL, ref.Workspace, ref.Project, Tag(ref))
}

func Tag(ref dataset.Ref) string {
	if ref.Format == "" {
		return fmt.Sprintf("v%d", ref.Version)
	}

	return fmt.Sprintf("v%d-%s", ref.Version, ref.Format)
}

// Fetch copies every titled layer of the artifact into <workdir>/<project>-<version>.
// A directory created by a failed fetch is removed.
func (c *client) Fetch(ctx context.Context, credential string, ref dataset.Ref) (loc dataset.Location, err error) {
	if err := ref.Validate(); err != nil {
		return "", err
	}

	src, err := c.source(ref, credential)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(c.cfg.WorkDir, fmt.Sprintf("%s-%d", ref.Project, ref.Version))
	_, statErr := os.Stat(dest)
	if err := os.MkdirAll(dest, dirPerm); err != nil {
		return "", fmt.Errorf("error creating dataset directory: %w", err)
	}
	if os.IsNotExist(statErr) {
		defer func() {
			if err != nil {
				os.RemoveAll(dest)
			}
		}()
	}

	store, err := file.New(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create file store for %s: %w", dest, err)
	}
	defer store.Close()

	opts := oras.DefaultCopyOptions
	opts.PreCopy = func(_ context.Context, desc ocispec.Descriptor) error {
		if title := desc.Annotations[ocispec.AnnotationTitle]; title != "" {
			c.logger.Debug("Pulling dataset layer", slog.String("file", title), slog.Int64("size_bytes", desc.Size))
		}

		return nil
	}

	tag := Tag(ref)
	manifest, err := oras.Copy(ctx, src, tag, store, tag, opts)
	if err != nil {
		return "", fmt.Errorf("failed to pull %s: %w", Reference(c.cfg.RegistryURL, ref), err)
	}

	c.logger.Info("Dataset artifact pulled",
		slog.String("reference", Reference(c.cfg.RegistryURL, ref)),
		slog.String("digest", manifest.Digest.String()),
		slog.Int64("manifest_size", manifest.Size))

	loc = dataset.Location(dest)
	if _, err := os.Stat(loc.Descriptor()); err != nil {
		return "", dataset.ErrMissingDescriptor
	}

	return loc, nil
}

func (c *client) repository(ref dataset.Ref, credential string) (oras.ReadOnlyTarget, error) {
	repoPath := fmt.Sprintf("%s/%s/%s", c.cfg.RegistryURL, ref.Workspace, ref.Project)
	repo, err := remote.NewRepository(repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository for %s: %w", repoPath, err)
	}
	repo.PlainHTTP = c.cfg.PlainHTTP

	if cred, ok := c.credential(credential); ok {
		repo.Client = &auth.Client{
			Client:     retry.DefaultClient,
			Cache:      auth.NewCache(),
			Credential: auth.StaticCredential(repo.Reference.Registry, cred),
		}
	}

	return repo, nil
}

// credential prefers the configured username and password, then falls back to token as a
// registry access token.
func (c *client) credential(token string) (auth.Credential, bool) {
	switch {
	case c.cfg.Username != "" && c.cfg.Password != "":
		return auth.Credential{
			Username: c.cfg.Username,
			Password: c.cfg.Password,
		}, true
	case token != "":
		return auth.Credential{
			Username:    c.cfg.Username,
			AccessToken: token,
		}, true
	default:
		return auth.EmptyCredential, false
	}
}
