package oci

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/absmach/detlab/dataset"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/memory"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
)

const (
	artifactType = "application/vnd.detlab.dataset.v1"
	layerType    = "application/vnd.detlab.dataset.file.v1"
)

var ref = dataset.Ref{Workspace: "yolo-jpkho", Project: "fruits", Version: 3, Format: "yolov8"}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// pushArtifact stores files as titled layers of one artifact tagged for ref.
func pushArtifact(t *testing.T, files map[string]string) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	layers := make([]ocispec.Descriptor, 0, len(files))
	for name, data := range files {
		desc := content.NewDescriptorFromBytes(layerType, []byte(data))
		desc.Annotations = map[string]string{ocispec.AnnotationTitle: name}
		require.NoError(t, store.Push(ctx, desc, bytes.NewReader([]byte(data))))
		layers = append(layers, desc)
	}

	manifest, err := oras.PackManifest(ctx, store, oras.PackManifestVersion1_1, artifactType, oras.PackManifestOptions{
		Layers: layers,
	})
	require.NoError(t, err)
	require.NoError(t, store.Tag(ctx, manifest, Tag(ref)))

	return store
}

func newTestClient(workDir string, src oras.ReadOnlyTarget) *client {
	return &client{
		cfg:    Config{RegistryURL: "localhost:5000", WorkDir: workDir},
		logger: discard(),
		source: func(dataset.Ref, string) (oras.ReadOnlyTarget, error) {
			return src, nil
		},
	}
}

func TestFetchPullsTitledLayers(t *testing.T) {
	t.Parallel()
	src := pushArtifact(t, map[string]string{
		"data.yaml":  "train: train/images\nval: valid/images\nnames: [apple, banana]\n",
		"README.txt": "exported",
	})
	workDir := t.TempDir()

	loc, err := newTestClient(workDir, src).Fetch(context.Background(), "token", ref)
	require.NoError(t, err)
	assert.Equal(t, dataset.Location(filepath.Join(workDir, "fruits-3")), loc)

	d, err := dataset.ReadDescriptor(loc)
	require.NoError(t, err)
	assert.Equal(t, dataset.Names{"apple", "banana"}, d.Names)

	readme, err := os.ReadFile(filepath.Join(string(loc), "README.txt"))
	require.NoError(t, err)
	assert.Equal(t, "exported", string(readme))
}

func TestFetchArtifactWithoutDescriptor(t *testing.T) {
	t.Parallel()
	src := pushArtifact(t, map[string]string{"README.txt": "exported"})
	workDir := t.TempDir()

	_, err := newTestClient(workDir, src).Fetch(context.Background(), "token", ref)
	assert.Equal(t, dataset.ErrMissingDescriptor, err)

	_, statErr := os.Stat(filepath.Join(workDir, "fruits-3"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetchMissingTag(t *testing.T) {
	t.Parallel()
	workDir := t.TempDir()

	_, err := newTestClient(workDir, memory.New()).Fetch(context.Background(), "token", ref)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "localhost:5000/yolo-jpkho/fruits:v3-yolov8")

	_, statErr := os.Stat(filepath.Join(workDir, "fruits-3"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetchSourceError(t *testing.T) {
	t.Parallel()
	errUnreachable := errors.New("registry unreachable")
	c := newTestClient(t.TempDir(), nil)
	c.source = func(dataset.Ref, string) (oras.ReadOnlyTarget, error) {
		return nil, errUnreachable
	}

	_, err := c.Fetch(context.Background(), "token", ref)
	assert.ErrorIs(t, err, errUnreachable)
}

func TestCredential(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		cfg      Config
		token    string
		expected auth.Credential
		ok       bool
	}{
		{
			name:     "username and password",
			cfg:      Config{Username: "ci", Password: "secret"},
			token:    "token",
			expected: auth.Credential{Username: "ci", Password: "secret"},
			ok:       true,
		},
		{
			name:     "token",
			token:    "token",
			expected: auth.Credential{AccessToken: "token"},
			ok:       true,
		},
		{
			name:     "token with username",
			cfg:      Config{Username: "ci"},
			token:    "token",
			expected: auth.Credential{Username: "ci", AccessToken: "token"},
			ok:       true,
		},
		{
			name: "password without username",
			cfg:  Config{Password: "secret"},
		},
		{
			name: "anonymous",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := &client{cfg: tt.cfg, logger: discard()}

			cred, ok := c.credential(tt.token)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, cred)
		})
	}
}

func TestRepositoryAuthentication(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		cfg    Config
		token  string
		authed bool
	}{
		{name: "with token", cfg: Config{RegistryURL: "localhost:5000", PlainHTTP: true}, token: "token", authed: true},
		{name: "anonymous", cfg: Config{RegistryURL: "localhost:5000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := &client{cfg: tt.cfg, logger: discard()}

			target, err := c.repository(ref, tt.token)
			require.NoError(t, err)
			repo, ok := target.(*remote.Repository)
			require.True(t, ok)
			assert.Equal(t, tt.cfg.PlainHTTP, repo.PlainHTTP)
			assert.Equal(t, "localhost:5000/yolo-jpkho/fruits", repo.Reference.Registry+"/"+repo.Reference.Repository)

			_, isAuth := repo.Client.(*auth.Client)
			assert.Equal(t, tt.authed, isAuth)
		})
	}
}
