package dataset_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/absmach/detlab/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadDescriptor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		content  string
		expected dataset.Descriptor
	}{
		{
			name: "list names",
			content: `train: ../train/images
val: ../valid/images
test: ../test/images
nc: 3
names: ['apple', 'banana', 'carrot']
`,
			expected: dataset.Descriptor{
				Train: "../train/images",
				Val:   "../valid/images",
				Test:  "../test/images",
				NC:    3,
				Names: dataset.Names{"apple", "banana", "carrot"},
			},
		},
		{
			name: "indexed names without nc",
			content: `path: /data/fruit
train: images/train
val: images/val
names:
  1: banana
  0: apple
`,
			expected: dataset.Descriptor{
				Path:  "/data/fruit",
				Train: "images/train",
				Val:   "images/val",
				NC:    2,
				Names: dataset.Names{"apple", "banana"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, dataset.DescriptorFile), []byte(tt.content), 0o644))

			d, err := dataset.ReadDescriptor(dataset.Location(dir))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestReadDescriptorMissing(t *testing.T) {
	t.Parallel()

	_, err := dataset.ReadDescriptor(dataset.Location(t.TempDir()))
	assert.ErrorIs(t, err, dataset.ErrMissingDescriptor)
}

func TestReadDescriptorInvalidNames(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, dataset.DescriptorFile), []byte("names: apple\n"), 0o644))

	_, err := dataset.ReadDescriptor(dataset.Location(dir))
	assert.Error(t, err)
}

func TestRefValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ref.Validate())
	assert.Equal(t, "yolo-jpkho/combined-vegetables-fruits/1", ref.String())

	missing := ref
	missing.Workspace = ""
	assert.Equal(t, dataset.ErrMissingWorkspace, missing.Validate())

	badVersion := ref
	badVersion.Version = 0
	assert.Equal(t, dataset.ErrInvalidVersion, badVersion.Validate())
}
