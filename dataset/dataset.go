package dataset

import (
	"context"
	"fmt"
	"path/filepath"
)

const (
	// LocalDir is the directory, relative to the working directory, checked for an existing dataset.
	LocalDir = "dataset"
	// DescriptorFile enumerates class names and split locations of a dataset.
	DescriptorFile = "data.yaml"
	// PlaceholderCredential is the unfilled credential value shipped in sample configs.
	PlaceholderCredential = "YOUR_API_KEY_HERE"
	DefaultFormat         = "yolov8"
)

// Location is a directory containing a dataset descriptor.
type Location string

func (l Location) Descriptor() string {
	return filepath.Join(string(l), DescriptorFile)
}

func (l Location) String() string {
	return string(l)
}

// Ref identifies a dataset version in a remote registry.
type Ref struct {
	Workspace string `json:"workspace" toml:"workspace"`
	Project   string `json:"project"   toml:"project"`
	Version   int    `json:"version"   toml:"version"`
	Format    string `json:"format"    toml:"format"`
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%s/%d", r.Workspace, r.Project, r.Version)
}

func (r Ref) Validate() error {
	switch {
	case r.Workspace == "":
		return ErrMissingWorkspace
	case r.Project == "":
		return ErrMissingProject
	case r.Version < 1:
		return ErrInvalidVersion
	}

	return nil
}

// Registry downloads a dataset version and returns the directory it was written to.
type Registry interface {
	Fetch(ctx context.Context, credential string, ref Ref) (Location, error)
}
