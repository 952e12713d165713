package artifact

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrEmptyArtifact is returned when publishing a missing or empty directory.
	ErrEmptyArtifact = errors.New("artifact is empty")
	// ErrArtifactExists is returned when an artifact name is published twice.
	ErrArtifactExists = errors.New("artifact already exists")
	// ErrArtifactNotFound is returned when restoring an unknown artifact.
	ErrArtifactNotFound = errors.New("artifact not found")
	// ErrInvalidName is returned for names that are not a single path element.
	ErrInvalidName = errors.New("invalid artifact name")
)

// Store persists named artifacts for the lifetime of a run.
type Store interface {
	// Put archives the contents of dir under name. It fails if the name was
	// already published or dir holds no files.
	Put(ctx context.Context, name, dir string) (Info, error)
	// Get extracts the named artifact into dest, creating it if needed.
	Get(ctx context.Context, name, dest string) error
	// Has reports whether the named artifact was published.
	Has(name string) bool
	// Names lists published artifacts in name order.
	Names() []string
}

// Info describes a published artifact.
type Info struct {
	Name  string
	Path  string
	Files int
	Size  int64
}
