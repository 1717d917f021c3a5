package repo

import (
	"io"
	"time"
)

// RepoEntity is the capability shared by every node in a repository
// tree: it can report whether it exists and render itself as a URI,
// and it can be asked for the last n name components walking toward
// the root.
type RepoEntity interface {
	Exists() bool
	AsURI() string
	Subpath(n int) []string
}

// RepoObject is a leaf artifact: a single stream of bytes identified by
// a name within exactly one parent RepoDir.
type RepoObject interface {
	RepoEntity
	Name() string

	// Read opens a streaming reader over the object's bytes. Readers
	// must Close the result. The local tree fails with ErrNotFound if
	// the object does not exist; the HTTP tree instead returns an empty
	// stream and no error for a non-200 response.
	Read(bufsize int) (io.ReadCloser, error)

	// Write consumes r and stores it as the object's new contents.
	// overwrite=false requires the object not already exist
	// (ErrAlreadyExists otherwise); overwrite=true replaces the
	// contents atomically. Trees that cannot be written to (e.g. a
	// remote HTTP/S3 tree) fail with ErrUnsupported.
	Write(r io.Reader, overwrite bool) error
}

// RepoDirVisitor is invoked once per object encountered by Visit.
// Returning false aborts the walk early.
type RepoDirVisitor func(obj RepoObject) bool

// RepoDir is a directory node: an ordered mapping from child name to
// child RepoEntity, populated lazily via Refresh or explicitly via
// NewDir/NewObject.
type RepoDir interface {
	RepoEntity
	Name() string

	// NewObject returns the (possibly not-yet-written) object named
	// name within this directory.
	NewObject(name string) (RepoObject, error)

	// NewDir returns the (possibly not-yet-existing) subdirectory
	// named name within this directory, creating it as needed.
	NewDir(name string) (RepoDir, error)

	// Refresh reconciles the in-memory child cache with the
	// underlying store without discarding existing subtree caches.
	Refresh() error

	// Visit performs a depth-first, name-descending walk over every
	// object reachable from this directory.
	Visit(visitor RepoDirVisitor) bool

	// LastModified returns the modification time and path of the most
	// recently modified immediate child.
	LastModified() (time.Time, string, error)
}
