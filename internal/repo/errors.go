// Package repo implements the repository-tree abstraction: a
// RepoFormat/RepoObjectPath path formatter and parser, local-filesystem
// and remote (HTTP, S3) tree implementations of RepoDir/RepoObject, and
// the RepoFS facade that ties a tree to the calendar to find missing
// artifacts.
package repo

import "errors"

var (
	// ErrNotFound is returned when a read is attempted against an
	// object that does not exist.
	ErrNotFound = errors.New("repo: not found")
	// ErrAlreadyExists is returned by an exclusive-create write when
	// the target already exists.
	ErrAlreadyExists = errors.New("repo: already exists")
	// ErrUnsupported is returned by operations a tree implementation
	// does not support (e.g. writing to a read-only remote tree).
	ErrUnsupported = errors.New("repo: unsupported operation")
	// ErrTransport wraps network/status failures from a remote tree.
	ErrTransport = errors.New("repo: transport error")
	// ErrBadPath is returned when a path component cannot be parsed
	// against a RepoFormat template.
	ErrBadPath = errors.New("repo: bad path")
)
