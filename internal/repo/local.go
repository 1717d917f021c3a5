package repo

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// LocalDir is a RepoDir backed by a real filesystem directory. It is
// always resolved to an absolute path and created lazily on
// construction if missing. Its child map is a cache of on-disk state;
// Refresh reconciles the cache with disk without discarding existing
// subtree caches.
type LocalDir struct {
	path     string
	name     string
	parent   *LocalDir
	children map[string]RepoEntity
}

// NewLocalDir opens (creating if necessary) a LocalDir rooted at path.
func NewLocalDir(path string) (*LocalDir, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("repo: resolving local dir path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("repo: creating local dir %s: %w", abs, err)
	}
	return &LocalDir{path: abs, name: filepath.Base(abs), children: map[string]RepoEntity{}}, nil
}

func (d *LocalDir) nodeName() string   { return d.name }
func (d *LocalDir) nodeParent() parentNode {
	if d.parent == nil {
		return nil
	}
	return d.parent
}

func (d *LocalDir) Exists() bool {
	info, err := os.Stat(d.path)
	return err == nil && info.IsDir()
}

func (d *LocalDir) AsURI() string { return "file://" + d.path }

func (d *LocalDir) Subpath(n int) []string { return subpathOf(d, n) }

func (d *LocalDir) Name() string { return d.name }

// NewObject returns the object named name within d, creating the cache
// entry if it is not already known.
func (d *LocalDir) NewObject(name string) (RepoObject, error) {
	if existing, ok := d.children[name]; ok {
		if obj, ok := existing.(RepoObject); ok {
			return obj, nil
		}
		return nil, fmt.Errorf("repo: %s is a directory, not an object", name)
	}
	obj := &LocalObject{path: filepath.Join(d.path, name), name: name, parent: d}
	d.children[name] = obj
	return obj, nil
}

// NewDir returns the subdirectory named name within d, creating it on
// disk and caching the entry if it is not already known.
func (d *LocalDir) NewDir(name string) (RepoDir, error) {
	if existing, ok := d.children[name]; ok {
		if sub, ok := existing.(RepoDir); ok {
			return sub, nil
		}
		return nil, fmt.Errorf("repo: %s is an object, not a directory", name)
	}
	sub, err := NewLocalDir(filepath.Join(d.path, name))
	if err != nil {
		return nil, err
	}
	sub.parent = d
	sub.name = name
	d.children[name] = sub
	return sub, nil
}

// Refresh reconciles d's child cache with the directory on disk:
// previously unseen entries are added (as a LocalDir or LocalObject
// depending on kind); existing directory children are refreshed
// recursively; existing object children are left alone.
func (d *LocalDir) Refresh() error {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return fmt.Errorf("repo: refreshing %s: %w", d.path, err)
	}

	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		seen[entry.Name()] = true
		existing, ok := d.children[entry.Name()]
		if !ok {
			if entry.IsDir() {
				sub, err := NewLocalDir(filepath.Join(d.path, entry.Name()))
				if err != nil {
					return err
				}
				sub.parent = d
				sub.name = entry.Name()
				d.children[entry.Name()] = sub
				if err := sub.Refresh(); err != nil {
					return err
				}
			} else {
				d.children[entry.Name()] = &LocalObject{
					path:   filepath.Join(d.path, entry.Name()),
					name:   entry.Name(),
					parent: d,
				}
			}
			continue
		}
		if sub, ok := existing.(*LocalDir); ok {
			if err := sub.Refresh(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Visit performs a depth-first, name-descending walk over every object
// currently cached under d, invoking visitor for each. Returning false
// from visitor aborts the walk.
func (d *LocalDir) Visit(visitor RepoDirVisitor) bool {
	names := make([]string, 0, len(d.children))
	for name := range d.children {
		names = append(names, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	for _, name := range names {
		switch child := d.children[name].(type) {
		case RepoObject:
			if !visitor(child) {
				return false
			}
		case RepoDir:
			if !child.Visit(visitor) {
				return false
			}
		}
	}
	return true
}

// LastModified returns the modification time and path of the most
// recently modified immediate child. Callers must not invoke this on
// an empty directory.
func (d *LocalDir) LastModified() (time.Time, string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("repo: reading %s: %w", d.path, err)
	}
	var (
		best     time.Time
		bestPath string
		found    bool
	)
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !found || info.ModTime().After(best) {
			best = info.ModTime()
			bestPath = filepath.Join(d.path, entry.Name())
			found = true
		}
	}
	if !found {
		return time.Time{}, "", fmt.Errorf("repo: LastModified called on empty directory %s", d.path)
	}
	return best, bestPath, nil
}

// LocalObject is a RepoObject backed by a real file on disk.
type LocalObject struct {
	path   string
	name   string
	parent *LocalDir
}

func (o *LocalObject) nodeName() string     { return o.name }
func (o *LocalObject) nodeParent() parentNode { return o.parent }

func (o *LocalObject) Exists() bool {
	info, err := os.Stat(o.path)
	return err == nil && !info.IsDir()
}

func (o *LocalObject) AsURI() string { return "file://" + o.path }

func (o *LocalObject) Subpath(n int) []string { return subpathOf(o, n) }

func (o *LocalObject) Name() string { return o.name }

// Read opens a streaming reader over the object's contents.
func (o *LocalObject) Read(bufsize int) (io.ReadCloser, error) {
	f, err := os.Open(o.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("repo: %w: %s", ErrNotFound, o.path)
		}
		return nil, fmt.Errorf("repo: opening %s: %w", o.path, err)
	}
	return f, nil
}

// Write consumes r and stores it as o's contents. overwrite=false uses
// exclusive-create (fails with ErrAlreadyExists if already present);
// overwrite=true writes to a ".new" sibling under exclusive-create and
// renames it atomically over the target on success.
func (o *LocalObject) Write(r io.Reader, overwrite bool) error {
	if !overwrite {
		return o.writeExclusive(o.path, r)
	}

	tmp := o.path + ".new"
	if err := o.writeExclusive(tmp, r); err != nil {
		return err
	}
	if err := os.Rename(tmp, o.path); err != nil {
		return fmt.Errorf("repo: renaming %s to %s: %w", tmp, o.path, err)
	}
	return nil
}

func (o *LocalObject) writeExclusive(target string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("repo: creating parent directory for %s: %w", target, err)
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("repo: %w: %s", ErrAlreadyExists, target)
		}
		return fmt.Errorf("repo: creating %s: %w", target, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("repo: writing %s: %w", target, err)
	}
	return nil
}

// parentNode and subpathOf implement RepoEntity.Subpath once for both
// LocalDir and LocalObject: the parent owns the child's lifetime and
// the child holds only a non-owning back reference, so walking toward
// the root never forms an ownership cycle.
type parentNode interface {
	nodeName() string
	nodeParent() parentNode
}

func subpathOf(n parentNode, count int) []string {
	names := make([]string, 0, count)
	for cur := n; cur != nil && len(names) < count; cur = cur.nodeParent() {
		names = append(names, cur.nodeName())
	}
	// names is leaf-to-root; reverse to root-to-leaf order.
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return names
}
