package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nholding/edgar-mirror/internal/calendar"
)

// RepoFS is the facade tying one RepoDir tree to a RepoFormat: lookup,
// creation, and calendar-aware gap enumeration all live here, and the
// same code runs whether root is a LocalDir sink, or an HTTPDir/S3Dir
// source.
type RepoFS struct {
	root   RepoDir
	format *RepoFormat
}

// NewRepoFS builds a facade over root using format to translate
// (period, date) to paths.
func NewRepoFS(root RepoDir, format *RepoFormat) *RepoFS {
	return &RepoFS{root: root, format: format}
}

// walkDirs descends into root through each named directory component,
// creating them as needed when create is true. When create is false
// and root is a LocalDir, a missing intermediate directory short
// circuits with ErrNotFound instead of being created as a side effect.
func (fs *RepoFS) walkDirs(dirs []string, create bool) (RepoDir, error) {
	cur := fs.root
	for _, name := range dirs {
		if !create {
			if ld, ok := cur.(*LocalDir); ok {
				if _, err := os.Stat(filepath.Join(ld.path, name)); err != nil {
					return nil, fmt.Errorf("repo: %w", ErrNotFound)
				}
			}
		}
		next, err := cur.NewDir(name)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// Find resolves (pt, d) via the formatter and returns the object if it
// currently exists in this tree, or (nil, nil) if not.
func (fs *RepoFS) Find(pt calendar.PeriodType, d calendar.Date) (RepoObject, error) {
	dirs, leaf, err := fs.format.Format(pt, d)
	if err != nil {
		return nil, err
	}
	dir, err := fs.walkDirs(dirs, false)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	obj, err := dir.NewObject(leaf)
	if err != nil {
		return nil, err
	}
	if !obj.Exists() {
		return nil, nil
	}
	return obj, nil
}

// Create resolves (pt, d) via the formatter, ensures every intermediate
// directory exists, and returns a not-yet-written object handle at the
// canonical path.
func (fs *RepoFS) Create(pt calendar.PeriodType, d calendar.Date) (RepoObject, error) {
	dirs, leaf, err := fs.format.Format(pt, d)
	if err != nil {
		return nil, err
	}
	dir, err := fs.walkDirs(dirs, true)
	if err != nil {
		return nil, err
	}
	return dir.NewObject(leaf)
}

// NewObjectAt returns the object named leaf within the directory
// identified by the slash-joined dirURI, creating intermediate
// directories as needed.
func (fs *RepoFS) NewObjectAt(dirURI, leaf string) (RepoObject, error) {
	dirURI = strings.Trim(dirURI, "/")
	var dirs []string
	if dirURI != "" {
		dirs = strings.Split(dirURI, "/")
	}
	dir, err := fs.walkDirs(dirs, true)
	if err != nil {
		return nil, err
	}
	return dir.NewObject(leaf)
}

// GetObject performs an exact path lookup (no date semantics): it
// returns the object at uri if it currently exists, or (nil, nil)
// otherwise.
func (fs *RepoFS) GetObject(uri string) (RepoObject, error) {
	uri = strings.Trim(uri, "/")
	if uri == "" {
		return nil, fmt.Errorf("repo: %w: empty uri", ErrBadPath)
	}
	parts := strings.Split(uri, "/")
	dirs, leaf := parts[:len(parts)-1], parts[len(parts)-1]

	dir, err := fs.walkDirs(dirs, false)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	obj, err := dir.NewObject(leaf)
	if err != nil {
		return nil, err
	}
	if !obj.Exists() {
		return nil, nil
	}
	return obj, nil
}

// Refresh rebuilds the tree's index from the underlying store.
func (fs *RepoFS) Refresh() error {
	return fs.root.Refresh()
}

// IterateMissing is the core gap detector: it walks every calendar day
// in [from, to], skipping weekends and holidays, and returns the
// ordered sequence of paths that should exist per the calendar but do
// not currently exist in this tree. A newly encountered quarter with
// any missing day also emits its quarterly master path, once.
func (fs *RepoFS) IterateMissing(from, to calendar.Date) ([]*RepoObjectPath, error) {
	if err := fs.root.Refresh(); err != nil {
		return nil, err
	}

	have := map[string]bool{}
	fs.root.Visit(func(obj RepoObject) bool {
		p := NewRepoObjectPathFromObject(fs.format, obj)
		have[p.String()] = true
		return true
	})

	var missing []*RepoObjectPath
	cursor := from
	trackYear := 0
	trackQuarter := 0

	iterations := to.DiffDays(from)
	for i := 0; i < iterations; i++ {
		if cursor.Year() != trackYear {
			trackYear = cursor.Year()
			trackQuarter = 0
		}
		holidays := calendar.HolidaysFor(cursor.Year())

		if !cursor.IsWeekend() && !holidays.Contains(cursor) {
			dailyPath, err := NewRepoObjectPathFromDate(fs.format, calendar.Day, cursor)
			if err != nil {
				return nil, err
			}
			if !have[dailyPath.String()] {
				if cursor.Quarter() != trackQuarter {
					quarterPath, err := NewRepoObjectPathFromDate(fs.format, calendar.Quarter, cursor)
					if err != nil {
						return nil, err
					}
					missing = append(missing, quarterPath)
					trackQuarter = cursor.Quarter()
				}
				missing = append(missing, dailyPath)
			}
		}

		cursor = cursor.AddDays(1)
	}

	return missing, nil
}
