package repo

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// TestWriteAtomicity is spec scenario 5: overwrite replaces the
// content exactly, leaving no temp sibling behind.
func TestWriteAtomicity(t *testing.T) {
	root := t.TempDir()
	dir, err := NewLocalDir(filepath.Join(root, "a", "b"))
	if err != nil {
		t.Fatalf("NewLocalDir: %v", err)
	}
	obj, err := dir.NewObject("c.txt")
	if err != nil {
		t.Fatalf("NewObject: %v", err)
	}

	if err := obj.Write(bytes.NewReader([]byte("v1")), false); err != nil {
		t.Fatalf("initial write: %v", err)
	}
	if err := obj.Write(bytes.NewReader([]byte("v2")), true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(root, "a", "b", "c.txt"))
	if err != nil {
		t.Fatalf("reading result: %v", err)
	}
	if string(got) != "v2" {
		t.Fatalf("content = %q, want v2", got)
	}
	if _, err := os.Stat(filepath.Join(root, "a", "b", "c.txt.new")); !os.IsNotExist(err) {
		t.Fatalf("expected no .new sibling to remain, stat err = %v", err)
	}
}

func TestWriteExclusiveCreateConflict(t *testing.T) {
	root := t.TempDir()
	dir, err := NewLocalDir(root)
	if err != nil {
		t.Fatalf("NewLocalDir: %v", err)
	}
	obj, _ := dir.NewObject("c.txt")
	if err := obj.Write(bytes.NewReader([]byte("v1")), false); err != nil {
		t.Fatalf("initial write: %v", err)
	}
	obj2, _ := dir.NewObject("c.txt")
	err = obj2.Write(bytes.NewReader([]byte("v2")), false)
	if err == nil {
		t.Fatal("expected ErrAlreadyExists on a second exclusive-create write")
	}
}

func TestReadNotFound(t *testing.T) {
	root := t.TempDir()
	dir, _ := NewLocalDir(root)
	obj, _ := dir.NewObject("missing.txt")
	if _, err := obj.Read(4096); err == nil {
		t.Fatal("expected ErrNotFound reading a missing file")
	}
}

func TestVisitReverseSorted(t *testing.T) {
	root := t.TempDir()
	dir, err := NewLocalDir(root)
	if err != nil {
		t.Fatalf("NewLocalDir: %v", err)
	}
	for _, name := range []string{"alpha.idx", "beta.idx", "gamma.idx"} {
		obj, _ := dir.NewObject(name)
		if err := obj.Write(bytes.NewReader([]byte("x")), false); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	if err := dir.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	var visited []string
	dir.Visit(func(obj RepoObject) bool {
		visited = append(visited, obj.Name())
		return true
	})

	want := []string{"gamma.idx", "beta.idx", "alpha.idx"}
	if len(visited) != len(want) {
		t.Fatalf("visited = %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Fatalf("visited = %v, want %v", visited, want)
		}
	}
}

func TestRefreshPreservesExistingSubtreeCache(t *testing.T) {
	root := t.TempDir()
	dir, err := NewLocalDir(root)
	if err != nil {
		t.Fatalf("NewLocalDir: %v", err)
	}
	sub, err := dir.NewDir("sub")
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	obj, _ := sub.(*LocalDir).NewObject("f.idx")
	if err := obj.Write(bytes.NewReader([]byte("x")), false); err != nil {
		t.Fatalf("writing f.idx: %v", err)
	}

	beforeRefresh := sub

	if err := dir.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	afterRefresh := dir.children["sub"]

	if beforeRefresh != afterRefresh {
		t.Fatal("Refresh should not discard the cached subtree for an existing directory child")
	}
}

// TestRefreshRecursesIntoNewlyDiscoveredSubdirectories is the
// production case: a tree with prior-run artifacts already on disk,
// opened fresh by a new process (no in-process NewDir/NewObject calls
// to pre-populate the cache). Refresh/Visit must still surface every
// nested file, or IterateMissing's "have" set comes back empty and
// everything looks missing.
func TestRefreshRecursesIntoNewlyDiscoveredSubdirectories(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "D", "2020", "QTR1")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(nested, "master20200125.idx"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	dir, err := NewLocalDir(root)
	if err != nil {
		t.Fatalf("NewLocalDir: %v", err)
	}
	if err := dir.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	var visited []string
	dir.Visit(func(obj RepoObject) bool {
		visited = append(visited, obj.Name())
		return true
	})

	if len(visited) != 1 || visited[0] != "master20200125.idx" {
		t.Fatalf("visited = %v, want [master20200125.idx] discovered through the fresh-opened tree", visited)
	}
}

func TestSubpath(t *testing.T) {
	root := t.TempDir()
	rootDir, err := NewLocalDir(root)
	if err != nil {
		t.Fatalf("NewLocalDir: %v", err)
	}
	dDir, err := rootDir.NewDir("D")
	if err != nil {
		t.Fatalf("NewDir(D): %v", err)
	}
	yDir, err := dDir.NewDir("2020")
	if err != nil {
		t.Fatalf("NewDir(2020): %v", err)
	}
	qDir, err := yDir.NewDir("QTR1")
	if err != nil {
		t.Fatalf("NewDir(QTR1): %v", err)
	}
	obj, err := qDir.NewObject("master20200125.idx")
	if err != nil {
		t.Fatalf("NewObject: %v", err)
	}

	got := obj.Subpath(4)
	want := []string{"D", "2020", "QTR1", "master20200125.idx"}
	if len(got) != len(want) {
		t.Fatalf("Subpath = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Subpath = %v, want %v", got, want)
		}
	}
}
