package repo

import (
	"bytes"
	"testing"

	"github.com/nholding/edgar-mirror/internal/calendar"
)

func newSinkFS(t *testing.T) *RepoFS {
	t.Helper()
	root, err := NewLocalDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalDir: %v", err)
	}
	return NewRepoFS(root, defaultFormat())
}

// TestIterateMissingWeek covers a full non-holiday week: every weekday
// is missing, the enclosing quarter is emitted exactly once (P5 and
// the "quarter emitted at most once" boundary case).
func TestIterateMissingWeek(t *testing.T) {
	fs := newSinkFS(t)
	from, _ := calendar.ParseDate("2021-07-12") // Monday
	to, _ := calendar.ParseDate("2021-07-16")   // Friday

	missing, err := fs.IterateMissing(from, to)
	if err != nil {
		t.Fatalf("IterateMissing: %v", err)
	}

	if len(missing) != 6 {
		t.Fatalf("got %d paths, want 6 (1 quarter + 5 days): %v", len(missing), pathStrings(missing))
	}

	pt0, err := missing[0].PeriodType()
	if err != nil || pt0 != calendar.Quarter {
		t.Fatalf("first path should be the QUARTER master, got %v (%v)", missing[0], err)
	}

	quarterSeen := 0
	for _, p := range missing {
		pt, err := p.PeriodType()
		if err != nil {
			t.Fatalf("PeriodType: %v", err)
		}
		if pt == calendar.Quarter {
			quarterSeen++
			continue
		}
		d, err := p.Date()
		if err != nil {
			t.Fatalf("Date: %v", err)
		}
		if d.IsWeekend() {
			t.Errorf("weekend day %s should never produce a DAY path", d)
		}
	}
	if quarterSeen != 1 {
		t.Errorf("quarter path emitted %d times, want exactly 1", quarterSeen)
	}
}

func TestIterateMissingSkipsExistingArtifacts(t *testing.T) {
	fs := newSinkFS(t)
	from, _ := calendar.ParseDate("2021-07-12")
	to, _ := calendar.ParseDate("2021-07-16")
	wed, _ := calendar.ParseDate("2021-07-14")

	obj, err := fs.Create(calendar.Day, wed)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := obj.Write(bytes.NewReader([]byte("x")), false); err != nil {
		t.Fatalf("Write: %v", err)
	}

	missing, err := fs.IterateMissing(from, to)
	if err != nil {
		t.Fatalf("IterateMissing: %v", err)
	}
	for _, p := range missing {
		pt, _ := p.PeriodType()
		if pt != calendar.Day {
			continue
		}
		d, err := p.Date()
		if err != nil {
			t.Fatalf("Date: %v", err)
		}
		if d.Equal(wed) {
			t.Fatalf("pre-existing artifact for %s should not be reported missing", wed)
		}
	}
}

func pathStrings(paths []*RepoObjectPath) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p.String()
	}
	return out
}

func TestFindReturnsNilWhenAbsent(t *testing.T) {
	fs := newSinkFS(t)
	d, _ := calendar.ParseDate("2021-07-12")
	obj, err := fs.Find(calendar.Day, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obj != nil {
		t.Fatal("expected nil object for an artifact that was never created")
	}
}

func TestCreateThenFind(t *testing.T) {
	fs := newSinkFS(t)
	d, _ := calendar.ParseDate("2021-07-12")

	obj, err := fs.Create(calendar.Day, d)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := obj.Write(bytes.NewReader([]byte("payload")), false); err != nil {
		t.Fatalf("Write: %v", err)
	}

	found, err := fs.Find(calendar.Day, d)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if found == nil {
		t.Fatal("expected to find the created artifact")
	}
}
