package sync

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nholding/edgar-mirror/internal/calendar"
	"github.com/nholding/edgar-mirror/internal/repo"
)

func testFormat() *repo.RepoFormat {
	return &repo.RepoFormat{
		NameSpec: map[calendar.PeriodType]string{
			calendar.Day:     "master{y}{m:02}{d:02}.idx",
			calendar.Quarter: "master.idx",
		},
		PathSpec: []string{"{t}", "{y}", "QTR{q}"},
	}
}

// fakeObject is an in-memory repo.RepoObject for the source and sink
// sides of a test pipe.
type fakeObject struct {
	name    string
	content []byte
	exists  bool
}

func (f *fakeObject) Exists() bool       { return f.exists }
func (f *fakeObject) AsURI() string      { return f.name }
func (f *fakeObject) Subpath(n int) []string {
	return []string{f.name}
}
func (f *fakeObject) Name() string { return f.name }

func (f *fakeObject) Read(bufsize int) (io.ReadCloser, error) {
	if !f.exists {
		return nil, errors.Join(repo.ErrNotFound, errors.New(f.name))
	}
	return io.NopCloser(bytes.NewReader(f.content)), nil
}

func (f *fakeObject) Write(r io.Reader, overwrite bool) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.content = data
	f.exists = true
	return nil
}

type fakeSource struct {
	objects map[string]*fakeObject
}

func key(pt calendar.PeriodType, d calendar.Date) string {
	return pt.String() + ":" + d.String()
}

func (s *fakeSource) put(pt calendar.PeriodType, d calendar.Date, content string) {
	if s.objects == nil {
		s.objects = map[string]*fakeObject{}
	}
	s.objects[key(pt, d)] = &fakeObject{name: key(pt, d), content: []byte(content), exists: true}
}

func (s *fakeSource) Find(pt calendar.PeriodType, d calendar.Date) (repo.RepoObject, error) {
	obj, ok := s.objects[key(pt, d)]
	if !ok {
		return nil, nil
	}
	return obj, nil
}

type fakeSink struct {
	format  *repo.RepoFormat
	missing []*repo.RepoObjectPath
	created map[string]*fakeObject
	failAt  string // Create fails when asked for this key
}

func (s *fakeSink) IterateMissing(from, to calendar.Date) ([]*repo.RepoObjectPath, error) {
	return s.missing, nil
}

func (s *fakeSink) Create(pt calendar.PeriodType, d calendar.Date) (repo.RepoObject, error) {
	k := key(pt, d)
	if k == s.failAt {
		return nil, errors.New("simulated sink failure")
	}
	if s.created == nil {
		s.created = map[string]*fakeObject{}
	}
	obj := &fakeObject{name: k}
	s.created[k] = obj
	return obj, nil
}

type ledgerCall struct {
	kind string
	date string
	data string
}

type fakeLedger struct {
	from, to calendar.Date
	calls    []ledgerCall
}

func (l *fakeLedger) NextPeriod(ctx context.Context) (calendar.Date, calendar.Date, error) {
	return l.from, l.to, nil
}

func (l *fakeLedger) Start(ctx context.Context, date calendar.Date) error {
	l.calls = append(l.calls, ledgerCall{kind: "start", date: date.String()})
	return nil
}

func (l *fakeLedger) End(ctx context.Context, date calendar.Date) error {
	l.calls = append(l.calls, ledgerCall{kind: "end", date: date.String()})
	return nil
}

func (l *fakeLedger) Error(ctx context.Context, date *calendar.Date, message string) error {
	d := ""
	if date != nil {
		d = date.String()
	}
	l.calls = append(l.calls, ledgerCall{kind: "error", date: d, data: message})
	return nil
}

func (l *fakeLedger) Record(ctx context.Context, date calendar.Date, pt calendar.PeriodType) error {
	l.calls = append(l.calls, ledgerCall{kind: "record", date: date.String(), data: pt.String()})
	return nil
}

func (l *fakeLedger) hasKind(kind string) bool {
	for _, c := range l.calls {
		if c.kind == kind {
			return true
		}
	}
	return false
}

func mustPath(t *testing.T, f *repo.RepoFormat, pt calendar.PeriodType, d calendar.Date) *repo.RepoObjectPath {
	t.Helper()
	p, err := repo.NewRepoObjectPathFromDate(f, pt, d)
	if err != nil {
		t.Fatalf("NewRepoObjectPathFromDate: %v", err)
	}
	return p
}

// TestSyncCopiesEachMissingArtifact covers the DONE path: every
// missing artifact is found in the source, written to the sink, and
// recorded in order, and the pass ends with an end event.
func TestSyncCopiesEachMissingArtifact(t *testing.T) {
	f := testFormat()
	from, _ := calendar.ParseDate("2021-07-12")
	to, _ := calendar.ParseDate("2021-07-13")

	src := &fakeSource{}
	src.put(calendar.Quarter, calendar.NewDateFromYearQuarter(2021, 3), "quarter-body")
	src.put(calendar.Day, from, "mon-body")
	src.put(calendar.Day, to, "tue-body")

	sink := &fakeSink{
		missing: []*repo.RepoObjectPath{
			mustPath(t, f, calendar.Quarter, from),
			mustPath(t, f, calendar.Day, from),
			mustPath(t, f, calendar.Day, to),
		},
	}
	ledger := &fakeLedger{from: from, to: to}

	p := New(src, sink, ledger, zerolog.Nop())
	if err := p.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if !ledger.hasKind("start") || !ledger.hasKind("end") {
		t.Fatal("expected both start and end events")
	}
	if ledger.hasKind("error") {
		t.Fatal("unexpected error event on a clean pass")
	}

	recordCount := 0
	for _, c := range ledger.calls {
		if c.kind == "record" {
			recordCount++
		}
	}
	if recordCount != 3 {
		t.Fatalf("got %d record events, want 3", recordCount)
	}

	if len(sink.created) != 3 {
		t.Fatalf("got %d created sink objects, want 3", len(sink.created))
	}
	for k, obj := range sink.created {
		if !obj.exists || len(obj.content) == 0 {
			t.Fatalf("sink object %s was not written", k)
		}
	}
}

// TestSyncStopsAtFirstFailure covers the FAILED path: once Create
// fails partway through, no further records are emitted, no end event
// is logged, and a single error event is recorded.
func TestSyncStopsAtFirstFailure(t *testing.T) {
	f := testFormat()
	from, _ := calendar.ParseDate("2021-07-12")
	mid, _ := calendar.ParseDate("2021-07-13")
	to, _ := calendar.ParseDate("2021-07-14")

	src := &fakeSource{}
	src.put(calendar.Day, from, "mon-body")
	src.put(calendar.Day, mid, "tue-body")
	src.put(calendar.Day, to, "wed-body")

	sink := &fakeSink{
		missing: []*repo.RepoObjectPath{
			mustPath(t, f, calendar.Day, from),
			mustPath(t, f, calendar.Day, mid),
			mustPath(t, f, calendar.Day, to),
		},
		failAt: key(calendar.Day, mid),
	}
	ledger := &fakeLedger{from: from, to: to}

	p := New(src, sink, ledger, zerolog.Nop())
	if err := p.Sync(context.Background()); err == nil {
		t.Fatal("expected Sync to return an error")
	}

	if ledger.hasKind("end") {
		t.Fatal("end event must not be logged on a failed pass")
	}
	if !ledger.hasKind("error") {
		t.Fatal("expected an error event")
	}

	recordCount := 0
	for _, c := range ledger.calls {
		if c.kind == "record" {
			recordCount++
		}
	}
	if recordCount != 1 {
		t.Fatalf("got %d record events before the failure, want exactly 1 (Monday only)", recordCount)
	}
}

// TestSyncEmptyWindowStillEnds covers the empty-iterator branch: no
// missing artifacts still produces a clean start/end with zero records.
func TestSyncEmptyWindowStillEnds(t *testing.T) {
	from, _ := calendar.ParseDate("2021-07-12")
	to, _ := calendar.ParseDate("2021-07-12")

	sink := &fakeSink{}
	ledger := &fakeLedger{from: from, to: to}

	p := New(&fakeSource{}, sink, ledger, zerolog.Nop())
	if err := p.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !ledger.hasKind("end") {
		t.Fatal("expected an end event even for an empty window")
	}
	for _, c := range ledger.calls {
		if c.kind == "record" {
			t.Fatal("unexpected record event for an empty window")
		}
	}
}
