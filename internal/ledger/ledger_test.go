package ledger

import (
	"testing"

	"github.com/nholding/edgar-mirror/internal/calendar"
)

func TestResumeFromAdvancesPastLastEnd(t *testing.T) {
	floor, _ := calendar.ParseDate("2010-01-01")
	got, err := resumeFrom("2020-06-30", floor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := calendar.ParseDate("2020-07-01")
	if !got.Equal(want) {
		t.Fatalf("resumeFrom = %s, want %s", got, want)
	}
}

func TestResumeFromNeverGoesBehindFloor(t *testing.T) {
	floor, _ := calendar.ParseDate("2020-01-01")
	got, err := resumeFrom("2019-12-30", floor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(floor) {
		t.Fatalf("resumeFrom = %s, want floor %s", got, floor)
	}
}

func TestResumeFromBadDate(t *testing.T) {
	floor, _ := calendar.ParseDate("2010-01-01")
	if _, err := resumeFrom("not-a-date", floor); err == nil {
		t.Fatal("expected an error for a malformed last-end date")
	}
}

// TestNextTimestampMonotonic exercises the ledger's non-decreasing
// clock without a live database: the zero-value Ledger never touches
// l.db in nextTimestamp.
func TestNextTimestampMonotonic(t *testing.T) {
	l := &Ledger{}
	const pinned = 4_000_000_000 // pin ahead of wall-clock time.Now()
	l.lastUnix = pinned

	got := l.nextTimestamp()
	if got < pinned {
		t.Fatalf("nextTimestamp = %d, want >= %d (must not go backwards)", got, pinned)
	}

	second := l.nextTimestamp()
	if second < got {
		t.Fatalf("second nextTimestamp = %d, want >= %d", second, got)
	}
}
