package repo

import (
	"testing"

	"github.com/nholding/edgar-mirror/internal/calendar"
)

// TestFormatParseRoundTrip is spec scenario 4: format(DAY, 2020-01-25,
// default) yields D/2020/QTR1/master20200125.idx, and parsing it back
// recovers (DAY, 2020-01-25).
func TestFormatParseRoundTrip(t *testing.T) {
	f := defaultFormat()
	d, _ := calendar.ParseDate("2020-01-25")

	p, err := NewRepoObjectPathFromDate(f, calendar.Day, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.String(); got != "D/2020/QTR1/master20200125.idx" {
		t.Fatalf("path = %q, want D/2020/QTR1/master20200125.idx", got)
	}

	parsed, err := NewRepoObjectPathFromURI(f, p.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pt, err := parsed.PeriodType()
	if err != nil {
		t.Fatalf("PeriodType: %v", err)
	}
	if pt != calendar.Day {
		t.Fatalf("PeriodType = %v, want Day", pt)
	}
	gotDate, err := parsed.Date()
	if err != nil {
		t.Fatalf("Date: %v", err)
	}
	if !gotDate.Equal(d) {
		t.Fatalf("Date = %s, want %s", gotDate, d)
	}
}

func TestGetParamYearQuarter(t *testing.T) {
	f := defaultFormat()
	p := NewRepoObjectPathFromList(f, []string{"Q", "2018", "QTR2", "master.idx"})

	year, err := p.Year()
	if err != nil || year != 2018 {
		t.Fatalf("Year() = (%d, %v), want (2018, nil)", year, err)
	}
	q, err := p.Quarter()
	if err != nil || q != 2 {
		t.Fatalf("Quarter() = (%d, %v), want (2, nil)", q, err)
	}
	pt, err := p.PeriodType()
	if err != nil || pt != calendar.Quarter {
		t.Fatalf("PeriodType() = (%v, %v), want (Quarter, nil)", pt, err)
	}
}

func TestAnchorDateForQuarterPath(t *testing.T) {
	f := defaultFormat()
	p := NewRepoObjectPathFromList(f, []string{"Q", "2018", "QTR2", "master.idx"})
	d, err := p.AnchorDate()
	if err != nil {
		t.Fatalf("AnchorDate: %v", err)
	}
	if d.Year() != 2018 || d.Quarter() != 2 {
		t.Fatalf("AnchorDate = %s, want a date in 2018 Q2", d)
	}
}

func TestDateOnlyDefinedForDayPaths(t *testing.T) {
	f := defaultFormat()
	p := NewRepoObjectPathFromList(f, []string{"Q", "2018", "QTR2", "master.idx"})
	if _, err := p.Date(); err == nil {
		t.Fatal("expected an error calling Date() on a QUARTER path")
	}
}
