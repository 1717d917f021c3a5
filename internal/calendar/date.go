// Package calendar models civil dates, quarters, and the backfill
// segmentation used to turn an arbitrary date range into a minimal
// sequence of DAY/QUARTER periods.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// PeriodType identifies the granularity of a DatePeriod.
type PeriodType int

const (
	// Unknown is the zero value; it never appears in a valid DatePeriod.
	Unknown PeriodType = iota
	Day
	Quarter
)

// String returns the single-character wire form ("D" or "Q").
func (pt PeriodType) String() string {
	switch pt {
	case Day:
		return "D"
	case Quarter:
		return "Q"
	default:
		return "U"
	}
}

// ParsePeriodType parses the single-character wire form of a PeriodType.
func ParsePeriodType(s string) (PeriodType, error) {
	switch s {
	case "D":
		return Day, nil
	case "Q":
		return Quarter, nil
	default:
		return Unknown, fmt.Errorf("calendar: %w: bad period type %q", ErrBadDate, s)
	}
}

// Date is an immutable civil (Gregorian) date. All operations return a
// new Date rather than mutating the receiver.
type Date struct {
	t time.Time
}

// NewDate builds a Date from a year/month/day triple, normalized to UTC
// midnight.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar date in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// ParseDate parses a "YYYY-MM-DD" string into a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("calendar: %w: %q", ErrBadDate, s)
	}
	return Date{t: t}, nil
}

// String renders the date as "YYYY-MM-DD".
func (d Date) String() string {
	return d.t.Format("2006-01-02")
}

// Year returns the calendar year.
func (d Date) Year() int { return d.t.Year() }

// Month returns the calendar month (1..12).
func (d Date) Month() int { return int(d.t.Month()) }

// Day returns the day of month (1..31).
func (d Date) Day() int { return d.t.Day() }

// ISOWeekday returns the ISO weekday, 1=Monday .. 7=Sunday.
func (d Date) ISOWeekday() int {
	wd := int(d.t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// IsWeekend reports whether the date falls on Saturday or Sunday.
func (d Date) IsWeekend() bool {
	wd := d.ISOWeekday()
	return wd == 6 || wd == 7
}

// Quarter returns the calendar quarter, 1..4.
func (d Date) Quarter() int {
	return (d.Month()-1)/3 + 1
}

// AddDays returns a new Date n days after d. n may be negative. This
// never mutates d.
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool { return d.t.After(other.t) }

// Equal reports whether d and other denote the same calendar date.
func (d Date) Equal(other Date) bool { return d.t.Equal(other.t) }

// DiffDays returns the number of days between from and d, inclusive of
// the start date: DiffDays(from) = (d - from) + 1.
func (d Date) DiffDays(from Date) int {
	return int(d.t.Sub(from.t).Hours()/24) + 1
}

// DiffQuarters returns d.Quarter() - from.Quarter(). This is NOT a
// cross-year quarter count; callers spanning a year boundary get a
// value that does not account for the elapsed years (see backfill's
// same-calendar-year restriction).
func (d Date) DiffQuarters(from Date) int {
	return d.Quarter() - from.Quarter()
}

// quarterStartMonths is the lookup table used by QuarterDates: the
// first month of each quarter, plus a sentinel one past December so a
// "strictly greater than" search always finds a successor.
var quarterStartMonths = [...]int{1, 4, 7, 10, 13}

// QuarterDates returns the first and last date of the quarter enclosing
// d, found by locating the first quarter-start month strictly greater
// than d.Month() in the table (1,4,7,10,13) and taking its predecessor
// as the start.
func (d Date) QuarterDates() (start, end Date) {
	month := d.Month()
	for _, qs := range quarterStartMonths[1:] {
		if qs > month {
			prevStart := qs - 3
			start = NewDate(d.Year(), time.Month(prevStart), 1)
			end = NewDate(d.Year(), time.Month(qs), 1).AddDays(-1)
			return start, end
		}
	}
	// unreachable: quarterStartMonths always has a sentinel > 12
	return d, d
}

// NewDateFromYearQuarter returns the first day of the given quarter
// (1..4) of year, useful wherever only a (year, quarter) pair is known
// and any date representative of that quarter will do.
func NewDateFromYearQuarter(year, quarter int) Date {
	return NewDate(year, time.Month(quarterStartMonths[quarter-1]), 1)
}

// Tuple returns the (year, month, day) triple.
func (d Date) Tuple() (year, month, day int) {
	return d.Year(), d.Month(), d.Day()
}

// DatePeriod is a (period type, start, end) triple with start <= end.
type DatePeriod struct {
	Type    PeriodType
	Start   Date
	End     Date
	NumDays int
}

// NewDatePeriod builds a DatePeriod and derives NumDays from start/end.
func NewDatePeriod(pt PeriodType, start, end Date) DatePeriod {
	return DatePeriod{Type: pt, Start: start, End: end, NumDays: end.DiffDays(start)}
}

// String renders "T,start,end".
func (dp DatePeriod) String() string {
	return fmt.Sprintf("%s,%s,%s", dp.Type, dp.Start, dp.End)
}

// ParseDatePeriod parses the "T,start,end" serialization.
func ParseDatePeriod(s string) (DatePeriod, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return DatePeriod{}, fmt.Errorf("calendar: %w: bad date period %q", ErrBadDate, s)
	}
	pt, err := ParsePeriodType(parts[0])
	if err != nil {
		return DatePeriod{}, err
	}
	start, err := ParseDate(parts[1])
	if err != nil {
		return DatePeriod{}, err
	}
	end, err := ParseDate(parts[2])
	if err != nil {
		return DatePeriod{}, err
	}
	return NewDatePeriod(pt, start, end), nil
}

// ExpandToQuarter snaps the period to the enclosing quarter of Start
// and retypes it to Quarter. It fails with ErrPeriodTooWide if End
// falls outside that quarter.
func (dp DatePeriod) ExpandToQuarter() (DatePeriod, error) {
	qstart, qend := dp.Start.QuarterDates()
	if dp.End.After(qend) {
		return DatePeriod{}, fmt.Errorf("calendar: %w: period end %s exceeds quarter end %s", ErrPeriodTooWide, dp.End, qend)
	}
	return NewDatePeriod(Quarter, qstart, qend), nil
}

// Backfill produces the minimal cover of [from, d] (inclusive both
// ends) as a sequence of DatePeriod segments, alternating a partial DAY
// head/tail with full QUARTER segments in between. It assumes from and
// d fall in the same calendar year; see DiffQuarters and DESIGN.md for
// the Open Question this preserves rather than widens.
func (d Date) Backfill(from Date) []DatePeriod {
	if d.DiffDays(from) <= 0 {
		return nil
	}

	qnum := d.DiffQuarters(from)
	qbStart, qbEnd := from.QuarterDates()

	if qnum == 0 {
		pt := Day
		if from.Equal(qbStart) && d.Equal(qbEnd) {
			pt = Quarter
		}
		return []DatePeriod{NewDatePeriod(pt, from, d)}
	}

	segments := make([]DatePeriod, 0, qnum+1)

	firstPT := Day
	if from.Equal(qbStart) {
		firstPT = Quarter
	}
	segments = append(segments, NewDatePeriod(firstPT, from, qbEnd))

	cursorQuarterStart := qbEnd.AddDays(1)
	for i := 2; i <= qnum; i++ {
		qs, qe := cursorQuarterStart.QuarterDates()
		segments = append(segments, NewDatePeriod(Quarter, qs, qe))
		cursorQuarterStart = qe.AddDays(1)
	}

	qlStart, qlEnd := cursorQuarterStart.QuarterDates()
	lastPT := Day
	if d.Equal(qlEnd) {
		lastPT = Quarter
	}
	segments = append(segments, NewDatePeriod(lastPT, qlStart, d))

	return segments
}
