package calendar

import (
	"sync"
	"time"
)

// lastWeek is the "which occurrence" sentinel meaning the last
// occurrence of a weekday in a month, rather than a fixed ordinal.
const lastWeek = 5

type fixedHoliday struct {
	month time.Month
	day   int
	name  string
}

type floatingHoliday struct {
	month   time.Month
	weekday time.Weekday
	which   int
	name    string
}

// fixedHolidays is the authoritative list of U.S. federal holidays that
// fall on a fixed month/day.
var fixedHolidays = []fixedHoliday{
	{time.January, 1, "New Year's Day"},
	{time.July, 4, "Independence Day"},
	{time.November, 11, "Veterans Day"},
	{time.December, 25, "Christmas Day"},
}

// floatingHolidays is the authoritative list of U.S. federal holidays
// defined by an (month, weekday, which-occurrence) rule.
var floatingHolidays = []floatingHoliday{
	{time.January, time.Monday, 3, "MLK Jr. Birthday"},
	{time.February, time.Monday, 3, "Washington's Birthday"},
	{time.May, time.Monday, lastWeek, "Memorial Day"},
	{time.September, time.Monday, 1, "Labor Day"},
	{time.October, time.Monday, 2, "Columbus Day"},
	{time.November, time.Thursday, 4, "Thanksgiving Day"},
}

// nthWeekdayOfMonth finds the day-of-month for the which'th occurrence
// of weekday in (year, month). which==lastWeek asks for the final
// occurrence: this is computed as the 5th occurrence, rolled back one
// week if that spills into the following month.
func nthWeekdayOfMonth(year int, month time.Month, weekday time.Weekday, which int) int {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	firstOccurrence := 1 + offset

	day := firstOccurrence + (which-1)*7
	if which == lastWeek {
		daysInMonth := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
		if day > daysInMonth {
			day -= 7
		}
	}
	return day
}

// rollObserved applies the Saturday->Friday / Sunday->Monday weekend
// rollover used for federal holiday observance.
func rollObserved(d Date) Date {
	switch d.ISOWeekday() {
	case 6: // Saturday
		return d.AddDays(-1)
	case 7: // Sunday
		return d.AddDays(1)
	default:
		return d
	}
}

// Holidays is the memoized, per-year set of observed U.S. federal
// holidays. Use HolidaysFor to obtain one; construction is cached so
// repeated lookups for the same year do no recomputation.
type Holidays struct {
	year   int
	dates  map[Date]string
	byName map[string]Date
}

var (
	holidaysMu    sync.Mutex
	holidaysCache = map[int]*Holidays{}
)

// HolidaysFor returns the observed holiday set for year, computing and
// caching it on first use.
func HolidaysFor(year int) *Holidays {
	holidaysMu.Lock()
	defer holidaysMu.Unlock()

	if h, ok := holidaysCache[year]; ok {
		return h
	}

	h := &Holidays{
		year:   year,
		dates:  make(map[Date]string, len(fixedHolidays)+len(floatingHolidays)),
		byName: make(map[string]Date, len(fixedHolidays)+len(floatingHolidays)),
	}

	for _, fh := range fixedHolidays {
		d := rollObserved(NewDate(year, fh.month, fh.day))
		h.dates[d] = fh.name
		h.byName[fh.name] = d
	}
	for _, fl := range floatingHolidays {
		day := nthWeekdayOfMonth(year, fl.month, fl.weekday, fl.which)
		d := rollObserved(NewDate(year, fl.month, day))
		h.dates[d] = fl.name
		h.byName[fl.name] = d
	}

	holidaysCache[year] = h
	return h
}

// Contains reports whether d is an observed holiday.
func (h *Holidays) Contains(d Date) bool {
	_, ok := h.dates[d]
	return ok
}

// NameOf returns the holiday name observed on d, if any.
func (h *Holidays) NameOf(d Date) (string, bool) {
	name, ok := h.dates[d]
	return name, ok
}

// Len returns the number of distinct observed holidays in the year
// (always 10, barring a fixed holiday and a floating holiday colliding
// on the same calendar date, which does not occur for this list).
func (h *Holidays) Len() int {
	return len(h.dates)
}
