package calendar

import "errors"

// ErrBadDate is returned when a date string or serialized DatePeriod
// cannot be parsed.
var ErrBadDate = errors.New("bad date")

// ErrPeriodTooWide is returned by ExpandToQuarter when the period's end
// falls outside the quarter enclosing its start.
var ErrPeriodTooWide = errors.New("period too wide for quarter")
