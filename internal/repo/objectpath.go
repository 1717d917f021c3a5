package repo

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nholding/edgar-mirror/internal/calendar"
)

// RepoObjectPath is the canonical, parsed representation of one
// artifact location: an ordered component list (directory segments
// followed by the leaf name) plus lazy accessors that recover the
// period type, year, quarter, and date it encodes.
type RepoObjectPath struct {
	format     *RepoFormat
	components []string

	periodType *calendar.PeriodType
	year       *int
	quarter    *int
	date       *calendar.Date
}

// NewRepoObjectPathFromList builds a RepoObjectPath from an explicit
// component list (directory segments followed by the leaf name).
func NewRepoObjectPathFromList(format *RepoFormat, components []string) *RepoObjectPath {
	format.compile()
	cp := make([]string, len(components))
	copy(cp, components)
	return &RepoObjectPath{format: format, components: cp}
}

// NewRepoObjectPathFromURI splits a slash-joined URI into components.
func NewRepoObjectPathFromURI(format *RepoFormat, uri string) (*RepoObjectPath, error) {
	trimmed := strings.Trim(uri, "/")
	if trimmed == "" {
		return nil, fmt.Errorf("repo: %w: empty uri", ErrBadPath)
	}
	return NewRepoObjectPathFromList(format, strings.Split(trimmed, "/")), nil
}

// NewRepoObjectPathFromObject derives a RepoObjectPath from a
// RepoObject's own subpath, taking exactly len(PathSpec)+1 components.
func NewRepoObjectPathFromObject(format *RepoFormat, obj RepoObject) *RepoObjectPath {
	format.compile()
	return NewRepoObjectPathFromList(format, obj.Subpath(len(format.PathSpec)+1))
}

// NewRepoObjectPathFromDate renders (pt, d) via format and wraps the
// result, pre-populating the caches since the inputs are already known.
func NewRepoObjectPathFromDate(format *RepoFormat, pt calendar.PeriodType, d calendar.Date) (*RepoObjectPath, error) {
	dirs, leaf, err := format.Format(pt, d)
	if err != nil {
		return nil, err
	}
	p := NewRepoObjectPathFromList(format, append(dirs, leaf))
	p.periodType = &pt
	p.date = &d
	year, quarter := d.Year(), d.Quarter()
	p.year = &year
	p.quarter = &quarter
	return p, nil
}

// String renders the components slash-joined.
func (p *RepoObjectPath) String() string {
	return strings.Join(p.components, "/")
}

// Components returns a copy of the path's component list.
func (p *RepoObjectPath) Components() []string {
	cp := make([]string, len(p.components))
	copy(cp, p.components)
	return cp
}

// GetParam recovers a named scalar by finding the first path_spec
// template whose pattern contains the macro {name} and extracting the
// corresponding component.
func (p *RepoObjectPath) GetParam(name string) (string, error) {
	p.format.compile()
	for i, ct := range p.format.compiledPath {
		if i >= len(p.components) {
			break
		}
		for _, sub := range ct.regex.SubexpNames() {
			if sub != name {
				continue
			}
			match := ct.regex.FindStringSubmatch(p.components[i])
			if match == nil {
				return "", fmt.Errorf("repo: %w: component %q does not match template %q", ErrBadPath, p.components[i], ct.raw)
			}
			for idx, n := range ct.regex.SubexpNames() {
				if n == name {
					return match[idx], nil
				}
			}
		}
	}
	return "", fmt.Errorf("repo: %w: no template defines {%s}", ErrBadPath, name)
}

// PeriodType recovers the path's period type via the {t} macro.
func (p *RepoObjectPath) PeriodType() (calendar.PeriodType, error) {
	if p.periodType != nil {
		return *p.periodType, nil
	}
	s, err := p.GetParam("t")
	if err != nil {
		return calendar.Unknown, err
	}
	pt, err := calendar.ParsePeriodType(s)
	if err != nil {
		return calendar.Unknown, err
	}
	p.periodType = &pt
	return pt, nil
}

// Year recovers the path's year, preferring a cached Date.
func (p *RepoObjectPath) Year() (int, error) {
	if p.year != nil {
		return *p.year, nil
	}
	if p.date != nil {
		y := p.date.Year()
		p.year = &y
		return y, nil
	}
	s, err := p.GetParam("y")
	if err != nil {
		return 0, err
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("repo: %w: bad year %q", ErrBadPath, s)
	}
	p.year = &y
	return y, nil
}

// Quarter recovers the path's quarter, preferring a cached Date.
func (p *RepoObjectPath) Quarter() (int, error) {
	if p.quarter != nil {
		return *p.quarter, nil
	}
	if p.date != nil {
		q := p.date.Quarter()
		p.quarter = &q
		return q, nil
	}
	s, err := p.GetParam("q")
	if err != nil {
		return 0, err
	}
	q, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("repo: %w: bad quarter %q", ErrBadPath, s)
	}
	p.quarter = &q
	return q, nil
}

// Date recovers the full date by applying the DAY leaf template to the
// path's leaf component. Only defined when the path is of DAY type.
func (p *RepoObjectPath) Date() (calendar.Date, error) {
	if p.date != nil {
		return *p.date, nil
	}

	pt, err := p.PeriodType()
	if err != nil {
		return calendar.Date{}, err
	}
	if pt != calendar.Day {
		return calendar.Date{}, fmt.Errorf("repo: %w: date() is only defined for DAY paths", ErrBadPath)
	}

	p.format.compile()
	ct, ok := p.format.compiledName[calendar.Day]
	if !ok {
		return calendar.Date{}, fmt.Errorf("repo: %w: no DAY name template", ErrBadPath)
	}
	if len(p.components) == 0 {
		return calendar.Date{}, fmt.Errorf("repo: %w: empty path", ErrBadPath)
	}
	leaf := p.components[len(p.components)-1]
	match := ct.regex.FindStringSubmatch(leaf)
	if match == nil {
		return calendar.Date{}, fmt.Errorf("repo: %w: leaf %q does not match DAY template %q", ErrBadPath, leaf, ct.raw)
	}

	values := map[string]int{}
	for idx, name := range ct.regex.SubexpNames() {
		if name == "" {
			continue
		}
		n, err := strconv.Atoi(match[idx])
		if err != nil {
			continue
		}
		values[name] = n
	}
	year, yok := values["y"]
	month, mok := values["m"]
	day, dok := values["d"]
	if !yok || !mok || !dok {
		return calendar.Date{}, fmt.Errorf("repo: %w: DAY template %q does not define y/m/d", ErrBadPath, ct.raw)
	}

	d := calendar.NewDate(year, time.Month(month), day)
	p.date = &d
	return d, nil
}

// AnchorDate returns a date usable as the (pt, d) argument pair this
// path was rendered from: the exact date for DAY paths, and the first
// day of the enclosing quarter for QUARTER paths (any date within the
// quarter format-renders to the same path, so the first day suffices).
func (p *RepoObjectPath) AnchorDate() (calendar.Date, error) {
	pt, err := p.PeriodType()
	if err != nil {
		return calendar.Date{}, err
	}
	if pt == calendar.Day {
		return p.Date()
	}
	year, err := p.Year()
	if err != nil {
		return calendar.Date{}, err
	}
	quarter, err := p.Quarter()
	if err != nil {
		return calendar.Date{}, err
	}
	return calendar.NewDateFromYearQuarter(year, quarter), nil
}
