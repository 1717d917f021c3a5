package repo

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nholding/edgar-mirror/internal/calendar"
)

// MacroFunc resolves a user-registered macro to its rendered value for
// a given (period type, date) pair.
type MacroFunc func(pt calendar.PeriodType, d calendar.Date) string

// RepoFormat pairs a per-PeriodType leaf-name template with an ordered
// list of directory templates, plus any user-registered macros. It
// compiles every template once, on first use, so render/parse run in
// O(template length).
type RepoFormat struct {
	NameSpec map[calendar.PeriodType]string
	PathSpec []string
	Macros   map[string]MacroFunc

	compiledName map[calendar.PeriodType]*compiledTemplate
	compiledPath []*compiledTemplate
}

// macroToken matches {name} or {name:0N} (a zero-padded width
// specifier).
var macroToken = regexp.MustCompile(`\{(\w+)(?::0?(\d+))?\}`)

type templatePiece struct {
	literal string // non-empty only when this piece is a literal run
	macro   string // non-empty only when this piece is a macro name
	width   int    // zero-pad width, 0 if unspecified
}

type compiledTemplate struct {
	raw    string
	pieces []templatePiece
	regex  *regexp.Regexp // anchored, named capture groups per macro
}

func compileTemplate(tmpl string) *compiledTemplate {
	ct := &compiledTemplate{raw: tmpl}

	var pattern strings.Builder
	pattern.WriteString("^")

	last := 0
	seen := map[string]bool{}
	for _, loc := range macroToken.FindAllStringSubmatchIndex(tmpl, -1) {
		litStart, litEnd := last, loc[0]
		if litEnd > litStart {
			literal := tmpl[litStart:litEnd]
			ct.pieces = append(ct.pieces, templatePiece{literal: literal})
			pattern.WriteString(regexp.QuoteMeta(literal))
		}

		name := tmpl[loc[2]:loc[3]]
		width := 0
		if loc[4] >= 0 {
			width, _ = strconv.Atoi(tmpl[loc[4]:loc[5]])
		}
		ct.pieces = append(ct.pieces, templatePiece{macro: name, width: width})

		groupName := name
		if seen[name] {
			// Same macro repeated in one template: keep the regex
			// valid by not redeclaring the capture group name.
			pattern.WriteString(`(\d+)`)
		} else {
			seen[name] = true
			if width > 0 {
				fmt.Fprintf(&pattern, `(?P<%s>\d{%d})`, groupName, width)
			} else {
				fmt.Fprintf(&pattern, `(?P<%s>[^/]+)`, groupName)
			}
		}

		last = loc[1]
	}
	if last < len(tmpl) {
		literal := tmpl[last:]
		ct.pieces = append(ct.pieces, templatePiece{literal: literal})
		pattern.WriteString(regexp.QuoteMeta(literal))
	}
	pattern.WriteString("$")

	ct.regex = regexp.MustCompile(pattern.String())
	return ct
}

// compile finalizes the RepoFormat's templates. Called lazily by
// Format/Parse so zero-value-constructed formats (e.g. in tests) still
// work once NameSpec/PathSpec are populated directly.
func (f *RepoFormat) compile() {
	if f.compiledPath != nil {
		return
	}
	f.compiledName = make(map[calendar.PeriodType]*compiledTemplate, len(f.NameSpec))
	for pt, tmpl := range f.NameSpec {
		f.compiledName[pt] = compileTemplate(tmpl)
	}
	f.compiledPath = make([]*compiledTemplate, len(f.PathSpec))
	for i, tmpl := range f.PathSpec {
		f.compiledPath[i] = compileTemplate(tmpl)
	}
}

func (f *RepoFormat) render(ct *compiledTemplate, pt calendar.PeriodType, d calendar.Date) (string, error) {
	var out strings.Builder
	for _, piece := range ct.pieces {
		if piece.macro == "" {
			out.WriteString(piece.literal)
			continue
		}
		val, err := f.resolveMacro(piece.macro, pt, d)
		if err != nil {
			return "", err
		}
		if piece.width > 0 {
			n, err := strconv.Atoi(val)
			if err == nil {
				fmt.Fprintf(&out, "%0*d", piece.width, n)
				continue
			}
		}
		out.WriteString(val)
	}
	return out.String(), nil
}

func (f *RepoFormat) resolveMacro(name string, pt calendar.PeriodType, d calendar.Date) (string, error) {
	switch name {
	case "y":
		return strconv.Itoa(d.Year()), nil
	case "m":
		return strconv.Itoa(d.Month()), nil
	case "d":
		return strconv.Itoa(d.Day()), nil
	case "q":
		return strconv.Itoa(d.Quarter()), nil
	case "t":
		return pt.String(), nil
	}
	if fn, ok := f.Macros[name]; ok {
		return fn(pt, d), nil
	}
	return "", fmt.Errorf("repo: %w: unregistered macro %q", ErrBadPath, name)
}

// Format renders (pt, d) into an ordered list of path components
// followed by the leaf (object) name.
func (f *RepoFormat) Format(pt calendar.PeriodType, d calendar.Date) ([]string, string, error) {
	f.compile()

	components := make([]string, 0, len(f.compiledPath))
	for _, ct := range f.compiledPath {
		seg, err := f.render(ct, pt, d)
		if err != nil {
			return nil, "", err
		}
		components = append(components, seg)
	}

	nameCT, ok := f.compiledName[pt]
	if !ok {
		return nil, "", fmt.Errorf("repo: %w: no name template for period type %s", ErrBadPath, pt)
	}
	leaf, err := f.render(nameCT, pt, d)
	if err != nil {
		return nil, "", err
	}
	return components, leaf, nil
}
