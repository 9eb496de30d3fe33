package cast

import (
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/nonibytes/docfilter/docfilter/query"
)

// Epoch is the instant missing date components default to.
var Epoch = time.Unix(0, 0).UTC()

type partialLayout struct {
	layout  string
	hasDate bool
	hasYear bool
}

// partialLayouts cover inputs that name only some date components. They are
// tried before the free-form parser so the missing parts come from Epoch
// instead of the current date. Input is upper-cased before matching, so the
// meridiem layouts also accept "pm".
var partialLayouts = []partialLayout{
	{"15:04", false, false},
	{"15:04:05", false, false},
	{"15:04:05.999999999", false, false},
	{"3:04PM", false, false},
	{"3:04 PM", false, false},
	{"3:04:05PM", false, false},
	{"3:04:05 PM", false, false},
	{"3PM", false, false},
	{"3 PM", false, false},
	{"1/2", true, false},
	{"January 2", true, false},
	{"Jan 2", true, false},
	{"January 2 15:04", true, false},
	{"Jan 2 15:04", true, false},
	{"January 2 15:04:05", true, false},
	{"Jan 2 15:04:05", true, false},
	{"2 January", true, false},
	{"2 Jan", true, false},
	{"2 January 15:04", true, false},
	{"2 Jan 15:04", true, false},
	{"January", true, false},
	{"Jan", true, false},
	{"2006", true, true},
	{"2006-01", true, true},
	{"January 2006", true, true},
	{"Jan 2006", true, true},
	{"2006-01-02 3PM", true, true},
	{"2006-01-02 3 PM", true, true},
	{"2006-01-02 3:04PM", true, true},
	{"2006-01-02 3:04 PM", true, true},
}

// Date converts v to an absolute UTC timestamp. Integers (and floats) are
// milliseconds since the epoch; strings are parsed free-form. Anything that
// cannot be interpreted collapses to Epoch.
func Date(v query.Value) time.Time {
	switch v.Kind {
	case query.KindInt:
		return time.UnixMilli(v.I).UTC()
	case query.KindFloat:
		if math.IsNaN(v.F) || math.IsInf(v.F, 0) {
			return Epoch
		}
		return time.UnixMilli(int64(v.F)).UTC()
	case query.KindString, query.KindIdent:
		return ParseDate(v.S)
	default:
		return Epoch
	}
}

// ParseDate parses s with missing components taken from Epoch.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return Epoch
	}
	upper := strings.ToUpper(s)
	for _, p := range partialLayouts {
		t, err := time.ParseInLocation(p.layout, upper, time.UTC)
		if err != nil {
			continue
		}
		switch {
		case !p.hasDate:
			return time.Date(Epoch.Year(), Epoch.Month(), Epoch.Day(),
				t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
		case !p.hasYear:
			return time.Date(Epoch.Year(), t.Month(), t.Day(),
				t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
		default:
			return t.UTC()
		}
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return Epoch
	}
	return fillMissing(s, t.UTC())
}

// fillMissing repairs a free-form parse of s. A year the parser left at zero
// becomes 1970; a time-only input must land on the epoch date or it was
// misread.
func fillMissing(s string, t time.Time) time.Time {
	if timeOnly(s) {
		if y, m, d := t.Date(); y != 1970 || m != time.January || d != 1 {
			return Epoch
		}
		return t
	}
	if t.Year() == 0 {
		return time.Date(Epoch.Year(), t.Month(), t.Day(),
			t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	}
	return t
}

// timeOnly reports whether s is a clock reading with no date part, such as
// "10:30:15" or "10 pm".
func timeOnly(s string) bool {
	u := strings.ToUpper(strings.TrimSpace(s))
	meridiem := strings.HasSuffix(u, "AM") || strings.HasSuffix(u, "PM")
	if meridiem {
		u = strings.TrimSpace(u[:len(u)-2])
	}
	if u == "" || (!meridiem && !strings.Contains(u, ":")) {
		return false
	}
	for _, r := range u {
		if (r < '0' || r > '9') && r != ':' && r != '.' {
			return false
		}
	}
	return true
}
