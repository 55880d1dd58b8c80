package model

import "regexp"

// Series is one series membership of a book.
type Series struct {
	// Name is the series name without the numeric suffix.
	Name string `json:"name"`

	// Number is the position within the series as a string,
	// empty for unnumbered series.
	Number string `json:"number"`
}

// seriesNumberSuffix matches a trailing " #<digits>" series position,
// e.g. "The Expanse #4".
var seriesNumberSuffix = regexp.MustCompile(` #(\d+)$`)

// ParseSeries splits a raw series string into name and number.
//
// "The Expanse #4" yields {Name: "The Expanse", Number: "4"}.
// A string without the suffix yields the whole string as Name and an
// empty Number.
func ParseSeries(raw string) Series {
	if m := seriesNumberSuffix.FindStringSubmatchIndex(raw); m != nil {
		return Series{
			Name:   raw[:m[0]],
			Number: raw[m[2]:m[3]],
		}
	}
	return Series{Name: raw}
}

// ParseSeriesList parses every raw series string in order.
func ParseSeriesList(raw []string) []Series {
	if len(raw) == 0 {
		return nil
	}
	series := make([]Series, 0, len(raw))
	for _, s := range raw {
		series = append(series, ParseSeries(s))
	}
	return series
}
