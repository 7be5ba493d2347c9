// Package meta extracts the leading key/value front-matter block from a
// document and coerces values to typed scalars, dates, and lists.
package meta

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
)

// Meta maps lower-cased front-matter keys to typed values. Possible value
// types are string, int64, float64, time.Time, and []string.
type Meta map[string]any

// Reserved keys with engine-level meaning.
const (
	KeySkip     = "skip"
	KeyTemplate = "template"
	KeyDate     = "date"
)

// Parse scans lines from the start of a document and extracts the
// front-matter block. Scanning stops at the first blank line, line whose
// first character is not a letter, or line without a colon. The returned
// body holds every line strictly after the block; the terminating line is
// consumed. When the document has no front-matter lines at all, the body
// is the whole input unchanged.
//
// A "date" value that cannot be parsed is a hard error. A value of "None"
// drops the key entirely.
func Parse(lines []string) (Meta, []string, error) {
	m := Meta{}

	i := 0
	for ; i < len(lines); i++ {
		line := lines[i]
		if !isMetaLine(line) {
			break
		}

		rawKey, rawVal, _ := strings.Cut(line, ":")
		key := strings.ToLower(strings.TrimSpace(rawKey))
		val := strings.TrimSpace(rawVal)

		value, keep, err := coerce(key, val)
		if err != nil {
			return nil, nil, err
		}
		if keep {
			m[key] = value
		}
	}

	if i == 0 {
		// No front matter: the whole document is body.
		return m, lines, nil
	}
	if i >= len(lines) {
		return m, nil, nil
	}
	// The terminating line (usually the blank separator) is consumed.
	return m, lines[i+1:], nil
}

// isMetaLine reports whether a line continues the front-matter block:
// non-blank, starts with an ASCII letter, and contains a colon.
func isMetaLine(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	c := line[0]
	if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') {
		return false
	}
	return strings.Contains(line, ":")
}

// coerce applies the typed-value rules in order: "None" drops the key, a
// "date" key must parse as a date, a plural key with a comma becomes a
// list, then integer, float, and finally plain string.
func coerce(key, val string) (any, bool, error) {
	if val == "None" {
		return nil, false, nil
	}

	if key == KeyDate {
		t, err := dateparse.ParseAny(val)
		if err != nil {
			return nil, false, fmt.Errorf("meta: parse date %q: %w", val, err)
		}
		return t, true, nil
	}

	if strings.HasSuffix(key, "s") && strings.Contains(val, ",") {
		parts := strings.Split(val, ",")
		list := make([]string, len(parts))
		for i, p := range parts {
			list[i] = strings.TrimSpace(p)
		}
		return list, true, nil
	}

	if n, err := strconv.ParseInt(val, 10, 64); err == nil {
		return n, true, nil
	}
	if f, err := strconv.ParseFloat(val, 64); err == nil {
		return f, true, nil
	}
	return val, true, nil
}

// Truthy reports whether a coerced value counts as true for the "skip"
// check. Zero numbers, empty strings, and absent values are false;
// anything else (including the string "false") is true.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int64:
		return x != 0
	case float64:
		return x != 0
	default:
		return true
	}
}
