// File: launchconf/override.go
package launchconf

import (
	"fmt"
)

// Override is one parsed command-line assignment: a validated path and the
// raw value text to the right of the separator. The value is not coerced
// until the override is applied, so an Override can be inspected, logged,
// and replayed without losing the author's spelling.
type Override struct {
	Path Path
	Raw  string
}

// String renders the override in its command-line form.
func (o Override) String() string {
	return o.Path.String() + "=" + o.Raw
}

// ParseOverride splits a single "path=value" argument and validates the
// path. The separator is the first '=' that sits outside any structured
// literal, so values like {"lr":1e-6} or [a,b=c] keep their inner '='
// characters. An argument with no separator at depth zero is
// ErrMalformedOverride; a bad left-hand side is ErrMalformedPath. The raw
// value may be empty, which later coerces to null.
func ParseOverride(arg string) (Override, error) {
	idx := separatorIndex(arg)
	if idx < 0 {
		return Override{}, fmt.Errorf("%w: no '=' separator in %q", ErrMalformedOverride, arg)
	}
	path, err := ParsePath(arg[:idx])
	if err != nil {
		return Override{}, fmt.Errorf("override %q: %w", arg, err)
	}
	return Override{Path: path, Raw: arg[idx+1:]}, nil
}

// ParseOverrides parses each argument in order, preserving order for
// last-wins application. The first malformed argument aborts the parse.
func ParseOverrides(args []string) ([]Override, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]Override, 0, len(args))
	for _, arg := range args {
		ov, err := ParseOverride(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, ov)
	}
	return out, nil
}

// separatorIndex finds the first '=' at bracket depth zero outside double
// quotes, or -1. Depth counts '[' '{' against ']' '}'; a backslash escapes
// the next byte inside quotes. Anything left of the separator belongs to
// the path, so quotes and brackets before it only matter for malformed
// input, where the scan still terminates deterministically.
func separatorIndex(arg string) int {
	depth := 0
	inQuote := false
	for i := 0; i < len(arg); i++ {
		c := arg[i]
		if inQuote {
			switch c {
			case '\\':
				i++
			case '"':
				inQuote = false
			}
			continue
		}
		switch c {
		case '"':
			inQuote = true
		case '[', '{':
			depth++
		case ']', '}':
			if depth > 0 {
				depth--
			}
		case '=':
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
