// File: launchconf/coerce.go
package launchconf

import (
	"fmt"
	"regexp"
	"strconv"
)

// Coercion grammar gates. strconv accepts far more than the override
// grammar does (hex, "Inf", leading '+', underscores), so candidate
// strings are matched against these patterns first and only then parsed.
var (
	intPattern   = regexp.MustCompile(`^-?[0-9]+$`)
	floatPattern = regexp.MustCompile(`^-?(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+)(?:[eE][+-]?[0-9]+)?$`)
)

// Coerce interprets a raw override value and returns its typed node.
// The rules apply in order, first match wins:
//
//  1. "true" / "false" (exact, lowercase) parse as bool.
//  2. An optional '-' followed by digits parses as int64.
//  3. Decimal or scientific notation parses as float64; "1e5" is a float
//     even though its value is integral.
//  4. "null" and the empty string parse as the null scalar.
//  5. A value opening with '[' or '{' must be a valid JSON literal and
//     becomes a sequence or mapping; embedded numbers re-enter rules 2
//     and 3, embedded strings stay strings. Invalid JSON here is
//     ErrMalformedLiteral, never a fallback to string.
//  6. Anything else is the string itself, verbatim.
//
// Values that merely resemble numbers ("1.2.3", "0x1f", "+5", "Inf",
// "1_000") fall through to rule 6 and stay strings. Coercion is pure:
// equal inputs always produce equal nodes.
func Coerce(raw string) (*Node, error) {
	switch raw {
	case "true":
		return Scalar(true), nil
	case "false":
		return Scalar(false), nil
	}
	if intPattern.MatchString(raw) {
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return Scalar(i), nil
		}
		// Integral but outside int64: keep it numeric as a float.
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return Scalar(f), nil
		}
		return Scalar(raw), nil
	}
	if floatPattern.MatchString(raw) {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return Scalar(f), nil
		}
		return Scalar(raw), nil
	}
	if raw == "null" || raw == "" {
		return Null(), nil
	}
	if raw[0] == '[' || raw[0] == '{' {
		node, err := parseJSONLiteral(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrMalformedLiteral, raw, err)
		}
		return node, nil
	}
	return Scalar(raw), nil
}
