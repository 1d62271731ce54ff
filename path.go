// FILE: launchconf/path.go
package launchconf

import (
	"fmt"
	"strings"
)

// Path is an immutable sequence of segments addressing a node in a config
// tree. The textual form joins segments with dots: "worker.rollout.name".
// Each segment must match [A-Za-z0-9_]+. The zero value is the empty path,
// which addresses the tree root and is not produced by ParsePath.
type Path struct {
	segs []string
}

// ParsePath splits text on dots and validates every segment. A leading or
// trailing dot, two adjacent dots, an empty string, or any character outside
// the segment alphabet yields ErrMalformedPath.
func ParsePath(text string) (Path, error) {
	if text == "" {
		return Path{}, fmt.Errorf("%w: empty path", ErrMalformedPath)
	}
	segs := strings.Split(text, ".")
	for _, seg := range segs {
		if seg == "" {
			return Path{}, fmt.Errorf("%w: empty segment in %q", ErrMalformedPath, text)
		}
		if !isValidSegment(seg) {
			return Path{}, fmt.Errorf("%w: invalid segment %q in %q", ErrMalformedPath, seg, text)
		}
	}
	return Path{segs: segs}, nil
}

// MustParsePath is ParsePath for statically known paths. It panics on
// malformed input and is intended for package-level declarations and
// schema tables.
func MustParsePath(text string) Path {
	p, err := ParsePath(text)
	if err != nil {
		panic(err)
	}
	return p
}

// isValidSegment reports whether seg consists only of ASCII letters,
// digits, and underscores. Dots and dashes are rejected so that the
// textual form round-trips unambiguously.
func isValidSegment(seg string) bool {
	for i := 0; i < len(seg); i++ {
		c := seg[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return len(seg) > 0
}

// String returns the canonical dotted form. Parsing the result yields an
// equal path.
func (p Path) String() string {
	return strings.Join(p.segs, ".")
}

// Key returns the map key under which this path is stored by traces and
// schemas. It is the canonical dotted form; two paths are interchangeable
// exactly when their keys are equal.
func (p Path) Key() string {
	return p.String()
}

// Len returns the number of segments.
func (p Path) Len() int {
	return len(p.segs)
}

// Segments returns a copy of the segment slice.
func (p Path) Segments() []string {
	out := make([]string, len(p.segs))
	copy(out, p.segs)
	return out
}

// Segment returns the i-th segment. It panics if i is out of range.
func (p Path) Segment(i int) string {
	return p.segs[i]
}

// Equal reports whether both paths hold the same segment sequence.
func (p Path) Equal(other Path) bool {
	if len(p.segs) != len(other.segs) {
		return false
	}
	for i := range p.segs {
		if p.segs[i] != other.segs[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is a leading subsequence of p. Every
// path has the empty path as a prefix.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix.segs) > len(p.segs) {
		return false
	}
	for i := range prefix.segs {
		if p.segs[i] != prefix.segs[i] {
			return false
		}
	}
	return true
}

// Parent returns the path with the last segment removed, and false when p
// is empty or a single segment.
func (p Path) Parent() (Path, bool) {
	if len(p.segs) < 2 {
		return Path{}, false
	}
	return Path{segs: p.segs[:len(p.segs)-1]}, true
}

// Child appends one validated segment, leaving p untouched.
func (p Path) Child(seg string) (Path, error) {
	if !isValidSegment(seg) {
		return Path{}, fmt.Errorf("%w: invalid segment %q", ErrMalformedPath, seg)
	}
	segs := make([]string, len(p.segs)+1)
	copy(segs, p.segs)
	segs[len(p.segs)] = seg
	return Path{segs: segs}, nil
}

// Join appends other's segments to p, leaving both inputs untouched.
func (p Path) Join(other Path) Path {
	if len(other.segs) == 0 {
		return p
	}
	if len(p.segs) == 0 {
		return other
	}
	segs := make([]string, 0, len(p.segs)+len(other.segs))
	segs = append(segs, p.segs...)
	segs = append(segs, other.segs...)
	return Path{segs: segs}
}

// prefixOf builds a path from the first n segments of segs without
// validation. Used internally where segments are already known valid.
func prefixOf(segs []string, n int) Path {
	out := make([]string, n)
	copy(out, segs[:n])
	return Path{segs: out}
}
