// File: launchconf/access.go
package launchconf

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Typed accessors for dotted paths on a resolved tree. Conversions are
// tolerant in the direction that cannot lose information: integral floats
// read as ints, numeric strings parse, but 3.5 never silently truncates
// to 3. Each accessor errors when the path is absent or the value does
// not convert.

func (n *Node) scalarAt(path string) (any, error) {
	node, ok := n.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("path %q not found", path)
	}
	if node.Kind() != KindScalar {
		return nil, fmt.Errorf("path %q holds a %s, not a scalar", path, node.Kind())
	}
	return node.Value(), nil
}

// String reads a scalar as its string form. Non-string scalars format
// plainly; null reads as the empty string.
func (n *Node) String(path string) (string, error) {
	v, err := n.scalarAt(path)
	if err != nil {
		return "", err
	}
	return scalarString(v), nil
}

// Int64 reads an integer. Floats convert only when integral; strings
// parse in base 10.
func (n *Node) Int64(path string) (int64, error) {
	v, err := n.scalarAt(path)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case int64:
		return t, nil
	case float64:
		if t != float64(int64(t)) {
			return 0, fmt.Errorf("path %q: float %v is not integral", path, t)
		}
		return int64(t), nil
	case string:
		i, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("path %q: cannot parse %q as int", path, t)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("path %q: cannot convert %T to int", path, v)
	}
}

// Int is Int64 narrowed to the platform int.
func (n *Node) Int(path string) (int, error) {
	i, err := n.Int64(path)
	if err != nil {
		return 0, err
	}
	return int(i), nil
}

// Float64 reads a float; ints widen, strings parse.
func (n *Node) Float64(path string) (float64, error) {
	v, err := n.scalarAt(path)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case float64:
		return t, nil
	case int64:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("path %q: cannot parse %q as float", path, t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("path %q: cannot convert %T to float", path, v)
	}
}

// Bool reads a bool; strings parse with strconv.ParseBool.
func (n *Node) Bool(path string) (bool, error) {
	v, err := n.scalarAt(path)
	if err != nil {
		return false, err
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return false, fmt.Errorf("path %q: cannot parse %q as bool", path, t)
		}
		return b, nil
	default:
		return false, fmt.Errorf("path %q: cannot convert %T to bool", path, v)
	}
}

// Duration reads a time.Duration from a duration string like "30s" or an
// integer nanosecond count.
func (n *Node) Duration(path string) (time.Duration, error) {
	v, err := n.scalarAt(path)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case string:
		d, err := time.ParseDuration(t)
		if err != nil {
			return 0, fmt.Errorf("path %q: cannot parse %q as duration", path, t)
		}
		return d, nil
	case int64:
		return time.Duration(t), nil
	default:
		return 0, fmt.Errorf("path %q: cannot convert %T to duration", path, v)
	}
}

// StringSlice reads a sequence of scalars as strings. A plain string
// splits on commas, mirroring the comma-split decode hook used by Scan.
func (n *Node) StringSlice(path string) ([]string, error) {
	node, ok := n.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("path %q not found", path)
	}
	switch node.Kind() {
	case KindSequence:
		out := make([]string, 0, node.Len())
		for i, item := range node.Items() {
			if item.Kind() != KindScalar {
				return nil, fmt.Errorf("path %q: item %d is a %s, not a scalar", path, i, item.Kind())
			}
			out = append(out, scalarString(item.Value()))
		}
		return out, nil
	case KindScalar:
		if s, ok := node.Value().(string); ok {
			if s == "" {
				return nil, nil
			}
			return strings.Split(s, ","), nil
		}
		return nil, fmt.Errorf("path %q: cannot convert %T to string slice", path, node.Value())
	default:
		return nil, fmt.Errorf("path %q holds a %s, not a sequence", path, node.Kind())
	}
}
