// FILE: launchconf/env.go
package launchconf

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// DefaultEnvNamespace is the reserved top-level key under which captured
// environment variables are injected.
const DefaultEnvNamespace = "env"

// EnvOptions selects which environment variables are captured and where
// they land in the tree.
//
// Selection: when Keys is non-empty exactly those variables are read;
// otherwise all variables starting with Prefix are read; with neither set,
// nothing is captured. Captured values stay verbatim strings and never go
// through coercion, so an API key like "1234" stays "1234" and not an int.
type EnvOptions struct {
	// Namespace is the dotted path receiving the variables,
	// DefaultEnvNamespace when empty.
	Namespace string

	// Prefix selects variables by name prefix. The prefix is kept in the
	// injected key.
	Prefix string

	// Keys selects variables by exact name, taking precedence over Prefix.
	// Absent variables are skipped silently.
	Keys []string

	// Transform maps a variable name to its key under the namespace. Nil
	// keeps the name as is.
	Transform func(name string) string
}

// CaptureEnv snapshots the selected variables. The returned map keys are
// post-Transform names and the values are the exact environment strings.
func CaptureEnv(opts EnvOptions) map[string]string {
	out := make(map[string]string)
	if len(opts.Keys) > 0 {
		for _, name := range opts.Keys {
			value, ok := os.LookupEnv(name)
			if !ok {
				continue
			}
			out[captureKey(opts, name)] = value
		}
		return out
	}
	if opts.Prefix == "" {
		return out
	}
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, opts.Prefix) {
			continue
		}
		out[captureKey(opts, name)] = value
	}
	return out
}

func captureKey(opts EnvOptions, name string) string {
	if opts.Transform == nil {
		return name
	}
	return opts.Transform(name)
}

// InjectEnv captures the selected variables and writes them under the
// namespace path of a deep copy of base, one string scalar per variable in
// sorted name order. Names that are not valid path segments are skipped.
// A scalar or sequence already sitting on the namespace path is
// ErrPathConflict, like any other blocked descent.
func InjectEnv(base *Node, opts EnvOptions) (*Node, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = DefaultEnvNamespace
	}
	nsPath, err := ParsePath(namespace)
	if err != nil {
		return nil, fmt.Errorf("env namespace: %w", err)
	}
	vars := CaptureEnv(opts)
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	assigns := make([]Assignment, 0, len(names))
	for _, name := range names {
		varPath, err := nsPath.Child(name)
		if err != nil {
			continue
		}
		assigns = append(assigns, Assignment{Path: varPath, Value: Scalar(vars[name])})
	}
	merged, _, err := ApplyAssignments(base, assigns)
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// ExportEnv flattens a tree into environment variable form: each leaf
// becomes PREFIX_SEGMENT_SEGMENT... uppercased. Scalars format plainly,
// nulls as the empty string, scalar sequences as comma-joined items to
// match the comma-split decode hook, and anything deeper as compact JSON.
func ExportEnv(tree *Node, prefix string) map[string]string {
	out := make(map[string]string)
	for _, entry := range tree.Flatten() {
		if entry.Path.Len() == 0 {
			continue
		}
		name := prefix + strings.ToUpper(strings.Join(entry.Path.Segments(), "_"))
		out[name] = envValueString(entry.Node)
	}
	return out
}

func envValueString(n *Node) string {
	switch n.Kind() {
	case KindScalar:
		return scalarString(n.Value())
	case KindSequence:
		parts := make([]string, 0, n.Len())
		for _, item := range n.Items() {
			if item.Kind() != KindScalar {
				return compactJSON(n)
			}
			parts = append(parts, scalarString(item.Value()))
		}
		return strings.Join(parts, ",")
	default:
		return compactJSON(n)
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

func compactJSON(n *Node) string {
	data, err := json.Marshal(n.Interface())
	if err != nil {
		return fmt.Sprintf("%v", n.Interface())
	}
	return string(data)
}
