// File: launchconf/tree.go
package launchconf

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind discriminates the three node shapes of a config tree.
type Kind uint8

const (
	KindScalar Kind = iota
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Node is one vertex of a config tree. A node is exactly one of: a scalar
// holding bool, int64, float64, string, or nil; a sequence of child nodes;
// or a mapping from string keys to child nodes. Mappings remember insertion
// order, so a tree loaded from a document round-trips with the author's key
// order intact.
//
// Nodes are not safe for concurrent mutation. Resolved trees are treated as
// read-only; concurrent reads are fine.
type Node struct {
	kind   Kind
	scalar any
	items  []*Node
	fields *orderedmap.OrderedMap[string, *Node]
}

// Scalar wraps a scalar value in a node. Accepted inputs are bool, string,
// nil, any Go integer type, float32/float64, json.Number, and time.Time
// (stored as its RFC 3339 string). Integers normalize to int64 and floats
// to float64. Any other type panics; use FromAny for data of unknown shape.
func Scalar(v any) *Node {
	norm, ok := normalizeScalar(v)
	if !ok {
		panic(fmt.Sprintf("launchconf: unsupported scalar type %T", v))
	}
	return &Node{kind: KindScalar, scalar: norm}
}

// Null returns a scalar node holding nil.
func Null() *Node {
	return &Node{kind: KindScalar, scalar: nil}
}

// Sequence builds a sequence node from items in order.
func Sequence(items ...*Node) *Node {
	n := &Node{kind: KindSequence}
	n.items = append(n.items, items...)
	return n
}

// Mapping returns an empty mapping node.
func Mapping() *Node {
	return &Node{kind: KindMapping, fields: orderedmap.New[string, *Node]()}
}

// normalizeScalar converts v to the closed scalar set. The second result
// is false when v is not scalar-shaped.
func normalizeScalar(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case bool, string:
		return t, true
	case []byte:
		return string(t), true
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return uintToScalar(uint64(t)), true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		return uintToScalar(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	case json.Number:
		return numberScalar(t), true
	case time.Time:
		return t.Format(time.RFC3339), true
	default:
		return nil, false
	}
}

// uintToScalar keeps unsigned values in int64 when they fit and falls back
// to float64 above the int64 range.
func uintToScalar(u uint64) any {
	if u <= math.MaxInt64 {
		return int64(u)
	}
	return float64(u)
}

// numberScalar decodes a json.Number as int64 when it is integral and in
// range, otherwise as float64. Parse failure degrades to the raw string.
func numberScalar(num json.Number) any {
	if i, err := num.Int64(); err == nil {
		return i
	}
	if f, err := num.Float64(); err == nil {
		return f
	}
	return num.String()
}

// FromAny converts plainly decoded Go data (the shapes produced by the
// yaml, toml, and json decoders) into a tree. Maps become mappings with
// keys in sorted order, since Go maps carry no order of their own; use
// ParseDocument when source order matters. Unsupported types and non-string
// map keys are errors.
func FromAny(v any) (*Node, error) {
	switch t := v.(type) {
	case *Node:
		return t, nil
	case []any:
		n := &Node{kind: KindSequence, items: make([]*Node, 0, len(t))}
		for i, item := range t {
			child, err := FromAny(item)
			if err != nil {
				return nil, fmt.Errorf("sequence index %d: %w", i, err)
			}
			n.items = append(n.items, child)
		}
		return n, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		n := Mapping()
		for _, k := range keys {
			child, err := FromAny(t[k])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			n.fields.Set(k, child)
		}
		return n, nil
	case map[any]any:
		return nil, fmt.Errorf("mapping with non-string keys is not supported")
	default:
		norm, ok := normalizeScalar(v)
		if !ok {
			return nil, fmt.Errorf("unsupported value type %T", v)
		}
		return &Node{kind: KindScalar, scalar: norm}, nil
	}
}

// Kind returns the node's shape.
func (n *Node) Kind() Kind {
	return n.kind
}

// IsNull reports whether n is the null scalar.
func (n *Node) IsNull() bool {
	return n.kind == KindScalar && n.scalar == nil
}

// Value returns the scalar payload (bool, int64, float64, string, or nil).
// It returns nil for sequences and mappings; check Kind first when that
// distinction matters.
func (n *Node) Value() any {
	if n.kind != KindScalar {
		return nil
	}
	return n.scalar
}

// Items returns the backing slice of a sequence node. Callers must not
// modify it; Clone first when mutation is needed. Non-sequences return nil.
func (n *Node) Items() []*Node {
	if n.kind != KindSequence {
		return nil
	}
	return n.items
}

// Append adds items to a sequence node. It panics on other kinds.
func (n *Node) Append(items ...*Node) {
	if n.kind != KindSequence {
		panic("launchconf: Append on non-sequence node")
	}
	n.items = append(n.items, items...)
}

// Len returns the item count of a sequence, the field count of a mapping,
// and 0 for scalars.
func (n *Node) Len() int {
	switch n.kind {
	case KindSequence:
		return len(n.items)
	case KindMapping:
		return n.fields.Len()
	default:
		return 0
	}
}

// Keys returns a mapping's keys in insertion order. Non-mappings return nil.
func (n *Node) Keys() []string {
	if n.kind != KindMapping {
		return nil
	}
	keys := make([]string, 0, n.fields.Len())
	for pair := n.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Get looks up a direct child of a mapping node.
func (n *Node) Get(key string) (*Node, bool) {
	if n.kind != KindMapping {
		return nil, false
	}
	return n.fields.Get(key)
}

// Set inserts or replaces a direct child of a mapping node. A new key is
// appended at the end of the order; replacing keeps the key's position.
// It panics on other kinds.
func (n *Node) Set(key string, child *Node) {
	if n.kind != KindMapping {
		panic("launchconf: Set on non-mapping node")
	}
	n.fields.Set(key, child)
}

// Delete removes a direct child of a mapping node, reporting whether the
// key was present.
func (n *Node) Delete(key string) bool {
	if n.kind != KindMapping {
		return false
	}
	_, present := n.fields.Delete(key)
	return present
}

// At descends from n through mapping children segment by segment. The
// empty path addresses n itself. Descent fails when a segment is absent
// or the current node is not a mapping.
func (n *Node) At(p Path) (*Node, bool) {
	cur := n
	for i := 0; i < p.Len(); i++ {
		if cur.kind != KindMapping {
			return nil, false
		}
		child, ok := cur.fields.Get(p.Segment(i))
		if !ok {
			return nil, false
		}
		cur = child
	}
	return cur, true
}

// Has reports whether the path addresses a node in the tree.
func (n *Node) Has(p Path) bool {
	_, ok := n.At(p)
	return ok
}

// Lookup is At for a dotted path string. Malformed paths report absent.
func (n *Node) Lookup(path string) (*Node, bool) {
	if path == "" {
		return n, true
	}
	p, err := ParsePath(path)
	if err != nil {
		return nil, false
	}
	return n.At(p)
}

// Clone returns a deep copy sharing no nodes with n.
func (n *Node) Clone() *Node {
	switch n.kind {
	case KindScalar:
		return &Node{kind: KindScalar, scalar: n.scalar}
	case KindSequence:
		out := &Node{kind: KindSequence, items: make([]*Node, len(n.items))}
		for i, item := range n.items {
			out.items[i] = item.Clone()
		}
		return out
	case KindMapping:
		out := Mapping()
		for pair := n.fields.Oldest(); pair != nil; pair = pair.Next() {
			out.fields.Set(pair.Key, pair.Value.Clone())
		}
		return out
	default:
		panic(fmt.Sprintf("launchconf: corrupt node kind %d", n.kind))
	}
}

// Equal reports deep structural equality: same kinds, same scalar values,
// same sequence items in order, same mapping fields in insertion order.
// Scalars compare by type and value, so int64(1) and float64(1) differ.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.kind != other.kind {
		return false
	}
	switch n.kind {
	case KindScalar:
		return n.scalar == other.scalar
	case KindSequence:
		if len(n.items) != len(other.items) {
			return false
		}
		for i := range n.items {
			if !n.items[i].Equal(other.items[i]) {
				return false
			}
		}
		return true
	case KindMapping:
		if n.fields.Len() != other.fields.Len() {
			return false
		}
		op := other.fields.Oldest()
		for pair := n.fields.Oldest(); pair != nil; pair = pair.Next() {
			if op == nil || pair.Key != op.Key || !pair.Value.Equal(op.Value) {
				return false
			}
			op = op.Next()
		}
		return true
	default:
		return false
	}
}

// Interface converts the tree to plain Go data: scalars as themselves,
// sequences as []any, mappings as map[string]any. Insertion order is lost;
// use EncodeDocument to serialize with order intact.
func (n *Node) Interface() any {
	switch n.kind {
	case KindScalar:
		return n.scalar
	case KindSequence:
		out := make([]any, len(n.items))
		for i, item := range n.items {
			out[i] = item.Interface()
		}
		return out
	case KindMapping:
		out := make(map[string]any, n.fields.Len())
		for pair := n.fields.Oldest(); pair != nil; pair = pair.Next() {
			out[pair.Key] = pair.Value.Interface()
		}
		return out
	default:
		return nil
	}
}

// FlatEntry is one leaf produced by Flatten.
type FlatEntry struct {
	Path Path
	Node *Node
}

// Flatten walks the tree depth first in insertion order and returns its
// leaves: scalars, sequences, and empty mappings, each with its full path.
// Flattening a non-mapping root yields that node under the empty path.
func (n *Node) Flatten() []FlatEntry {
	var out []FlatEntry
	n.flattenInto(nil, &out)
	return out
}

func (n *Node) flattenInto(segs []string, out *[]FlatEntry) {
	if n.kind == KindMapping && n.fields.Len() > 0 {
		for pair := n.fields.Oldest(); pair != nil; pair = pair.Next() {
			pair.Value.flattenInto(append(segs, pair.Key), out)
		}
		return
	}
	*out = append(*out, FlatEntry{Path: prefixOf(segs, len(segs)), Node: n})
}
