// File: launchconf/merge.go
package launchconf

import (
	"fmt"
)

// Assignment is a typed write: place Value at Path. Overrides become
// assignments after coercion; assignments can also be built directly when
// the value is already typed.
type Assignment struct {
	Path  Path
	Value *Node
}

// TraceStep records one applied assignment.
type TraceStep struct {
	Index int    // position in the assignment list
	Path  Path
	Raw   string // original command-line spelling, empty for typed assignments
	Value *Node
}

// Trace is the provenance record of a merge. Every assignment appears,
// including ones later shadowed at the same path, so a caller can report
// both the winning write and the spellings it displaced.
type Trace struct {
	steps []TraceStep
	byKey map[string][]int
}

func newTrace(capacity int) *Trace {
	return &Trace{
		steps: make([]TraceStep, 0, capacity),
		byKey: make(map[string][]int, capacity),
	}
}

func (t *Trace) add(step TraceStep) {
	key := step.Path.Key()
	t.byKey[key] = append(t.byKey[key], len(t.steps))
	t.steps = append(t.steps, step)
}

// Steps returns all applied assignments in application order.
func (t *Trace) Steps() []TraceStep {
	return t.steps
}

// Len returns the number of applied assignments.
func (t *Trace) Len() int {
	return len(t.steps)
}

// Origin returns the winning (last) write to the exact path, if any.
func (t *Trace) Origin(p Path) (TraceStep, bool) {
	idxs := t.byKey[p.Key()]
	if len(idxs) == 0 {
		return TraceStep{}, false
	}
	return t.steps[idxs[len(idxs)-1]], true
}

// History returns every write to the exact path in application order. The
// last entry is the winner.
func (t *Trace) History(p Path) []TraceStep {
	idxs := t.byKey[p.Key()]
	if len(idxs) == 0 {
		return nil
	}
	out := make([]TraceStep, len(idxs))
	for i, idx := range idxs {
		out[i] = t.steps[idx]
	}
	return out
}

// Apply coerces each override and applies the typed values to a deep copy
// of base, returning the merged tree and its trace. The base tree is never
// modified, even on failure, and a failure returns no tree at all: either
// every override lands or none do. A nil base starts from an empty mapping.
//
// Application order is the slice order. Later writes to the same path win;
// absent intermediate mappings are created on demand; descending through a
// scalar or sequence is ErrPathConflict. Writing to a path whose final
// node already exists replaces that node unconditionally, whatever its
// kind, so a scalar can become a subtree and a subtree can collapse to a
// scalar.
func Apply(base *Node, overrides []Override) (*Node, *Trace, error) {
	assigns := make([]Assignment, len(overrides))
	for i, ov := range overrides {
		value, err := Coerce(ov.Raw)
		if err != nil {
			return nil, nil, fmt.Errorf("override %s: %w", ov.Path.String(), err)
		}
		assigns[i] = Assignment{Path: ov.Path, Value: value}
	}
	merged, trace, err := ApplyAssignments(base, assigns)
	if err != nil {
		return nil, nil, err
	}
	for i := range trace.steps {
		trace.steps[i].Raw = overrides[i].Raw
	}
	return merged, trace, nil
}

// ApplyAssignments is Apply for values that are already typed. The same
// atomicity and conflict rules hold.
func ApplyAssignments(base *Node, assigns []Assignment) (*Node, *Trace, error) {
	var merged *Node
	if base == nil {
		merged = Mapping()
	} else {
		merged = base.Clone()
	}
	trace := newTrace(len(assigns))
	for i, a := range assigns {
		if a.Path.Len() == 0 {
			return nil, nil, fmt.Errorf("assignment %d: %w: empty path", i, ErrMalformedPath)
		}
		parent, err := descendForWrite(merged, a.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("assignment %d (%s): %w", i, a.Path.String(), err)
		}
		parent.Set(a.Path.Segment(a.Path.Len()-1), a.Value.Clone())
		trace.add(TraceStep{Index: i, Path: a.Path, Value: a.Value})
	}
	return merged, trace, nil
}

// descendForWrite walks root toward the parent of p's final segment,
// creating empty mappings for absent intermediates. Auto-vivified nodes
// gain no keys beyond the walked segment. An existing non-mapping node
// anywhere on the walk, the parent included, stops the write with a
// ConflictError naming the blocking node.
func descendForWrite(root *Node, p Path) (*Node, error) {
	cur := root
	for i := 0; i < p.Len()-1; i++ {
		if cur.Kind() != KindMapping {
			return nil, &ConflictError{Path: prefixOf(p.segs, i), Found: cur.Kind()}
		}
		seg := p.Segment(i)
		child, ok := cur.Get(seg)
		if !ok {
			child = Mapping()
			cur.Set(seg, child)
		}
		cur = child
	}
	if cur.Kind() != KindMapping {
		return nil, &ConflictError{Path: prefixOf(p.segs, p.Len()-1), Found: cur.Kind()}
	}
	return cur, nil
}

// Overlay deep-merges two trees at the document level: mapping fields
// combine recursively with overlay winning, and any other kind pairing
// takes the overlay node wholesale. Base keys keep their order; keys new
// in the overlay append in overlay order. Neither input is modified. This
// is how file content lands on top of programmatic defaults, as opposed
// to Apply, which writes individual dotted paths.
func Overlay(base, overlay *Node) *Node {
	if overlay == nil {
		if base == nil {
			return Mapping()
		}
		return base.Clone()
	}
	if base == nil {
		return overlay.Clone()
	}
	if base.Kind() != KindMapping || overlay.Kind() != KindMapping {
		return overlay.Clone()
	}
	out := base.Clone()
	for pair := overlay.fields.Oldest(); pair != nil; pair = pair.Next() {
		if existing, ok := out.Get(pair.Key); ok &&
			existing.Kind() == KindMapping && pair.Value.Kind() == KindMapping {
			out.Set(pair.Key, Overlay(existing, pair.Value))
			continue
		}
		out.Set(pair.Key, pair.Value.Clone())
	}
	return out
}
