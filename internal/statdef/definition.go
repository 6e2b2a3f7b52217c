package statdef

import (
	"errors"
	"fmt"
	"slices"

	"github.com/udisondev/statustree/internal/stat"
)

var (
	ErrInvalidRoot       = errors.New("root index out of range")
	ErrCycle             = errors.New("child indices form a cycle")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrParentMismatch    = errors.New("parent and child indices disagree")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrValueWithChildren = errors.New("value node has children")
	ErrOperandCount      = errors.New("operator requires exactly two children")
	ErrInvalidBounds     = errors.New("min value greater than max value")
)

// Definition is the flat, persisted description of a stat tree.
type Definition struct {
	Name      string   `yaml:"name"`
	RootIndex int      `yaml:"root_index"`
	Nodes     []Record `yaml:"nodes"`
}

// New returns an empty definition without a root.
func New(name string) *Definition {
	return &Definition{Name: name, RootIndex: NoIndex}
}

func (d *Definition) SetName(name string)   { d.Name = name }
func (d *Definition) SetRootIndex(index int) { d.RootIndex = index }

func (d *Definition) valid(index int) bool {
	return index >= 0 && index < len(d.Nodes)
}

// AddNode appends r and returns its index.
func (d *Definition) AddNode(r Record) int {
	d.Nodes = append(d.Nodes, r)
	return len(d.Nodes) - 1
}

// ClearNodes drops every record and the root.
func (d *Definition) ClearNodes() {
	d.Nodes = nil
	d.RootIndex = NoIndex
}

// AddChildToNode appends child to parent's child list unless already present
// and points the child's parent index at parent.
func (d *Definition) AddChildToNode(parent, child int) {
	if !d.valid(parent) || !d.valid(child) {
		return
	}
	if slices.Contains(d.Nodes[parent].ChildIndices, child) {
		return
	}
	d.Nodes[parent].ChildIndices = append(d.Nodes[parent].ChildIndices, child)
	d.Nodes[child].ParentIndex = parent
}

// RemoveChildFromNode detaches child from parent.
func (d *Definition) RemoveChildFromNode(parent, child int) {
	if !d.valid(parent) {
		return
	}
	d.Nodes[parent].ChildIndices = removeAll(d.Nodes[parent].ChildIndices, child)
	if d.valid(child) {
		d.Nodes[child].ParentIndex = NoIndex
	}
}

// RemoveNode deletes the record at index. Its children are orphaned, not
// deleted, and every index reference past the removed slot shifts down by one.
func (d *Definition) RemoveNode(index int) {
	if !d.valid(index) {
		return
	}

	removed := d.Nodes[index]
	for _, c := range removed.ChildIndices {
		if d.valid(c) {
			d.Nodes[c].ParentIndex = NoIndex
		}
	}
	if d.valid(removed.ParentIndex) {
		p := &d.Nodes[removed.ParentIndex]
		p.ChildIndices = removeAll(p.ChildIndices, index)
	}

	d.Nodes = slices.Delete(d.Nodes, index, index+1)

	for i := range d.Nodes {
		r := &d.Nodes[i]
		r.ParentIndex = shiftIndex(r.ParentIndex, index)
		r.ChildIndices = removeAll(r.ChildIndices, index)
		for j, c := range r.ChildIndices {
			if c > index {
				r.ChildIndices[j] = c - 1
			}
		}
	}
	d.RootIndex = shiftIndex(d.RootIndex, index)
}

func shiftIndex(ref, removed int) int {
	switch {
	case ref == removed:
		return NoIndex
	case ref > removed:
		return ref - 1
	default:
		return ref
	}
}

func removeAll(s []int, v int) []int {
	return slices.DeleteFunc(s, func(x int) bool { return x == v })
}

// ValueRecords returns the value records in definition order.
func (d *Definition) ValueRecords() []Record {
	var out []Record
	for _, r := range d.Nodes {
		if r.NodeType == NodeValue {
			out = append(out, r)
		}
	}
	return out
}

// Clone returns a deep copy of d.
func (d *Definition) Clone() *Definition {
	c := &Definition{Name: d.Name, RootIndex: d.RootIndex}
	if d.Nodes != nil {
		c.Nodes = make([]Record, len(d.Nodes))
		for i, r := range d.Nodes {
			c.Nodes[i] = r.clone()
		}
	}
	return c
}

// Build instantiates the runtime tree and returns its root.
//
// Nodes are created in a first pass and attached in a second, so records may
// appear in any order. Only forward references (ChildIndices) are consulted;
// out of range child indices are skipped.
func (d *Definition) Build() (stat.Node, error) {
	if !d.valid(d.RootIndex) {
		return nil, fmt.Errorf("building %q: %w (root=%d, nodes=%d)", d.Name, ErrInvalidRoot, d.RootIndex, len(d.Nodes))
	}
	if i, ok := d.findCycle(); ok {
		return nil, fmt.Errorf("building %q: %w through node %d %q", d.Name, ErrCycle, i, d.Nodes[i].Key)
	}

	nodes := make([]stat.Node, len(d.Nodes))
	for i, r := range d.Nodes {
		nodes[i] = r.build()
	}

	for i, r := range d.Nodes {
		for _, c := range r.ChildIndices {
			if d.valid(c) {
				nodes[i].AddChild(nodes[c])
			}
		}
	}

	return nodes[d.RootIndex], nil
}

// findCycle reports a node that lies on a cycle of attachable edges.
// Edges out of value records are ignored since they are never attached.
func (d *Definition) findCycle() (int, bool) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int8, len(d.Nodes))

	var visit func(i int) (int, bool)
	visit = func(i int) (int, bool) {
		state[i] = visiting
		if d.Nodes[i].NodeType == NodeOperator {
			for _, c := range d.Nodes[i].ChildIndices {
				if !d.valid(c) {
					continue
				}
				switch state[c] {
				case visiting:
					return c, true
				case unvisited:
					if at, ok := visit(c); ok {
						return at, true
					}
				}
			}
		}
		state[i] = done
		return 0, false
	}

	for i := range d.Nodes {
		if state[i] == unvisited {
			if at, ok := visit(i); ok {
				return at, true
			}
		}
	}
	return 0, false
}

// Validate checks the definition for every problem it can find, including
// back-reference consistency which Build does not require.
// The returned error joins all problems, or is nil.
func (d *Definition) Validate() error {
	var errs []error
	nodeErr := func(i int, err error, format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		if msg != "" {
			msg = " (" + msg + ")"
		}
		errs = append(errs, fmt.Errorf("node %d %q: %w%s", i, d.Nodes[i].Key, err, msg))
	}

	if !d.valid(d.RootIndex) {
		errs = append(errs, fmt.Errorf("root %d: %w", d.RootIndex, ErrInvalidRoot))
	}

	seen := make(map[string]int, len(d.Nodes))
	for i, r := range d.Nodes {
		if first, dup := seen[r.Key]; dup {
			nodeErr(i, ErrDuplicateKey, "first used by node %d", first)
		} else {
			seen[r.Key] = i
		}

		if r.MinValue > r.MaxValue {
			nodeErr(i, ErrInvalidBounds, "min=%g max=%g", r.MinValue, r.MaxValue)
		}

		if r.NodeType == NodeValue && len(r.ChildIndices) > 0 {
			nodeErr(i, ErrValueWithChildren, "")
		}
		if r.NodeType == NodeOperator && r.OperatorType.RequiresPair() && len(r.ChildIndices) != 2 {
			nodeErr(i, ErrOperandCount, "%s has %d", r.OperatorType, len(r.ChildIndices))
		}

		if r.ParentIndex != NoIndex {
			if !d.valid(r.ParentIndex) {
				nodeErr(i, ErrIndexOutOfRange, "parent %d", r.ParentIndex)
			} else if !slices.Contains(d.Nodes[r.ParentIndex].ChildIndices, i) {
				nodeErr(i, ErrParentMismatch, "parent %d does not list it", r.ParentIndex)
			}
		}

		for _, c := range r.ChildIndices {
			if !d.valid(c) {
				nodeErr(i, ErrIndexOutOfRange, "child %d", c)
				continue
			}
			if d.Nodes[c].ParentIndex != i {
				nodeErr(i, ErrParentMismatch, "child %d has parent %d", c, d.Nodes[c].ParentIndex)
			}
		}
	}

	if i, ok := d.findCycle(); ok {
		nodeErr(i, ErrCycle, "")
	}

	return errors.Join(errs...)
}
