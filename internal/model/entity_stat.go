package model

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/udisondev/statustree/internal/stat"
)

var (
	// ErrAlreadySetup is returned by a second Setup call. Rebuilding a data
	// driven tree goes through SetDefinition instead.
	ErrAlreadySetup = errors.New("entity stat already set up")

	// ErrNotSetup is returned by operations that need a built tree.
	ErrNotSetup = errors.New("entity stat not set up")
)

// TreeMaker produces the root node of an entity's stat tree.
type TreeMaker interface {
	MakeTree() (stat.Node, error)
}

// Preparer is an optional hook run by Setup after the owner is stored and
// before MakeTree.
type Preparer[O any] interface {
	Prepare(owner O)
}

// EntityStat binds one stat tree to its owner and exposes named access to it.
// Concrete stat trees embed *EntityStat and pass themselves as the TreeMaker.
//
// An EntityStat is not safe for concurrent use.
type EntityStat[O any] struct {
	owner O
	root  stat.Node
	maker TreeMaker
	ready bool
}

// NewEntityStat returns an EntityStat whose tree is produced by maker.
// When maker also implements Preparer[O], Setup calls it first.
func NewEntityStat[O any](maker TreeMaker) *EntityStat[O] {
	return &EntityStat[O]{maker: maker}
}

// Setup stores owner and builds the tree. It runs once per EntityStat.
func (e *EntityStat[O]) Setup(owner O) error {
	if e.ready {
		return ErrAlreadySetup
	}
	e.owner = owner

	if p, ok := e.maker.(Preparer[O]); ok {
		p.Prepare(owner)
	}

	root, err := e.maker.MakeTree()
	if err != nil {
		return fmt.Errorf("making stat tree: %w", err)
	}
	e.root = root
	e.ready = true
	return nil
}

func (e *EntityStat[O]) Owner() O        { return e.owner }
func (e *EntityStat[O]) Root() stat.Node { return e.root }
func (e *EntityStat[O]) Ready() bool     { return e.ready }

func (e *EntityStat[O]) setRoot(root stat.Node) { e.root = root }

// Value returns the root value, or 0 before Setup.
func (e *EntityStat[O]) Value() float64 {
	if e.root == nil {
		return 0
	}
	return e.root.Value()
}

// FindNode looks key up from the root. It returns nil when absent.
func (e *EntityStat[O]) FindNode(key string) stat.Node {
	if e.root == nil {
		return nil
	}
	return e.root.FindChild(key)
}

func (e *EntityStat[O]) valueNode(key string) (*stat.Value, bool) {
	v, ok := e.FindNode(key).(*stat.Value)
	if !ok {
		slog.Warn("stat value node not found", "key", key)
		stat.ReportMissingKey(key)
	}
	return v, ok
}

// AddValueToNode adds delta to the value node named key.
// It reports whether such a node exists.
func (e *EntityStat[O]) AddValueToNode(key string, delta float64) bool {
	v, ok := e.valueNode(key)
	if ok {
		v.AddValue(delta)
	}
	return ok
}

// SetValueToNode sets the value node named key.
// It reports whether such a node exists.
func (e *EntityStat[O]) SetValueToNode(key string, x float64) bool {
	v, ok := e.valueNode(key)
	if ok {
		v.SetValue(x)
	}
	return ok
}

// NodeValue returns the value of any node named key, or 0 when absent.
func (e *EntityStat[O]) NodeValue(key string) float64 {
	n := e.FindNode(key)
	if n == nil {
		return 0
	}
	return n.Value()
}

// Snapshot returns the current literal of every value node, keyed by node key.
// With duplicate keys the first node in lookup order wins.
func (e *EntityStat[O]) Snapshot() map[string]float64 {
	out := make(map[string]float64)
	stat.Walk(e.root, func(_ int, n stat.Node) bool {
		if v, ok := n.(*stat.Value); ok {
			if _, seen := out[v.Key()]; !seen {
				out[v.Key()] = v.Value()
			}
		}
		return true
	})
	return out
}

// Restore writes values from a Snapshot back into the tree. Keys that no
// longer name a value node are skipped and counted in the result.
func (e *EntityStat[O]) Restore(values map[string]float64) (skipped int, err error) {
	if e.root == nil {
		return 0, ErrNotSetup
	}
	for key, x := range values {
		if v, ok := e.root.FindChild(key).(*stat.Value); ok {
			v.SetValue(x)
			continue
		}
		slog.Debug("skipping stale stat snapshot entry", "key", key)
		skipped++
	}
	return skipped, nil
}

// Dump renders the tree with one node per line, indented by depth.
func (e *EntityStat[O]) Dump() string {
	var b strings.Builder
	stat.Walk(e.root, func(depth int, n stat.Node) bool {
		b.WriteString(strings.Repeat("  ", depth))
		switch n := n.(type) {
		case *stat.Operator:
			fmt.Fprintf(&b, "%s (%s) = %g\n", n.Key(), n.Op(), n.Value())
		default:
			fmt.Fprintf(&b, "%s = %g\n", n.Key(), n.Value())
		}
		return true
	})
	return b.String()
}

// DebugInfo logs the root value and every node at debug level.
func (e *EntityStat[O]) DebugInfo() {
	if e.root == nil {
		slog.Debug("stat tree not initialized")
		return
	}
	slog.Debug("stat tree", "root", e.root.Key(), "value", e.root.Value(), "nodes", stat.Count(e.root))
	stat.Walk(e.root, func(depth int, n stat.Node) bool {
		slog.Debug("stat node", "key", n.Key(), "depth", depth, "value", n.Value())
		return true
	})
}
