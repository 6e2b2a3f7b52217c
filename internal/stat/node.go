package stat

import (
	"fmt"
	"math"
	"strings"
)

// OperatorType defines how an Operator folds its children.
type OperatorType int8

const (
	OpAdd OperatorType = iota
	OpSubtract
	OpMultiply
	OpDivide
)

var operatorNames = [...]string{
	OpAdd:      "add",
	OpSubtract: "subtract",
	OpMultiply: "multiply",
	OpDivide:   "divide",
}

func (o OperatorType) String() string {
	if o < 0 || int(o) >= len(operatorNames) {
		return fmt.Sprintf("OperatorType(%d)", int8(o))
	}
	return operatorNames[o]
}

// Valid reports whether o is one of the four known operators.
func (o OperatorType) Valid() bool {
	return o >= OpAdd && o <= OpDivide
}

// RequiresPair reports whether the operator is only defined for exactly two operands.
func (o OperatorType) RequiresPair() bool {
	return o == OpSubtract || o == OpDivide
}

// MarshalText implements encoding.TextMarshaler.
func (o OperatorType) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("invalid operator type %d", int8(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Matching is case-insensitive.
func (o *OperatorType) UnmarshalText(text []byte) error {
	op, err := ParseOperatorType(string(text))
	if err != nil {
		return err
	}
	*o = op
	return nil
}

// ParseOperatorType parses an operator name ("add", "Subtract", ...).
func ParseOperatorType(s string) (OperatorType, error) {
	for i, name := range operatorNames {
		if strings.EqualFold(s, name) {
			return OperatorType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown operator type %q", s)
}

// ChangeFunc is called after a node's value is written.
type ChangeFunc func(node Node, previous, current float64)

// Node is one element of a stat tree: either a *Value leaf or an *Operator.
// The set of implementations is closed.
type Node interface {
	Key() string
	SetKey(key string)

	// Value returns the node's current value, recomputing it first when stale.
	Value() float64

	// Parent returns the operator this node is attached to, or nil for a root.
	Parent() *Operator

	// FindChild searches depth-first (self first, then children in order)
	// and returns the first node with the given key, or nil.
	FindChild(key string) Node

	AddChild(child Node)
	MarkDirty()

	SetConstraint(minValue, maxValue float64)
	Constraint() (minValue, maxValue float64)

	// OnChange registers an observer for direct value writes.
	OnChange(fn ChangeFunc)

	setParent(p *Operator)
}

// base holds the attributes shared by both node kinds.
type base struct {
	key       string
	minValue  float64
	maxValue  float64
	parent    *Operator
	observers []ChangeFunc
}

func newBase(key string) base {
	return base{
		key:      key,
		minValue: math.Inf(-1),
		maxValue: math.Inf(1),
	}
}

func (b *base) Key() string       { return b.key }
func (b *base) SetKey(key string) { b.key = key }
func (b *base) Parent() *Operator { return b.parent }

func (b *base) setParent(p *Operator) { b.parent = p }

func (b *base) OnChange(fn ChangeFunc) {
	if fn != nil {
		b.observers = append(b.observers, fn)
	}
}

func (b *base) Constraint() (float64, float64) {
	return b.minValue, b.maxValue
}

func (b *base) clamp(v float64) float64 {
	if v < b.minValue {
		return b.minValue
	}
	if v > b.maxValue {
		return b.maxValue
	}
	return v
}

func (b *base) notify(n Node, previous, current float64) {
	for _, fn := range b.observers {
		fn(n, previous, current)
	}
}

// Walk visits n and its descendants depth-first in child order.
// Returning false from fn skips the visited node's children.
func Walk(n Node, fn func(depth int, n Node) bool) {
	walk(n, 0, fn)
}

func walk(n Node, depth int, fn func(int, Node) bool) {
	if n == nil || !fn(depth, n) {
		return
	}
	if op, ok := n.(*Operator); ok {
		for _, c := range op.children {
			walk(c, depth+1, fn)
		}
	}
}

// Count returns the number of nodes reachable from n.
func Count(n Node) int {
	total := 0
	Walk(n, func(int, Node) bool {
		total++
		return true
	})
	return total
}
