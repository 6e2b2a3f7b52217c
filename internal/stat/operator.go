package stat

import "log/slog"

// Operator folds its children left to right with a single arithmetic operator.
// The result is cached until a descendant marks the operator dirty.
type Operator struct {
	base
	op       OperatorType
	children []Node
	cached   float64
	dirty    bool
}

// NewOperator creates an operator node with no children.
func NewOperator(key string, op OperatorType) *Operator {
	return &Operator{base: newBase(key), op: op, dirty: true}
}

func (o *Operator) Op() OperatorType { return o.op }

// Children returns the children in evaluation order. The slice must not be modified.
func (o *Operator) Children() []Node { return o.children }

// Dirty reports whether the next Value call will recompute.
func (o *Operator) Dirty() bool { return o.dirty }

func (o *Operator) Value() float64 {
	if o.dirty {
		o.dirty = false
		o.cached = o.compute()
		recorder.Recomputed(o.key)
	}
	return o.cached
}

// compute never panics: malformed and empty operators resolve to exactly 0,
// bypassing the constraint.
func (o *Operator) compute() float64 {
	n := len(o.children)
	if o.op.RequiresPair() && n != 2 {
		slog.Error("operator requires exactly two children",
			"key", o.key,
			"operator", o.op.String(),
			"children", n)
		recorder.StructuralError(ErrKindOperandCount, o.key)
		return 0
	}
	if n == 0 {
		return 0
	}

	acc := o.children[0].Value()
	for _, c := range o.children[1:] {
		x := c.Value()
		switch o.op {
		case OpAdd:
			acc += x
		case OpSubtract:
			acc -= x
		case OpMultiply:
			acc *= x
		case OpDivide:
			if x == 0 {
				slog.Warn("division by zero in stat operator", "key", o.key, "divisor", c.Key())
			}
			acc /= x
		}
	}
	return o.clamp(acc)
}

// Override writes the cache directly and notifies observers. It bypasses
// recomputation and leaves the dirty flag untouched, so a pending recompute
// still replaces the overridden value on the next read.
func (o *Operator) Override(x float64) {
	previous := o.cached
	o.cached = x
	o.notify(o, previous, x)
}

func (o *Operator) FindChild(key string) Node {
	if o.key == key {
		return o
	}
	for _, c := range o.children {
		if found := c.FindChild(key); found != nil {
			return found
		}
	}
	return nil
}

// AddChild appends child to the evaluation order and attaches it to o.
func (o *Operator) AddChild(child Node) {
	if child == nil {
		slog.Warn("ignoring nil child", "key", o.key)
		return
	}
	o.children = append(o.children, child)
	child.setParent(o)
	child.MarkDirty()
}

// MarkDirty flags o and every ancestor for recomputation.
func (o *Operator) MarkDirty() {
	o.dirty = true
	if o.parent != nil {
		o.parent.MarkDirty()
	}
}

// SetConstraint overwrites the bounds and invalidates the cache so the next
// read is clamped to them.
func (o *Operator) SetConstraint(minValue, maxValue float64) {
	o.minValue = minValue
	o.maxValue = maxValue
	o.MarkDirty()
}
