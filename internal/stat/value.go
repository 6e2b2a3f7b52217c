package stat

import "log/slog"

// Value is a leaf node holding a clamped literal.
type Value struct {
	base
	value float64
}

// NewValue creates a value node with the given key and initial literal.
// The initial literal is stored as-is; bounds apply from the first write.
func NewValue(key string, initial float64) *Value {
	return &Value{base: newBase(key), value: initial}
}

func (v *Value) Value() float64 { return v.value }

// SetValue clamps x to the node's bounds, notifies observers and marks every
// ancestor dirty.
func (v *Value) SetValue(x float64) {
	previous := v.value
	v.value = v.clamp(x)
	v.notify(v, previous, v.value)
	v.MarkDirty()
}

// AddValue adds delta to the current literal. Same semantics as SetValue.
func (v *Value) AddValue(delta float64) {
	v.SetValue(v.value + delta)
}

func (v *Value) FindChild(key string) Node {
	if v.key == key {
		return v
	}
	return nil
}

// AddChild is illegal on a value node: it logs and leaves the tree unchanged.
func (v *Value) AddChild(child Node) {
	childKey := ""
	if child != nil {
		childKey = child.Key()
	}
	slog.Error("value node cannot have children", "key", v.key, "child", childKey)
	recorder.StructuralError(ErrKindValueChild, v.key)
}

// MarkDirty forwards to the parent; a literal is never stale itself.
func (v *Value) MarkDirty() {
	if v.parent != nil {
		v.parent.MarkDirty()
	}
}

// SetConstraint overwrites the bounds. The stored literal is not re-clamped
// until the next write.
func (v *Value) SetConstraint(minValue, maxValue float64) {
	v.minValue = minValue
	v.maxValue = maxValue
}
