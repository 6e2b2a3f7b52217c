package model

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/udisondev/statustree/internal/stat"
	"github.com/udisondev/statustree/internal/statdef"
)

// ErrNoDefinition is returned when a data driven tree is built without a definition.
var ErrNoDefinition = errors.New("stat tree definition not set")

// DataDrivenStat builds its tree from a statdef.Definition.
type DataDrivenStat[O any] struct {
	*EntityStat[O]

	def *statdef.Definition
}

// NewDataDrivenStat returns a DataDrivenStat for def. def may be nil and set later.
func NewDataDrivenStat[O any](def *statdef.Definition) *DataDrivenStat[O] {
	d := &DataDrivenStat[O]{def: def}
	d.EntityStat = NewEntityStat[O](d)
	return d
}

func (d *DataDrivenStat[O]) Definition() *statdef.Definition { return d.def }

// SetDefinition replaces the definition. When the stat is already set up the
// tree is rebuilt immediately and previous values are discarded; on failure
// the old tree is kept.
func (d *DataDrivenStat[O]) SetDefinition(def *statdef.Definition) error {
	prev := d.def
	d.def = def
	if !d.Ready() {
		return nil
	}
	root, err := d.MakeTree()
	if err != nil {
		d.def = prev
		return err
	}
	d.setRoot(root)
	return nil
}

// MakeTree implements TreeMaker.
func (d *DataDrivenStat[O]) MakeTree() (stat.Node, error) {
	if d.def == nil {
		slog.Error("stat tree definition not set")
		return nil, ErrNoDefinition
	}
	root, err := d.def.Build()
	if err != nil {
		slog.Error("building stat tree failed", "tree", d.def.Name, "err", err)
		return nil, err
	}
	return root, nil
}

// ResetValues restores every value node to the literal of its record.
func (d *DataDrivenStat[O]) ResetValues() {
	if d.def == nil {
		return
	}
	for _, r := range d.def.ValueRecords() {
		d.SetValueToNode(r.Key, r.Value)
	}
}

// RandomAdjust adds a random delta in [-10, 10) to a randomly chosen value
// node and returns the node key and delta. ok is false when the definition
// has no value records.
func (d *DataDrivenStat[O]) RandomAdjust(rng *rand.Rand) (key string, delta float64, ok bool) {
	if d.def == nil {
		return "", 0, false
	}
	values := d.def.ValueRecords()
	if len(values) == 0 {
		return "", 0, false
	}
	key = values[rng.IntN(len(values))].Key
	delta = rng.Float64()*20 - 10
	return key, delta, d.AddValueToNode(key, delta)
}

// ReportValue is a node value that survives JSON encoding when it is not
// finite: NaN and the infinities encode as the strings "NaN", "+Inf" and "-Inf".
type ReportValue float64

// MarshalJSON implements json.Marshaler.
func (v ReportValue) MarshalJSON() ([]byte, error) {
	f := float64(v)
	switch {
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	case math.IsInf(f, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Inf"`), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *ReportValue) UnmarshalJSON(b []byte) error {
	s := string(b)
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("decoding report value %s: %w", b, err)
	}
	*v = ReportValue(f)
	return nil
}

// NodeReport is one row of Report.
type NodeReport struct {
	Index    int              `json:"index"`
	Key      string           `json:"key"`
	NodeType statdef.NodeType `json:"node_type"`
	Value    ReportValue      `json:"value"`
	Children int              `json:"children"`
	Found    bool             `json:"found"`
}

// Report lists every record of the definition with the current value of the
// runtime node carrying its key.
func (d *DataDrivenStat[O]) Report() []NodeReport {
	if d.def == nil {
		return nil
	}
	out := make([]NodeReport, 0, len(d.def.Nodes))
	for i, r := range d.def.Nodes {
		row := NodeReport{Index: i, Key: r.Key, NodeType: r.NodeType, Children: len(r.ChildIndices)}
		if n := d.FindNode(r.Key); n != nil {
			row.Value = ReportValue(n.Value())
			row.Found = true
		}
		out = append(out, row)
	}
	return out
}

// String summarizes the tree for logs.
func (d *DataDrivenStat[O]) String() string {
	name := "<none>"
	if d.def != nil {
		name = d.def.Name
	}
	return fmt.Sprintf("%s = %g", name, d.Value())
}
