package statdef

import (
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/statustree/internal/stat"
)

// NoIndex marks an absent parent or root reference.
const NoIndex = -1

// NodeType selects which runtime node a record builds.
type NodeType int8

const (
	NodeValue NodeType = iota
	NodeOperator
)

func (t NodeType) String() string {
	switch t {
	case NodeValue:
		return "value"
	case NodeOperator:
		return "operator"
	default:
		return fmt.Sprintf("NodeType(%d)", int8(t))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t NodeType) MarshalText() ([]byte, error) {
	if t != NodeValue && t != NodeOperator {
		return nil, fmt.Errorf("invalid node type %d", int8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *NodeType) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "value":
		*t = NodeValue
	case "operator":
		*t = NodeOperator
	default:
		return fmt.Errorf("unknown node type %q", text)
	}
	return nil
}

// Record is the flat, serializable form of one node.
// Value is meaningful only for value records and doubles as their reset value;
// OperatorType is meaningful only for operator records. Position belongs to
// the authoring tool and is ignored when building.
type Record struct {
	Key          string            `yaml:"key"`
	NodeType     NodeType          `yaml:"node_type"`
	Value        float64           `yaml:"value"`
	OperatorType stat.OperatorType `yaml:"operator_type"`
	MinValue     float64           `yaml:"min_value"`
	MaxValue     float64           `yaml:"max_value"`
	Position     [2]float64        `yaml:"position,flow"`
	ChildIndices []int             `yaml:"child_indices,flow,omitempty"`
	ParentIndex  int               `yaml:"parent_index"`
}

// NewRecord returns a record with open bounds and no parent.
func NewRecord(key string, t NodeType) Record {
	return Record{
		Key:          key,
		NodeType:     t,
		OperatorType: stat.OpAdd,
		MinValue:     math.Inf(-1),
		MaxValue:     math.Inf(1),
		ParentIndex:  NoIndex,
	}
}

// ValueRecord is a shorthand for a value record with an initial literal.
func ValueRecord(key string, v float64) Record {
	r := NewRecord(key, NodeValue)
	r.Value = v
	return r
}

// OperatorRecord is a shorthand for an operator record.
func OperatorRecord(key string, op stat.OperatorType) Record {
	r := NewRecord(key, NodeOperator)
	r.OperatorType = op
	return r
}

// WithConstraint returns a copy of r with the given bounds.
func (r Record) WithConstraint(minValue, maxValue float64) Record {
	r.MinValue = minValue
	r.MaxValue = maxValue
	return r
}

// UnmarshalYAML decodes over NewRecord defaults so that omitted bounds stay
// open and an omitted parent_index means no parent.
func (r *Record) UnmarshalYAML(node *yaml.Node) error {
	type plain Record
	p := plain(NewRecord("", NodeValue))
	if err := node.Decode(&p); err != nil {
		return err
	}
	*r = Record(p)
	return nil
}

func (r Record) clone() Record {
	if r.ChildIndices != nil {
		r.ChildIndices = append([]int(nil), r.ChildIndices...)
	}
	return r
}

func (r Record) build() stat.Node {
	var n stat.Node
	if r.NodeType == NodeValue {
		n = stat.NewValue(r.Key, r.Value)
	} else {
		n = stat.NewOperator(r.Key, r.OperatorType)
	}
	n.SetConstraint(r.MinValue, r.MaxValue)
	return n
}
