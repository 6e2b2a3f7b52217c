package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/statustree/internal/stat"
)

// hookedTree records hook order and builds a tiny Add tree.
type hookedTree struct {
	calls []string
	owner string
	err   error
}

func (h *hookedTree) Prepare(owner string) {
	h.calls = append(h.calls, "prepare")
	h.owner = owner
}

func (h *hookedTree) MakeTree() (stat.Node, error) {
	h.calls = append(h.calls, "make")
	if h.err != nil {
		return nil, h.err
	}
	root := stat.NewOperator("sum", stat.OpAdd)
	root.AddChild(stat.NewValue("a", 1))
	root.AddChild(stat.NewValue("b", 2))
	return root, nil
}

func TestEntityStat_SetupRunsHooksInOrder(t *testing.T) {
	h := &hookedTree{}
	e := NewEntityStat[string](h)

	require.NoError(t, e.Setup("hero"))

	assert.Equal(t, []string{"prepare", "make"}, h.calls)
	assert.Equal(t, "hero", h.owner)
	assert.Equal(t, "hero", e.Owner())
	assert.True(t, e.Ready())
	assert.Equal(t, 3.0, e.Value())
}

func TestEntityStat_SetupTwice(t *testing.T) {
	e := NewEntityStat[string](&hookedTree{})
	require.NoError(t, e.Setup("hero"))

	err := e.Setup("villain")
	assert.ErrorIs(t, err, ErrAlreadySetup)
	assert.Equal(t, "hero", e.Owner())
}

func TestEntityStat_SetupFailure(t *testing.T) {
	boom := errors.New("boom")
	e := NewEntityStat[string](&hookedTree{err: boom})

	err := e.Setup("hero")
	assert.ErrorIs(t, err, boom)
	assert.False(t, e.Ready())
	assert.Equal(t, 0.0, e.Value())
	assert.Nil(t, e.FindNode("a"))
}

func TestEntityStat_NamedMutation(t *testing.T) {
	e := NewEntityStat[string](&hookedTree{})
	require.NoError(t, e.Setup("hero"))

	assert.True(t, e.AddValueToNode("a", 4))
	assert.Equal(t, 7.0, e.Value())

	assert.True(t, e.SetValueToNode("b", 10))
	assert.Equal(t, 15.0, e.Value())

	assert.False(t, e.AddValueToNode("missing", 1))
	assert.False(t, e.SetValueToNode("sum", 1), "operators are not value nodes")
	assert.Equal(t, 15.0, e.Value())

	assert.Equal(t, 5.0, e.NodeValue("a"))
	assert.Equal(t, 0.0, e.NodeValue("missing"))
}

func TestEntityStat_SnapshotRestore(t *testing.T) {
	e := NewEntityStat[string](&hookedTree{})
	require.NoError(t, e.Setup("hero"))
	e.AddValueToNode("a", 9)

	snap := e.Snapshot()
	assert.Equal(t, map[string]float64{"a": 10, "b": 2}, snap)

	fresh := NewEntityStat[string](&hookedTree{})
	require.NoError(t, fresh.Setup("hero"))
	snap["gone"] = 3

	skipped, err := fresh.Restore(snap)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 12.0, fresh.Value())

	_, err = NewEntityStat[string](&hookedTree{}).Restore(snap)
	assert.ErrorIs(t, err, ErrNotSetup)
}

func TestEntityStat_Dump(t *testing.T) {
	e := NewEntityStat[string](&hookedTree{})
	require.NoError(t, e.Setup("hero"))

	lines := strings.Split(strings.TrimSpace(e.Dump()), "\n")
	assert.Equal(t, []string{"sum (add) = 3", "  a = 1", "  b = 2"}, lines)
}
