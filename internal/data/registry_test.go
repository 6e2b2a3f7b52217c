package data

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/statustree/internal/stat"
	"github.com/udisondev/statustree/internal/statdef"
	"github.com/udisondev/statustree/internal/testutil"
)

type recordingObserver struct {
	mu      sync.Mutex
	builds  map[string]int
	reloads []error
	count   int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{builds: make(map[string]int)}
}

func (o *recordingObserver) TreeBuilt(tree string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err == nil {
		o.builds[tree]++
	}
}

func (o *recordingObserver) DefinitionsReloaded(count int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reloads = append(o.reloads, err)
	if err == nil {
		o.count = count
	}
}

func (o *recordingObserver) reloadCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.reloads)
}

func writeDefinition(t *testing.T, dir, file string, def *statdef.Definition) {
	t.Helper()
	require.NoError(t, def.Save(filepath.Join(dir, file)))
}

func TestRegistry_LoadDir(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "warrior.yaml", testutil.ScenarioDefinition("warrior"))
	writeDefinition(t, dir, "mage.yml", testutil.ScenarioDefinition("mage"))
	writeDefinition(t, dir, ".hidden.yaml", testutil.ScenarioDefinition("hidden"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o755))

	obs := newRecordingObserver()
	r := NewRegistry(obs)

	n, err := r.LoadDir(t.Context(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"mage", "warrior"}, r.Names())
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, map[string]int{"mage": 1, "warrior": 1}, obs.builds)
	assert.Equal(t, 2, obs.count)

	def, ok := r.Get("warrior")
	require.True(t, ok)
	root, err := def.Build()
	require.NoError(t, err)
	assert.Equal(t, 100.0, root.Value())

	_, ok = r.Get("hidden")
	assert.False(t, ok)
}

func TestRegistry_GetReturnsClone(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Put(testutil.ScenarioDefinition("warrior")))

	def, ok := r.Get("warrior")
	require.True(t, ok)
	def.Nodes[3].Value = 99
	def.RemoveNode(4)

	again, _ := r.Get("warrior")
	assert.Equal(t, 1.0, again.Nodes[3].Value)
	assert.Len(t, again.Nodes, 7)
}

func TestRegistry_FailedReloadKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "warrior.yaml", testutil.ScenarioDefinition("warrior"))

	obs := newRecordingObserver()
	r := NewRegistry(obs)
	_, err := r.LoadDir(t.Context(), dir)
	require.NoError(t, err)

	broken := testutil.ScenarioDefinition("broken")
	broken.SetRootIndex(42)
	writeDefinition(t, dir, "broken.yaml", broken)

	_, err = r.LoadDir(t.Context(), dir)
	require.ErrorIs(t, err, statdef.ErrInvalidRoot)
	assert.Equal(t, []string{"warrior"}, r.Names())
	assert.Equal(t, 1, obs.count)
	require.Len(t, obs.reloads, 2)
	assert.Error(t, obs.reloads[1])
}

func TestRegistry_DuplicateNames(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "a.yaml", testutil.ScenarioDefinition("same"))
	writeDefinition(t, dir, "b.yaml", testutil.ScenarioDefinition("same"))

	_, err := NewRegistry(nil).LoadDir(t.Context(), dir)
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestRegistry_UnnamedUsesFileName(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "rogue.yaml", testutil.ScenarioDefinition(""))

	r := NewRegistry(nil)
	_, err := r.LoadDir(t.Context(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"rogue"}, r.Names())
}

func TestRegistry_MissingDir(t *testing.T) {
	_, err := NewRegistry(nil).LoadDir(t.Context(), filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestRegistry_Put(t *testing.T) {
	obs := newRecordingObserver()
	r := NewRegistry(obs)
	assert.Error(t, r.Put(testutil.ScenarioDefinition("")))

	invalid := statdef.New("bad")
	invalid.AddNode(statdef.OperatorRecord("Div", stat.OpDivide))
	invalid.SetRootIndex(0)
	assert.ErrorIs(t, r.Put(invalid), statdef.ErrOperandCount)
	assert.Zero(t, r.Len())
	assert.Zero(t, obs.reloadCount(), "rejected definitions are not reported")

	require.NoError(t, r.Put(testutil.ScenarioDefinition("warrior")))
	require.NoError(t, r.Put(testutil.ScenarioDefinition("mage")))
	require.NoError(t, r.Put(testutil.ScenarioDefinition("mage")))
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 2, obs.count)
	assert.Equal(t, 3, obs.reloadCount())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "warrior.yaml", testutil.ScenarioDefinition("warrior"))
	r := NewRegistry(nil)

	var wg sync.WaitGroup
	for range 4 {
		wg.Go(func() {
			for range 20 {
				_, _ = r.LoadDir(t.Context(), dir)
				if def, ok := r.Get("warrior"); ok {
					def.Nodes[0].Value = 1
				}
				_ = r.Names()
			}
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("concurrent access did not finish")
	}
	assert.Equal(t, []string{"warrior"}, r.Names())
}
