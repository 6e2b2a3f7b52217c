// Package data holds the stat tree definitions loaded from disk.
package data

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/statustree/internal/statdef"
)

var ErrDuplicateName = errors.New("duplicate definition name")

// Observer is notified about builds and reloads. *metrics.Collector satisfies it.
type Observer interface {
	TreeBuilt(tree string, err error)
	DefinitionsReloaded(count int, err error)
}

type nopObserver struct{}

func (nopObserver) TreeBuilt(string, error)        {}
func (nopObserver) DefinitionsReloaded(int, error) {}

// Registry maps tree names to validated definitions.
// Safe for concurrent use. Definitions handed out are clones.
type Registry struct {
	mu       sync.RWMutex
	defs     map[string]*statdef.Definition
	observer Observer
}

// NewRegistry creates an empty registry. observer may be nil.
func NewRegistry(observer Observer) *Registry {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Registry{
		defs:     make(map[string]*statdef.Definition),
		observer: observer,
	}
}

// IsDefinitionFile reports whether path names a visible YAML file.
func IsDefinitionFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// DefinitionFiles lists definition files directly inside dir, sorted.
func DefinitionFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading definitions dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsDefinitionFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// LoadFile reads and validates a single definition.
func LoadFile(path string) (*statdef.Definition, error) {
	def, err := statdef.Load(path)
	if err != nil {
		return nil, err
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	return def, nil
}

// LoadDir replaces the registry contents with every definition in dir.
// Files are parsed concurrently. On any failure the previous contents are kept.
func (r *Registry) LoadDir(ctx context.Context, dir string) (int, error) {
	n, err := r.loadDir(ctx, dir)
	r.observer.DefinitionsReloaded(n, err)
	if err != nil {
		return 0, err
	}
	slog.Info("loaded stat tree definitions", "count", n, "dir", dir)
	return n, nil
}

func (r *Registry) loadDir(ctx context.Context, dir string) (int, error) {
	files, err := DefinitionFiles(dir)
	if err != nil {
		return 0, err
	}

	loaded := make([]*statdef.Definition, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			def, err := LoadFile(path)
			if err != nil {
				return err
			}
			_, err = def.Build()
			r.observer.TreeBuilt(def.Name, err)
			if err != nil {
				return fmt.Errorf("building %s: %w", path, err)
			}
			loaded[i] = def
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	defs := make(map[string]*statdef.Definition, len(loaded))
	for i, def := range loaded {
		if _, ok := defs[def.Name]; ok {
			return 0, fmt.Errorf("%w: %q in %s", ErrDuplicateName, def.Name, files[i])
		}
		defs[def.Name] = def
	}

	r.mu.Lock()
	r.defs = defs
	r.mu.Unlock()
	return len(defs), nil
}

// Put validates def and stores a clone under its name.
// The observer sees the new definition count.
func (r *Registry) Put(def *statdef.Definition) error {
	if def.Name == "" {
		return errors.New("definition has no name")
	}
	if err := def.Validate(); err != nil {
		return fmt.Errorf("validating %q: %w", def.Name, err)
	}
	clone := def.Clone()

	r.mu.Lock()
	r.defs[clone.Name] = clone
	n := len(r.defs)
	r.mu.Unlock()
	r.observer.DefinitionsReloaded(n, nil)
	return nil
}

// Get returns a clone of the named definition.
func (r *Registry) Get(name string) (*statdef.Definition, bool) {
	r.mu.RLock()
	def, ok := r.defs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return def.Clone(), true
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}
