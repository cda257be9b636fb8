// Package reduce derives collection-level datasets from the artifacts of a
// folder collection.
package reduce

import (
	"fmt"
	"sort"
	"sync"

	"git.home.luguber.info/inful/cmsbuild/internal/artifact"
	foundationerrors "git.home.luguber.info/inful/cmsbuild/internal/foundation/errors"
)

// Dataset is one derived output. Kind must be artifact.KindJSON to be written.
type Dataset struct {
	Kind string
	Data any
}

// Func maps a collection's artifacts to named datasets.
type Func func(collection string, items []artifact.Artifact) (map[string]Dataset, error)

// Registry holds reducers by name.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// DefaultRegistry returns a registry with the built-in reducers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register("summaries", Summaries)
	_ = r.Register("tags", Tags)
	return r
}

// Register adds f under name. Names are unique.
func (r *Registry) Register(name string, f Func) error {
	if name == "" || f == nil {
		return fmt.Errorf("reducer registration requires a name and a function")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.funcs[name]; ok {
		return fmt.Errorf("reducer %q already registered", name)
	}
	r.funcs[name] = f
	return nil
}

// Lookup returns the reducer registered under name.
func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.funcs[name]
	return f, ok
}

// Names returns the registered reducer names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for n := range r.funcs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Run applies the named reducers to items and merges their datasets. Every
// dataset is validated before Run returns, so a caller that writes only on
// success never leaves a partial set on disk.
func (r *Registry) Run(collection string, names []string, items []artifact.Artifact) (map[string]Dataset, error) {
	merged := make(map[string]Dataset)
	for _, name := range names {
		f, ok := r.Lookup(name)
		if !ok {
			return nil, foundationerrors.ReducerError("unknown reducer").
				WithContext("collection", collection).
				WithContext("reducer", name).
				Build()
		}
		datasets, err := f(collection, items)
		if err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryReducer, "reducer failed").
				Fatal().
				WithContext("collection", collection).
				WithContext("reducer", name).
				Build()
		}
		for ds, d := range datasets {
			if _, dup := merged[ds]; dup {
				return nil, foundationerrors.ReducerError("dataset produced by more than one reducer").
					WithContext("collection", collection).
					WithContext("dataset", ds).
					Build()
			}
			merged[ds] = d
		}
	}
	if err := Validate(collection, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// Validate checks that every dataset has the JSON kind.
func Validate(collection string, datasets map[string]Dataset) error {
	for _, name := range SortedNames(datasets) {
		if kind := datasets[name].Kind; kind != artifact.KindJSON {
			return foundationerrors.ReducerError(
				fmt.Sprintf("reducer for collection %s returned dataset %s with unsupported kind %q", collection, name, kind)).
				WithContext("collection", collection).
				WithContext("dataset", name).
				WithContext("kind", kind).
				Build()
		}
	}
	return nil
}

// SortedNames returns dataset names in lexical order.
func SortedNames(datasets map[string]Dataset) []string {
	names := make([]string, 0, len(datasets))
	for n := range datasets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
