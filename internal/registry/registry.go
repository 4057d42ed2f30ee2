// Package registry holds the set of user-defined automations.
//
// Declaration order is significant: the engine runs matching automations
// in the order they were added, so the registry preserves insertion order
// across updates. Put on an existing id keeps its position.
//
// Thread-safety: Registry is safe for concurrent use. Returned automations
// share trigger and action values with the registry; both are immutable
// value types, so callers may read them freely.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/cardflow/internal/ir"
)

// Sentinel errors. Check with errors.Is.
var (
	ErrNotFound  = errors.New("automation not found")
	ErrDuplicate = errors.New("automation already registered")
	ErrInvalid   = errors.New("invalid automation")
)

// Registry is an ordered, in-memory automation set.
type Registry struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]ir.Automation
}

// New creates a registry holding automations in the given order.
// Returns an error if any automation is invalid or ids repeat.
func New(automations ...ir.Automation) (*Registry, error) {
	r := &Registry{byID: make(map[string]ir.Automation)}
	for _, a := range automations {
		if err := r.Add(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func validate(a ir.Automation) error {
	verrs := a.Validate()
	if len(verrs) == 0 {
		return nil
	}
	errs := make([]error, len(verrs))
	for i, ve := range verrs {
		errs[i] = ve
	}
	return fmt.Errorf("%w %q: %w", ErrInvalid, a.ID, errors.Join(errs...))
}

func clone(a ir.Automation) ir.Automation {
	a.Actions = slices.Clone(a.Actions)
	return a
}

// Add appends a new automation. The id must not already be registered.
func (r *Registry) Add(a ir.Automation) error {
	if err := validate(a); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[a.ID]; exists {
		return fmt.Errorf("add %q: %w", a.ID, ErrDuplicate)
	}
	r.byID[a.ID] = clone(a)
	r.order = append(r.order, a.ID)
	return nil
}

// Put inserts or replaces an automation. Replacing keeps the original
// position; inserting appends.
func (r *Registry) Put(a ir.Automation) error {
	if err := validate(a); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[a.ID]; !exists {
		r.order = append(r.order, a.ID)
	}
	r.byID[a.ID] = clone(a)
	return nil
}

// Remove deletes an automation by id.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; !exists {
		return fmt.Errorf("remove %q: %w", id, ErrNotFound)
	}
	delete(r.byID, id)
	r.order = slices.DeleteFunc(r.order, func(x string) bool { return x == id })
	return nil
}

// SetEnabled toggles an automation without changing its position.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, exists := r.byID[id]
	if !exists {
		return fmt.Errorf("set enabled %q: %w", id, ErrNotFound)
	}
	a.Enabled = enabled
	r.byID[id] = a
	return nil
}

// Replace swaps the whole set atomically. On error the registry is unchanged.
func (r *Registry) Replace(automations []ir.Automation) error {
	next, err := New(automations...)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order, r.byID = next.order, next.byID
	return nil
}

// Get returns the automation with the given id.
func (r *Registry) Get(id string) (ir.Automation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	return clone(a), ok
}

// Len returns the number of registered automations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// List returns every automation in declaration order.
func (r *Registry) List() []ir.Automation {
	return r.filter(func(ir.Automation) bool { return true })
}

// Enabled returns the enabled automations owned by boardID, in
// declaration order. This is the set the engine evaluates per card.
func (r *Registry) Enabled(boardID string) []ir.Automation {
	return r.filter(func(a ir.Automation) bool { return a.Enabled && a.BoardID == boardID })
}

func (r *Registry) filter(keep func(ir.Automation) bool) []ir.Automation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ir.Automation, 0, len(r.order))
	for _, id := range r.order {
		if a := r.byID[id]; keep(a) {
			out = append(out, clone(a))
		}
	}
	return out
}
