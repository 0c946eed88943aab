package policy

import (
	"fmt"
	"sort"
)

// UnknownTaskKindError means a task kind was scheduled without a
// registered policy. This is a configuration/code mismatch: callers
// should surface it fatally from startup validation, not at dispatch.
type UnknownTaskKindError struct {
	Kind string
}

func (e *UnknownTaskKindError) Error() string {
	return fmt.Sprintf("no task policy registered for kind %q", e.Kind)
}

// Registry maps task kind to its TaskPolicy. Populate at startup, then
// treat as read-only; Lookup is safe for any number of concurrent
// callers once registration is done.
type Registry struct {
	policies map[string]*TaskPolicy
}

func NewRegistry() *Registry {
	return &Registry{policies: map[string]*TaskPolicy{}}
}

// Register validates and adds a policy. Registering the same kind twice
// is a configuration bug and fails.
func (r *Registry) Register(p *TaskPolicy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if _, ok := r.policies[p.Kind]; ok {
		return fmt.Errorf("task policy %q registered twice", p.Kind)
	}
	r.policies[p.Kind] = p
	return nil
}

// Lookup returns the policy for kind, or UnknownTaskKindError.
func (r *Registry) Lookup(kind string) (*TaskPolicy, error) {
	p, ok := r.policies[kind]
	if !ok {
		return nil, &UnknownTaskKindError{Kind: kind}
	}
	return p, nil
}

// Validate checks that every kind in kinds has a registered policy.
// Run this against the full task-kind set at startup so a missing policy
// kills the process before any work is dispatched.
func (r *Registry) Validate(kinds []string) error {
	for _, kind := range kinds {
		if _, ok := r.policies[kind]; !ok {
			return &UnknownTaskKindError{Kind: kind}
		}
	}
	return nil
}

// Kinds returns the registered task kinds, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.policies))
	for kind := range r.policies {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
