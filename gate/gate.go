// Package gate is a small Gate/Policy authorization library.
// A Gate is a registry of policies keyed by resource name (usually a table);
// each Policy decides whether a subject may run an action against one row.
// The package knows nothing about the domain and uses generics so any
// comparable subject type works:
//   - Gate[string] for account-ID based auth
//   - Gate[*Claims] for token-claims based auth
package gate

import "context"

// Gate is the central authorization checkpoint.
// U is the subject type; its zero value means "no subject" and is always rejected.
type Gate[U comparable] struct {
	policies map[string]Policy[U]
}

// NewGate creates an empty Gate ready to register policies.
func NewGate[U comparable]() *Gate[U] {
	return &Gate[U]{policies: make(map[string]Policy[U])}
}

// Register adds a policy for a resource (e.g. "complaints").
// Overwrites any existing policy for that resource.
func (g *Gate[U]) Register(resource string, p Policy[U]) {
	g.policies[resource] = p
}

// Authorize returns nil if subject may perform action on row.
// Returns ErrUnauthenticated for a zero-value subject, ErrNoPolicyDefined if
// resource has no registered policy and ErrUnauthorized if the policy denies.
func (g *Gate[U]) Authorize(ctx context.Context, subject U, action Action, resource string, row any) error {
	var zero U
	if subject == zero {
		return ErrUnauthenticated
	}
	p, ok := g.policies[resource]
	if !ok {
		return ErrNoPolicyDefined
	}
	if !p.Can(ctx, subject, action, row) {
		return ErrUnauthorized
	}
	return nil
}

// Can is Authorize reporting a bool.
func (g *Gate[U]) Can(ctx context.Context, subject U, action Action, resource string, row any) bool {
	return g.Authorize(ctx, subject, action, resource, row) == nil
}
