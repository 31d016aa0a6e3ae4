package gate

import "context"

// HybridGate combines profile-based permissions with per-resource row policies.
// Authorization flow:
//  1. the subject must be non-zero
//  2. the subject's profile must grant resource:action
//  3. if a row is given and the resource has a policy, the policy must allow it
type HybridGate[U comparable] struct {
	resolver ProfileResolver[U]
	policies map[string]Policy[U]
}

// NewHybridGate creates a hybrid gate backed by resolver.
func NewHybridGate[U comparable](resolver ProfileResolver[U]) *HybridGate[U] {
	return &HybridGate[U]{
		resolver: resolver,
		policies: make(map[string]Policy[U]),
	}
}

// Register adds a row policy for a resource.
func (g *HybridGate[U]) Register(resource string, p Policy[U]) {
	g.policies[resource] = p
}

// Authorize returns nil when subject may perform action on row of resource.
func (g *HybridGate[U]) Authorize(ctx context.Context, subject U, action Action, resource string, row any) error {
	var zero U
	if subject == zero {
		return ErrUnauthenticated
	}

	profile, err := g.resolver.Resolve(ctx, subject)
	if err != nil || profile == nil {
		return ErrUnauthorized
	}
	if !profile.HasPermission(NewPermission(resource, action)) {
		return ErrUnauthorized
	}

	if row != nil {
		if policy, ok := g.policies[resource]; ok {
			if !policy.Can(ctx, subject, action, row) {
				return ErrUnauthorized
			}
		}
	}
	return nil
}

// Can is Authorize reporting a bool.
func (g *HybridGate[U]) Can(ctx context.Context, subject U, action Action, resource string, row any) bool {
	return g.Authorize(ctx, subject, action, resource, row) == nil
}

// CanProfile checks only the profile permission, without any row policy.
// Used for table-wide decisions such as filtering a whole listing.
func (g *HybridGate[U]) CanProfile(ctx context.Context, subject U, action Action, resource string) bool {
	var zero U
	if subject == zero {
		return false
	}
	profile, err := g.resolver.Resolve(ctx, subject)
	if err != nil || profile == nil {
		return false
	}
	return profile.HasPermission(NewPermission(resource, action))
}
