package security

import (
	"context"
	"strings"

	"github.com/joefazee/settlement/models"
)

// PermissionAdmin grants every admin-gated operation.
const PermissionAdmin = "settlement:admin"

// Principal is the verified identity of the invoking party.
type Principal struct {
	UserID      string
	Permissions []string
}

// Has reports whether the principal carries permission.
func (p Principal) Has(permission string) bool {
	for _, perm := range p.Permissions {
		if perm == permission {
			return true
		}
	}
	return false
}

type principalKey struct{}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal on ctx.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != ""
}

// Authorizer verifies the caller before any state is touched.
type Authorizer interface {
	// RequireUser fails unless the caller is exactly user.
	RequireUser(ctx context.Context, user string) error
	// RequireAdmin fails unless the caller holds admin rights.
	RequireAdmin(ctx context.Context) error
}

// ContextAuthorizer authorizes against the principal stored on the context.
// Admins are principals with PermissionAdmin or listed by id.
type ContextAuthorizer struct {
	admins map[string]struct{}
}

func NewContextAuthorizer(admins []string) *ContextAuthorizer {
	a := &ContextAuthorizer{admins: make(map[string]struct{}, len(admins))}
	for _, id := range admins {
		if id = strings.TrimSpace(id); id != "" {
			a.admins[id] = struct{}{}
		}
	}
	return a
}

func (a *ContextAuthorizer) RequireUser(ctx context.Context, user string) error {
	p, ok := PrincipalFrom(ctx)
	if !ok || user == "" || p.UserID != user {
		return models.ErrUnauthorized
	}
	return nil
}

func (a *ContextAuthorizer) RequireAdmin(ctx context.Context) error {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		return models.ErrUnauthorized
	}
	if p.Has(PermissionAdmin) {
		return nil
	}
	if _, listed := a.admins[p.UserID]; listed {
		return nil
	}
	return models.ErrUnauthorized
}
