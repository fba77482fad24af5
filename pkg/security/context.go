// Package security resolves the acting identity of a command submission and
// enforces the permission its descriptor names. Maker permissions follow
// "ACTION_ENTITY"; checker permissions carry the CHECKER_ prefix on top.
package security

import (
	"context"
	"fmt"
	"sync"

	"github.com/plaenen/commandsource/pkg/command"
)

const (
	// AllFunctionsPermission grants every maker and checker permission.
	AllFunctionsPermission = "ALL_FUNCTIONS"

	// CheckerPrefix marks the approval counterpart of a maker permission,
	// e.g. CHECKER_CREATE_CLIENT.
	CheckerPrefix = "CHECKER_"
)

// Actor is the authenticated identity a command runs under.
type Actor struct {
	ID       string
	Username string
	OfficeID int64
}

// Context authenticates command submissions and checker actions.
type Context interface {
	// Authenticate resolves the acting identity and verifies it holds the
	// wrapper's task permission.
	Authenticate(ctx context.Context, wrapper command.Wrapper) (Actor, error)

	// AuthenticateChecker resolves the acting identity and verifies it may
	// approve or reject the wrapper's command.
	AuthenticateChecker(ctx context.Context, wrapper command.Wrapper) (Actor, error)
}

type contextKey string

const actorKey contextKey = "security_actor"

// WithActor stashes the authenticated actor on the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFrom retrieves the authenticated actor, if any.
func ActorFrom(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}

// User is a registered identity with its credential hash and permission grants.
type User struct {
	ID           string
	Username     string
	OfficeID     int64
	passwordHash string
	permissions  map[string]struct{}
}

// HasPermission reports whether the user holds the named permission, directly
// or through ALL_FUNCTIONS.
func (u *User) HasPermission(permission string) bool {
	if _, ok := u.permissions[AllFunctionsPermission]; ok {
		return true
	}
	_, ok := u.permissions[permission]
	return ok
}

// StaticContext is an in-memory Context over registered users. Identity
// travels on the request context via WithActor, placed there by Login.
type StaticContext struct {
	users map[string]*User
	mu    sync.RWMutex
}

// NewStaticContext creates an empty in-memory security context.
func NewStaticContext() *StaticContext {
	return &StaticContext{users: make(map[string]*User)}
}

// RegisterUser registers an identity. Weak passwords are rejected before
// hashing.
func (s *StaticContext) RegisterUser(id, username, password string, officeID int64, permissions ...string) (*User, error) {
	if err := ValidatePasswordStrength(password); err != nil {
		return nil, fmt.Errorf("password for %s: %w", username, err)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	grants := make(map[string]struct{}, len(permissions))
	for _, permission := range permissions {
		grants[permission] = struct{}{}
	}
	user := &User{
		ID:           id,
		Username:     username,
		OfficeID:     officeID,
		passwordHash: hash,
		permissions:  grants,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[username]; exists {
		return nil, fmt.Errorf("user %s already registered", username)
	}
	s.users[username] = user
	return user, nil
}

// Login verifies credentials and returns a context carrying the actor.
func (s *StaticContext) Login(ctx context.Context, username, password string) (context.Context, error) {
	s.mu.RLock()
	user, exists := s.users[username]
	s.mu.RUnlock()
	if !exists {
		return nil, command.ErrUnauthorized
	}
	if err := VerifyPassword(user.passwordHash, password); err != nil {
		return nil, command.ErrUnauthorized
	}
	return WithActor(ctx, Actor{ID: user.ID, Username: user.Username, OfficeID: user.OfficeID}), nil
}

// Authenticate implements Context.
func (s *StaticContext) Authenticate(ctx context.Context, wrapper command.Wrapper) (Actor, error) {
	return s.authenticate(ctx, wrapper.TaskPermissionName())
}

// AuthenticateChecker implements Context.
func (s *StaticContext) AuthenticateChecker(ctx context.Context, wrapper command.Wrapper) (Actor, error) {
	return s.authenticate(ctx, CheckerPrefix+wrapper.TaskPermissionName())
}

func (s *StaticContext) authenticate(ctx context.Context, permission string) (Actor, error) {
	actor, ok := ActorFrom(ctx)
	if !ok {
		return Actor{}, command.ErrUnauthorized
	}

	s.mu.RLock()
	user, exists := s.users[actor.Username]
	s.mu.RUnlock()
	if !exists {
		return Actor{}, command.ErrUnauthorized
	}
	if !user.HasPermission(permission) {
		return Actor{}, &command.NoAuthorizationError{Permission: permission}
	}
	return actor, nil
}

// SystemContext authenticates everything as a fixed system identity. Meant
// for embedding the pipeline where an outer layer already authenticated.
type SystemContext struct{}

// SystemActorID identifies internally originated commands in the audit log.
const SystemActorID = "system"

func systemActor(ctx context.Context) Actor {
	if actor, ok := ActorFrom(ctx); ok {
		return actor
	}
	return Actor{ID: SystemActorID, Username: SystemActorID}
}

// Authenticate implements Context.
func (SystemContext) Authenticate(ctx context.Context, wrapper command.Wrapper) (Actor, error) {
	return systemActor(ctx), nil
}

// AuthenticateChecker implements Context.
func (SystemContext) AuthenticateChecker(ctx context.Context, wrapper command.Wrapper) (Actor, error) {
	return systemActor(ctx), nil
}
