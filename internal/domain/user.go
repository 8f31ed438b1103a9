package domain

import (
	"context"
	"time"
)

// Credential is a stored password hash. Exactly one per user is active.
type Credential struct {
	ID        string    `json:"-"`
	UserID    string    `json:"-"`
	Active    bool      `json:"-"`
	Secret    string    `json:"-"`
	CreatedAt time.Time `json:"-"`
}

// User represents a registered user
// swagger:model User
type User struct {
	ID          string         `json:"id"`
	Email       string         `json:"email"`
	RoleID      string         `json:"role_id"`
	Role        *Role          `json:"role,omitempty"`
	Active      bool           `json:"active"`
	Metadata    map[string]any `json:"metadata"`
	Credentials []Credential   `json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ActiveCredential returns the single active credential.
func (u *User) ActiveCredential() (*Credential, error) {
	for i := range u.Credentials {
		if u.Credentials[i].Active {
			return &u.Credentials[i], nil
		}
	}
	return nil, ErrNoActiveCredential
}

// FullName returns metadata.full_name, or "" if absent.
func (u *User) FullName() string {
	s, _ := u.Metadata["full_name"].(string)
	return s
}

// UserInput is the payload for CreateUser.
type UserInput struct {
	Email    string
	Password string
	RoleSlug string
	Metadata map[string]any
}

// UserUpdate carries the fields to change; nil means untouched.
type UserUpdate struct {
	Email    *string
	RoleSlug *string
	Metadata map[string]any
}

// PasswordHasher hashes and verifies passwords. Implementations may use bcrypt, argon2, etc.
type PasswordHasher interface {
	Hash(password string) (hash string, err error)
	Verify(hash, password string) error
}

// TokenIssuer issues signed tokens carrying the caller's claims.
type TokenIssuer interface {
	Issue(claims *Claims, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns its claims. Any failure is ErrInvalidToken.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// UserRepository defines the interface for user storage. Reads only see active users.
type UserRepository interface {
	// Create inserts the user and its first active credential in one transaction.
	Create(ctx context.Context, user *User, secret string) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, params PaginationParams) ([]*User, int, error)
	ListCredentials(ctx context.Context, userID string) ([]Credential, error)
	Update(ctx context.Context, user *User) error
	Deactivate(ctx context.Context, id string) error
	// RotateCredential deactivates the current credential and stores secret as the new active one.
	RotateCredential(ctx context.Context, userID, secret string) error
}

// UserService defines the business logic for users and authentication.
type UserService interface {
	CreateUser(ctx context.Context, input *UserInput) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context, params PaginationParams) ([]*User, int, error)
	UpdateUser(ctx context.Context, id string, upd UserUpdate) (*User, error)
	DeactivateUser(ctx context.Context, id string) error
	Login(ctx context.Context, email, password string) (token string, user *User, err error)
	ChangePassword(ctx context.Context, userID, current, next string) error
	IsActive(ctx context.Context, userID string) (bool, error)
}
