package domain

import (
	"context"
	"strings"
	"time"
)

// UserProps is a plain snapshot of a User, used to build users and to map them
// to and from storage rows.
type UserProps struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// User represents a user in the system.
type User struct {
	BaseModel
	name         string
	email        string
	passwordHash string
}

// NewUser builds a User from props. An empty ID and zero timestamps are
// filled in, which is how new users are created; complete props reconstitute
// a stored user.
func NewUser(p UserProps) (*User, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, NewAppError(CodeValidation, "name is required", nil)
	}
	if strings.TrimSpace(p.Email) == "" {
		return nil, NewAppError(CodeValidation, "email is required", nil)
	}
	base, err := newBaseModel(p.ID, p.CreatedAt, p.UpdatedAt, p.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &User{
		BaseModel:    base,
		name:         p.Name,
		email:        p.Email,
		passwordHash: p.PasswordHash,
	}, nil
}

// Name returns the display name.
func (u *User) Name() string { return u.name }

// Email returns the email address.
func (u *User) Email() string { return u.email }

// PasswordHash returns the stored password hash.
func (u *User) PasswordHash() string { return u.passwordHash }

// Rename changes the display name.
func (u *User) Rename(name string, now time.Time) {
	u.name = name
	u.touch(now)
}

// ChangeEmail changes the email address.
func (u *User) ChangeEmail(email string, now time.Time) {
	u.email = email
	u.touch(now)
}

// ChangePassword replaces the password hash.
func (u *User) ChangePassword(hash string, now time.Time) {
	u.passwordHash = hash
	u.touch(now)
}

// Props returns a snapshot of the user.
func (u *User) Props() UserProps {
	return UserProps{
		ID:           u.id,
		Name:         u.name,
		Email:        u.email,
		PasswordHash: u.passwordHash,
		CreatedAt:    u.createdAt,
		UpdatedAt:    u.updatedAt,
		DeletedAt:    u.DeletedAt(),
	}
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	c := *u
	c.deletedAt = u.DeletedAt()
	return &c
}

// UserRepository is the storage contract every user backend honors
// identically. Lookups that do not mention deleted users only see active ones.
type UserRepository interface {
	Insert(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByIDIncludingDeleted(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// EmailExists fails with a conflict error when an active user owns email.
	EmailExists(ctx context.Context, email string) error
	FindAll(ctx context.Context) ([]*User, error)
	FindAllIncludingDeleted(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, user *User) error
	// Delete removes the user permanently, bypassing soft delete.
	Delete(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
	Search(ctx context.Context, params SearchParams) (*SearchResult[*User], error)
}

// UserService defines the user use cases.
type UserService interface {
	CreateUser(ctx context.Context, name, email, password string) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	SearchUsers(ctx context.Context, params SearchParams) (*SearchResult[*User], error)
	ListUsers(ctx context.Context, includeDeleted bool) ([]*User, error)
	UpdateUser(ctx context.Context, id, name, email string) (*User, error)
	ChangePassword(ctx context.Context, id, password string) error
	SoftDeleteUser(ctx context.Context, id string) error
	RestoreUser(ctx context.Context, id string) error
	DeleteUser(ctx context.Context, id string) error
}
