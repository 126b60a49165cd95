package user

import (
	"time"

	"github.com/simp-lee/userdir/internal/domain"
)

// CreateUserRequest represents the input for creating a new user.
type CreateUserRequest struct {
	Name     string `json:"name" form:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required,min=8,max=72"`
}

// UpdateUserRequest represents the input for updating an existing user.
type UpdateUserRequest struct {
	Name  string `json:"name" form:"name" binding:"required,min=2,max=100"`
	Email string `json:"email" form:"email" binding:"required,email"`
}

// ChangePasswordRequest represents the input for replacing a user's password.
type ChangePasswordRequest struct {
	Password string `json:"password" form:"password" binding:"required,min=8,max=72"`
}

// UserResponse is the public JSON representation of a user. The password
// hash never leaves the service.
type UserResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func toResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID(),
		Name:      u.Name(),
		Email:     u.Email(),
		CreatedAt: u.CreatedAt(),
		UpdatedAt: u.UpdatedAt(),
		DeletedAt: u.DeletedAt(),
	}
}

func toResponses(users []*domain.User) []UserResponse {
	out := make([]UserResponse, len(users))
	for i, u := range users {
		out[i] = toResponse(u)
	}
	return out
}
