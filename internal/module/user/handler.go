package user

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/userdir/internal/domain"
	"github.com/simp-lee/userdir/internal/pkg"
)

// UserHandler handles REST API requests for the user resource.
type UserHandler struct {
	svc domain.UserService
}

// NewUserHandler creates a new UserHandler with the given service.
func NewUserHandler(svc domain.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Create handles POST /api/v1/users.
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	user, err := h.svc.CreateUser(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Created(c, toResponse(user))
}

// Get handles GET /api/v1/users/:id.
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	user, err := h.svc.GetUser(c.Request.Context(), id)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, toResponse(user))
}

// Search handles GET /api/v1/users.
// Query: page, per_page, sort (name|createdAt|updatedAt), sort_dir, filter.
func (h *UserHandler) Search(c *gin.Context) {
	params := pkg.ParseSearchParams(c)

	result, err := h.svc.SearchUsers(c.Request.Context(), params)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.List(c, domain.MapItems(result, toResponse))
}

// ListAll handles GET /api/v1/users/all. Soft-deleted users are included
// when include_deleted is true.
func (h *UserHandler) ListAll(c *gin.Context) {
	includeDeleted, _ := strconv.ParseBool(c.Query("include_deleted"))

	users, err := h.svc.ListUsers(c.Request.Context(), includeDeleted)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, toResponses(users))
}

// Update handles PUT /api/v1/users/:id.
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	user, err := h.svc.UpdateUser(c.Request.Context(), id, req.Name, req.Email)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, toResponse(user))
}

// ChangePassword handles PUT /api/v1/users/:id/password.
func (h *UserHandler) ChangePassword(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	if err := h.svc.ChangePassword(c.Request.Context(), id, req.Password); err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, nil)
}

// SoftDelete handles DELETE /api/v1/users/:id.
func (h *UserHandler) SoftDelete(c *gin.Context) {
	h.byID(c, h.svc.SoftDeleteUser)
}

// Restore handles POST /api/v1/users/:id/restore.
func (h *UserHandler) Restore(c *gin.Context) {
	h.byID(c, h.svc.RestoreUser)
}

// Purge handles DELETE /api/v1/users/:id/permanent.
func (h *UserHandler) Purge(c *gin.Context) {
	h.byID(c, h.svc.DeleteUser)
}

func (h *UserHandler) byID(c *gin.Context, op func(ctx context.Context, id string) error) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := op(c.Request.Context(), id); err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, nil)
}

// parseID reads the :id path parameter, responding with a validation error
// when it is blank.
func parseID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, "id is required", nil))
		return "", false
	}
	return id, true
}
