package user

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/simp-lee/userdir/internal/domain"
)

// userService implements domain.UserService.
type userService struct {
	repo       domain.UserRepository
	logger     *slog.Logger
	now        func() time.Time
	bcryptCost int
}

// NewUserService creates a new UserService with the given repository.
// A nil logger falls back to slog.Default().
func NewUserService(repo domain.UserRepository, logger *slog.Logger) domain.UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &userService{
		repo:       repo,
		logger:     logger,
		now:        time.Now,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// CreateUser validates input, hashes the password, and stores a new user.
func (s *userService) CreateUser(ctx context.Context, name, email, password string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if err := validateNameEmail(name, email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if err := s.repo.EmailExists(ctx, email); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := domain.NewUser(domain.UserProps{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser retrieves an active user by ID.
func (s *userService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

// SearchUsers returns one page of active users.
func (s *userService) SearchUsers(ctx context.Context, params domain.SearchParams) (*domain.SearchResult[*domain.User], error) {
	return s.repo.Search(ctx, params)
}

// ListUsers returns every active user, or every stored user when
// includeDeleted is set.
func (s *userService) ListUsers(ctx context.Context, includeDeleted bool) ([]*domain.User, error) {
	if includeDeleted {
		return s.repo.FindAllIncludingDeleted(ctx)
	}
	return s.repo.FindAll(ctx)
}

// UpdateUser applies name and email changes to an active user.
func (s *userService) UpdateUser(ctx context.Context, id, name, email string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if err := validateNameEmail(name, email); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if user.Name() != name {
		user.Rename(name, now)
	}
	if user.Email() != email {
		if err := s.repo.EmailExists(ctx, email); err != nil {
			return nil, err
		}
		user.ChangeEmail(email, now)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword replaces the password of an active user.
func (s *userService) ChangePassword(ctx context.Context, id, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}
	user.ChangePassword(hash, s.now())

	return s.repo.Update(ctx, user)
}

// SoftDeleteUser hides an active user from lookups and searches.
func (s *userService) SoftDeleteUser(ctx context.Context, id string) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user soft deleted", slog.String("user_id", id))
	return nil
}

// RestoreUser makes a soft-deleted user active again.
func (s *userService) RestoreUser(ctx context.Context, id string) error {
	if err := s.repo.Restore(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user restored", slog.String("user_id", id))
	return nil
}

// DeleteUser removes a user permanently, active or not.
func (s *userService) DeleteUser(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user purged", slog.String("user_id", id))
	return nil
}

func (s *userService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", domain.NewAppError(domain.CodeInternal, "failed to hash password", err)
	}
	return string(hash), nil
}

// validateNameEmail checks name length and email syntax. Both are expected to
// be trimmed by the caller.
func validateNameEmail(name, email string) error {
	nameLen := utf8.RuneCountInString(name)
	if nameLen == 0 {
		return domain.NewAppError(domain.CodeValidation, "name is required", nil)
	}
	if nameLen < 2 {
		return domain.NewAppError(domain.CodeValidation, "name must be at least 2 characters", nil)
	}
	if nameLen > 100 {
		return domain.NewAppError(domain.CodeValidation, "name must be at most 100 characters", nil)
	}

	if email == "" {
		return domain.NewAppError(domain.CodeValidation, "email is required", nil)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return domain.NewAppError(domain.CodeValidation, "email must be a valid email address", nil)
	}
	return nil
}

// validatePassword enforces bcrypt's 72-byte input limit and a minimum length.
func validatePassword(password string) error {
	if len(password) < 8 {
		return domain.NewAppError(domain.CodeValidation, "password must be at least 8 characters", nil)
	}
	if len(password) > 72 {
		return domain.NewAppError(domain.CodeValidation, "password must not exceed 72 characters", nil)
	}
	return nil
}
