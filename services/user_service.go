package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/blogem/people-directory/models"
	"github.com/blogem/people-directory/repositories"
)

// DefaultAdminUsername is the account seeded into an empty users table
const DefaultAdminUsername = "admin"

// UserService interface defines account management and sign-in
type UserService interface {
	EnsureDefaultAdmin(ctx context.Context, password string) (bool, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	Get(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Save(ctx context.Context, form *models.UserForm) (*models.User, error)
	Delete(ctx context.Context, username string) error
}

type userService struct {
	repos  *repositories.Repositories
	logger *slog.Logger
}

// NewUserService creates a new user service
func NewUserService(repos *repositories.Repositories, logger *slog.Logger) UserService {
	return &userService{repos: repos, logger: logger}
}

// EnsureDefaultAdmin seeds the admin account when no users exist.
// It reports whether an account was created.
func (s *userService) EnsureDefaultAdmin(ctx context.Context, password string) (bool, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return false, err
	}

	created := false
	err = s.repos.WithinTx(ctx, func(tx *repositories.Repositories) error {
		count, err := tx.Users.Count(ctx)
		if err != nil || count > 0 {
			return err
		}
		created = true
		return tx.Users.Create(ctx, &models.User{Username: DefaultAdminUsername, Role: models.RoleAdmin, PasswordHash: hash})
	})
	if err != nil {
		return false, err
	}
	if created {
		s.logger.Warn("seeded default admin account, change its password", "username", DefaultAdminUsername)
	}
	return created, nil
}

// Authenticate checks a username and password pair
func (s *userService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repos.Users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Get returns one account
func (s *userService) Get(ctx context.Context, username string) (*models.User, error) {
	user, err := s.repos.Users.GetByUsername(ctx, username)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// List returns every account
func (s *userService) List(ctx context.Context) ([]models.User, error) {
	return s.repos.Users.List(ctx)
}

// Save creates an account or updates an existing one, renaming it when
// OldUsername differs from Username. An empty password keeps the current one.
// The last-admin check and the write share one transaction.
func (s *userService) Save(ctx context.Context, form *models.UserForm) (*models.User, error) {
	if errs := form.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(errs, ", "))
	}

	username := strings.TrimSpace(form.Username)
	current := strings.TrimSpace(form.OldUsername)
	if current == "" {
		current = username
	}

	var hash string
	if form.Password != "" {
		var err error
		if hash, err = hashPassword(form.Password); err != nil {
			return nil, err
		}
	}

	var saved *models.User
	created := false
	err := s.repos.WithinTx(ctx, func(tx *repositories.Repositories) error {
		existing, err := tx.Users.GetByUsername(ctx, current)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return err
		}

		if current != username {
			if _, err := tx.Users.GetByUsername(ctx, username); err == nil {
				return ErrUsernameTaken
			} else if !errors.Is(err, repositories.ErrNotFound) {
				return err
			}
		}

		user := &models.User{Username: username, Role: form.Role, PasswordHash: hash}
		if existing == nil {
			if hash == "" {
				return ErrPasswordRequired
			}
			if err := tx.Users.Create(ctx, user); err != nil {
				return err
			}
			created = true
		} else {
			if existing.Role == models.RoleAdmin && form.Role != models.RoleAdmin {
				if err := ensureAnotherAdmin(ctx, tx.Users); err != nil {
					return err
				}
			}
			if err := tx.Users.Update(ctx, current, user); err != nil {
				return err
			}
		}

		saved, err = tx.Users.GetByUsername(ctx, username)
		return err
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.logger.Info("user created", "username", username, "role", form.Role)
	} else {
		s.logger.Info("user updated", "username", username, "previous", current, "role", form.Role)
	}
	return saved, nil
}

// Delete removes an account, refusing to remove the last admin
func (s *userService) Delete(ctx context.Context, username string) error {
	err := s.repos.WithinTx(ctx, func(tx *repositories.Repositories) error {
		user, err := tx.Users.GetByUsername(ctx, username)
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}

		if user.Role == models.RoleAdmin {
			if err := ensureAnotherAdmin(ctx, tx.Users); err != nil {
				return err
			}
		}
		return tx.Users.Delete(ctx, username)
	})
	if err != nil {
		return err
	}
	s.logger.Info("user deleted", "username", username)
	return nil
}

func ensureAnotherAdmin(ctx context.Context, users repositories.UserRepository) error {
	admins, err := users.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
