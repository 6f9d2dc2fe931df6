package core

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator"
	"github.com/jo-hoe/recipe-app/internal/backend/cache"
	"github.com/jo-hoe/recipe-app/internal/backend/database"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 5
	maxNameLength     = 255
	maxEmailLength    = 255
)

var fieldValidator = validator.New()

// NormalizeEmail lower-cases the domain part of an address. The local part is
// left untouched since it may be case sensitive.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + strings.ToLower(email[at:])
}

// UserPatch carries the fields of a profile update. Nil fields are left unchanged.
type UserPatch struct {
	Email    *string
	Name     *string
	Password *string
}

func (service *CoreService) CreateUser(ctx context.Context, email, password, name string) (*database.User, error) {
	return service.createUser(ctx, email, password, name, false)
}

// CreateSuperuser creates an active account with staff and superuser rights.
func (service *CoreService) CreateSuperuser(ctx context.Context, email, password string) (*database.User, error) {
	return service.createUser(ctx, email, password, "", true)
}

func (service *CoreService) createUser(ctx context.Context, email, password, name string, superuser bool) (*database.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, fieldError("email", "users must have an email address")
	}
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := service.databaseService.CreateUser(ctx, &database.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      superuser,
		IsSuperuser:  superuser,
	})
	if errors.Is(err, database.ErrAlreadyExists) {
		return nil, fieldError("email", "user with this email already exists.")
	}
	if err != nil {
		return nil, err
	}
	slog.Info("user created", "user_id", user.ID, "superuser", superuser)
	return user, nil
}

// Authenticate checks credentials and returns the user's token key, creating one on
// first login.
func (service *CoreService) Authenticate(ctx context.Context, email, password string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", fieldError("email", msgFieldRequired)
	}
	if password == "" {
		return "", fieldError("password", msgFieldRequired)
	}

	user, err := service.databaseService.GetUserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, database.ErrNotFound) {
		return "", errInvalidCredentials()
	}
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil || !user.IsActive {
		return "", errInvalidCredentials()
	}

	key, err := service.databaseService.GetOrCreateToken(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if err := service.tokenCache.Set(ctx, key, user.ID); err != nil {
		slog.Warn("failed to cache token", "user_id", user.ID, "error", err)
	}
	return key, nil
}

// UserForToken resolves a token key to its active user.
func (service *CoreService) UserForToken(ctx context.Context, key string) (*database.User, error) {
	if key == "" {
		return nil, ErrInvalidToken()
	}

	userID, err := service.tokenCache.Get(ctx, key)
	cached := err == nil
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			slog.Warn("token cache lookup failed, falling back to database", "error", err)
		}
		userID, err = service.databaseService.GetUserIDByToken(ctx, key)
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidToken()
		}
		if err != nil {
			return nil, err
		}
	}

	user, err := service.databaseService.GetUserByID(ctx, userID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	if user == nil || !user.IsActive {
		if cached {
			_ = service.tokenCache.Delete(ctx, key)
		}
		return nil, errUserInactive()
	}

	if !cached {
		if err := service.tokenCache.Set(ctx, key, userID); err != nil {
			slog.Warn("failed to cache token", "user_id", userID, "error", err)
		}
	}
	return user, nil
}

// UpdateMe applies a profile change for the authenticated user.
func (service *CoreService) UpdateMe(ctx context.Context, user *database.User, patch UserPatch) (*database.User, error) {
	updated := *user

	if patch.Email != nil {
		email := NormalizeEmail(*patch.Email)
		if email == "" {
			return nil, fieldError("email", msgFieldBlank)
		}
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		updated.Email = email
	}
	if patch.Name != nil {
		if err := validateName(*patch.Name); err != nil {
			return nil, err
		}
		updated.Name = *patch.Name
	}
	if patch.Password != nil {
		hash, err := hashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
		updated.PasswordHash = hash
	}

	err := service.databaseService.UpdateUser(ctx, &updated)
	if errors.Is(err, database.ErrAlreadyExists) {
		return nil, fieldError("email", "user with this email already exists.")
	}
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &updated, nil
}

func validateEmail(email string) error {
	if utf8.RuneCountInString(email) > maxEmailLength {
		return fieldError("email", "Ensure this field has no more than 255 characters.")
	}
	if fieldValidator.Var(email, "required,email") != nil {
		return fieldError("email", "Enter a valid email address.")
	}
	return nil
}

func validateName(name string) error {
	if utf8.RuneCountInString(name) > maxNameLength {
		return fieldError("name", "Ensure this field has no more than 255 characters.")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	if password == "" {
		return "", fieldError("password", msgFieldRequired)
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return "", fieldError("password", "Ensure this field has at least 5 characters.")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		// bcrypt rejects passwords longer than 72 bytes
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fieldError("password", "Ensure this field has no more than 72 characters.")
		}
		return "", err
	}
	return string(hash), nil
}
