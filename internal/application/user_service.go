package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, user UserCredentials) error
	GetUserByEmail(ctx context.Context, email string) (UserCredentials, error)
}

// UserService registers and authenticates users.
type UserService struct {
	users        UserRepository
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
	hashPassword func(string) (string, error)
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, idGenerator, now, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a specified logger.
func NewUserServiceWithLogger(users UserRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users:       users,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
		hashPassword: func(password string) (string, error) {
			return CreatePasswordHash(password, DefaultArgon2idParams)
		},
	}
}

// WithPasswordParams returns the service hashing new passwords with params.
func (s *UserService) WithPasswordParams(params Argon2idParams) *UserService {
	s.hashPassword = func(password string) (string, error) {
		return CreatePasswordHash(password, params)
	}
	return s
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// Signup validates input, hashes the password and persists a new user.
// A taken email yields ErrAlreadyExists.
func (s *UserService) Signup(ctx context.Context, params SignupParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	name := strings.TrimSpace(params.Name)
	email := normalizeEmail(params.Email)

	logger := s.loggerWith(ctx, "Signup", "email", email)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "signup failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user registered")
	}()

	vErr := &ValidationError{}
	if name == "" {
		vErr.add("name", "name is required")
	}
	if email == "" {
		vErr.add("email", "email is required")
	} else if _, parseErr := mail.ParseAddress(email); parseErr != nil {
		vErr.add("email", "email is invalid")
	}
	if params.Password == "" {
		vErr.add("password", "password is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	hash, err = s.hashPassword(params.Password)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	created := UserCredentials{
		User: User{
			ID:        s.idGenerator(),
			Name:      name,
			Email:     email,
			CreatedAt: s.now(),
		},
		PasswordHash: hash,
	}
	if err = s.users.CreateUser(ctx, created); err != nil {
		err = mapUserRepoError(err)
		return
	}

	user = created.User
	return
}

// Login checks the password against the stored hash. Unknown emails and
// wrong passwords both yield ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	email = normalizeEmail(email)
	logger := s.loggerWith(ctx, "Login", "email", email)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "login failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user logged in")
	}()

	vErr := &ValidationError{}
	if email == "" {
		vErr.add("email", "email is required")
	}
	if password == "" {
		vErr.add("password", "password is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var stored UserCredentials
	stored, err = s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) || errors.Is(err, ErrNotFound) {
			err = ErrInvalidCredentials
			return
		}
		err = mapUserRepoError(err)
		return
	}

	if verifyErr := VerifyPassword(stored.PasswordHash, password); verifyErr != nil {
		if !errors.Is(verifyErr, ErrInvalidCredentials) {
			logger.ErrorContext(ctx, "stored password hash is unusable", "error", verifyErr)
		}
		err = ErrInvalidCredentials
		return
	}

	user = stored.User
	return
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func mapUserRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrDuplicate), errors.Is(err, ErrAlreadyExists):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("user", "violates a storage constraint")
		return vErr
	}
	return err
}
