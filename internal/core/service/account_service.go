package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/martijn/accountd/internal/core/domain"
	"github.com/martijn/accountd/internal/core/repository"
	"golang.org/x/crypto/bcrypt"
)

// AccountService implements the user account lifecycle: registration, login,
// logout, profile update and deletion, gated on the record's session token.
type AccountService struct {
	userRepo   repository.UserRepository
	tokens     *TokenService
	bcryptCost int
}

func NewAccountService(userRepo repository.UserRepository, tokens *TokenService, bcryptCost int) *AccountService {
	return &AccountService{
		userRepo:   userRepo,
		tokens:     tokens,
		bcryptCost: bcryptCost,
	}
}

// HashPassword hashes a password using bcrypt.
func (s *AccountService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword verifies a password against a hash.
func (s *AccountService) VerifyPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// List returns all records verbatim, password hashes included.
func (s *AccountService) List(ctx context.Context) ([]*domain.User, error) {
	return s.userRepo.List(ctx)
}

// Login verifies the password and issues a fresh session token, overwriting
// any previous one. The returned user is the record as read before the token
// overwrite, so its auth field still holds the prior session.
func (s *AccountService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, NewServiceError(http.StatusNotFound, "Username not found.")
	}
	if err != nil {
		return "", nil, err
	}

	if !s.VerifyPassword(password, user.Password) {
		return "", nil, NewServiceError(http.StatusUnauthorized, "Incorrect password.")
	}

	token, err := s.tokens.Issue(username)
	if err != nil {
		return "", nil, err
	}

	if _, err := s.userRepo.SetAuth(ctx, username, token); err != nil {
		return "", nil, err
	}

	return token, user, nil
}

// Register creates a new record with a hashed password and an immediately
// issued session token, so the user is logged in upon signup.
func (s *AccountService) Register(ctx context.Context, username, password, email, name string) (*domain.User, error) {
	if username == "" || password == "" || email == "" || name == "" {
		return nil, NewServiceError(http.StatusBadRequest, "Missing fields.")
	}

	// Check-then-insert; the store has no unique index, so two concurrent
	// registrations of the same username can both pass this check.
	_, err := s.userRepo.FindByUsername(ctx, username)
	if err == nil {
		return nil, NewServiceError(http.StatusConflict, "Username already exists.")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(username)
	if err != nil {
		return nil, err
	}

	user := domain.NewUser(username, hash, email, name)
	user.Auth = token

	return s.userRepo.Insert(ctx, user)
}

// Logout removes the record's session token. No proof of identity is required
// beyond knowledge of the username.
func (s *AccountService) Logout(ctx context.Context, username string) error {
	_, err := s.userRepo.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return NewServiceError(http.StatusNotFound, "User not found.")
	}
	if err != nil {
		return err
	}

	_, err = s.userRepo.ClearAuth(ctx, username)
	return err
}

// UpdateProfile overwrites the given fields on the record after validating the
// record's stored session token. The username field is stripped from the patch;
// the primary key is immutable.
func (s *AccountService) UpdateProfile(ctx context.Context, username string, fields map[string]any) error {
	if _, err := s.verifyStoredToken(ctx, username); err != nil {
		return err
	}

	delete(fields, domain.FieldUsername)

	matched, err := s.userRepo.UpdateFields(ctx, username, fields)
	if err != nil {
		return err
	}
	if matched == 0 {
		return NewServiceError(http.StatusBadRequest, "Something went wrong.")
	}
	return nil
}

// Delete destroys the record after validating its stored session token.
func (s *AccountService) Delete(ctx context.Context, username string) error {
	if _, err := s.verifyStoredToken(ctx, username); err != nil {
		return err
	}

	deleted, err := s.userRepo.Delete(ctx, username)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return NewServiceError(http.StatusBadRequest, "Something went wrong.")
	}
	return nil
}

// verifyStoredToken loads the record and checks the signature of its own
// stored auth token. The caller supplies no credential; a record whose auth
// field is absent or invalid fails closed.
func (s *AccountService) verifyStoredToken(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewServiceError(http.StatusNotFound, "User not found.")
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.tokens.Verify(user.Auth); err != nil {
		return nil, NewServiceError(http.StatusForbidden, "Invalid authentication token.")
	}

	return user, nil
}
