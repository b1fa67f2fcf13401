// Package services – UserService
//
// Minimal user registry: registration with bcrypt password hashing and
// username uniqueness. Login and session auth are handled by the identity
// frontend and are out of scope here.
package services

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/hearu/hearu-backend/internal/domain"
	"github.com/hearu/hearu-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// UserService manages user accounts.
type UserService struct {
	DB *gorm.DB

	// BcryptCost overrides bcrypt.DefaultCost when > 0 (tests use the
	// minimum cost).
	BcryptCost int
}

// Register creates a user with a hashed password. It returns
// ErrDuplicateUser when the username is taken.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "Register",
		trace.WithAttributes(attribute.String("user.name", username)),
	)
	defer span.End()

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	// Availability check before hashing; the unique index still backs the
	// race where two registrations pass it concurrently.
	if _, err := repo.GetUserByUsername(ctx, s.DB, username); err == nil {
		return nil, ErrDuplicateUser
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cost := s.BcryptCost
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, err
	}

	u, err := repo.CreateUser(ctx, s.DB, username, strings.TrimSpace(email), string(hash))
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrDuplicateUser
		}
		return nil, err
	}
	return u, nil
}

// Get fetches a user by id, mapping missing rows to ErrUserNotFound.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}
