package service

import (
	"context"
	"strings"
	"time"

	"alumnihub/internal/middleware"
	"alumnihub/internal/models"
	"alumnihub/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// AuthService verifies credentials and resolves token subjects.
type AuthService struct {
	users  repository.UserRepository
	secret string
	ttl    time.Duration
}

// LoginResult is returned to the client after a successful login.
type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func NewAuthService(users repository.UserRepository, secret string, ttl time.Duration) *AuthService {
	return &AuthService{users: users, secret: secret, ttl: ttl}
}

// Login checks the password and issues a signed token. Unknown emails and
// wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, models.NewValidationError("email and password are required")
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewUnauthorizedError("Invalid credentials")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if !user.IsActive {
		return nil, models.NewForbiddenError("account is deactivated")
	}
	token, err := middleware.IssueToken(s.secret, user, s.ttl)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &LoginResult{Token: token, User: user}, nil
}

// ResolveActor loads the identity behind a verified token. The role and
// tenant come from the stored user, not the token, so demotions apply
// before the token expires.
func (s *AuthService) ResolveActor(ctx context.Context, userID uint) (models.Actor, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return models.Actor{}, models.NewUnauthorizedError("account no longer exists")
		}
		return models.Actor{}, err
	}
	if !user.IsActive {
		return models.Actor{}, models.NewForbiddenError("account is deactivated")
	}
	return models.ActorFromUser(user), nil
}
