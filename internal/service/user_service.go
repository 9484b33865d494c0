package service

import (
	"context"
	"strings"

	"alumnihub/internal/models"
	"alumnihub/internal/repository"
	"alumnihub/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	userRepo repository.UserRepository
}

type CreateUserInput struct {
	// TenantID lets super admins provision another tenant. Zero means the
	// actor's tenant.
	TenantID uint
	Username string
	Email    string
	Password string
	FullName string
	Role     models.GlobalRole
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// GetUser returns a user of the actor's tenant.
func (s *UserService) GetUser(ctx context.Context, actor models.Actor, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.TenantID != actor.TenantID && !actor.IsSuperAdmin() {
		return nil, models.NewNotFoundError("User", id)
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context, actor models.Actor, page repository.Page) ([]models.User, error) {
	return s.userRepo.ListByTenant(ctx, actor.TenantID, page)
}

// CreateUser provisions an account. Tenant administrators create users in
// their own tenant; only super admins create other super admins.
func (s *UserService) CreateUser(ctx context.Context, actor models.Actor, in CreateUserInput) (*models.User, error) {
	tenantID := actor.TenantID
	if in.TenantID != 0 {
		tenantID = in.TenantID
	}
	if !actor.AdministersTenant(tenantID) {
		return nil, models.NewForbiddenError("only tenant administrators can create users")
	}
	role := in.Role
	if role == "" {
		role = models.RoleMember
	}
	if !role.Valid() {
		return nil, models.NewValidationError("invalid role")
	}
	if role == models.RoleSuperAdmin && !actor.IsSuperAdmin() {
		return nil, models.NewForbiddenError("only super admins can create super admins")
	}

	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		TenantID: tenantID,
		Username: username,
		Email:    email,
		Password: string(hashed),
		FullName: strings.TrimSpace(in.FullName),
		Role:     role,
		IsActive: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetActive enables or disables an account. Nobody can deactivate themselves.
func (s *UserService) SetActive(ctx context.Context, actor models.Actor, id uint, active bool) (*models.User, error) {
	if id == actor.UserID && !active {
		return nil, models.NewValidationError("you cannot deactivate your own account")
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.AdministersTenant(user.TenantID) {
		if user.TenantID != actor.TenantID {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewForbiddenError("only tenant administrators can change account status")
	}
	if user.Role == models.RoleSuperAdmin && !actor.IsSuperAdmin() {
		return nil, models.NewForbiddenError("only super admins can change a super admin")
	}
	if err := s.userRepo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	user.IsActive = active
	return user, nil
}
