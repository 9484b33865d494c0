package service

import (
	"context"
	"testing"

	"alumnihub/internal/models"
	"alumnihub/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubUserRepo struct {
	GetByIDFunc       func(ctx context.Context, id uint) (*models.User, error)
	GetByEmailFunc    func(ctx context.Context, email string) (*models.User, error)
	CreateFunc        func(ctx context.Context, user *models.User) error
	SetActiveFunc     func(ctx context.Context, id uint, active bool) error
	ListByTenantFunc  func(ctx context.Context, tenantID uint, page repository.Page) ([]models.User, error)
	GetByUsernameFunc func(ctx context.Context, username string) (*models.User, error)
}

func (s *stubUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	if s.GetByIDFunc != nil {
		return s.GetByIDFunc(ctx, id)
	}
	return nil, models.NewNotFoundError("User", id)
}

func (s *stubUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.GetByEmailFunc != nil {
		return s.GetByEmailFunc(ctx, email)
	}
	return nil, models.NewNotFoundError("User", email)
}

func (s *stubUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if s.GetByUsernameFunc != nil {
		return s.GetByUsernameFunc(ctx, username)
	}
	return nil, models.NewNotFoundError("User", username)
}

func (s *stubUserRepo) Create(ctx context.Context, user *models.User) error {
	if s.CreateFunc != nil {
		return s.CreateFunc(ctx, user)
	}
	user.ID = 100
	return nil
}

func (s *stubUserRepo) Update(context.Context, *models.User) error { return nil }

func (s *stubUserRepo) SetActive(ctx context.Context, id uint, active bool) error {
	if s.SetActiveFunc != nil {
		return s.SetActiveFunc(ctx, id, active)
	}
	return nil
}

func (s *stubUserRepo) ListByTenant(ctx context.Context, tenantID uint, page repository.Page) ([]models.User, error) {
	if s.ListByTenantFunc != nil {
		return s.ListByTenantFunc(ctx, tenantID, page)
	}
	return nil, nil
}

const strongPassword = "Reunion-2026!ok"

func TestUserService_CreateUser(t *testing.T) {
	var created *models.User
	svc := NewUserService(&stubUserRepo{CreateFunc: func(_ context.Context, u *models.User) error {
		u.ID = 42
		created = u
		return nil
	}})
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, tenantAdmin, CreateUserInput{
		Username: "jane_doe",
		Email:    " Jane.Doe@Example.edu ",
		Password: strongPassword,
		FullName: "Jane Doe",
	})
	require.NoError(t, err)
	assert.Same(t, created, u)
	assert.Equal(t, "jane.doe@example.edu", u.Email)
	assert.Equal(t, models.RoleMember, u.Role)
	assert.Equal(t, uint(1), u.TenantID)
	assert.True(t, u.IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(strongPassword)))

	tests := []struct {
		name  string
		actor models.Actor
		in    CreateUserInput
		code  string
	}{
		{"member cannot provision", alumnus, CreateUserInput{Username: "abc", Email: "a@b.co", Password: strongPassword}, models.CodeForbidden},
		{"college admin cannot mint super admins", tenantAdmin, CreateUserInput{Username: "abc", Email: "a@b.co", Password: strongPassword, Role: models.RoleSuperAdmin}, models.CodeForbidden},
		{"other tenant", tenantAdmin, CreateUserInput{TenantID: 2, Username: "abc", Email: "a@b.co", Password: strongPassword}, models.CodeForbidden},
		{"unknown role", tenantAdmin, CreateUserInput{Username: "abc", Email: "a@b.co", Password: strongPassword, Role: "dean"}, models.CodeValidation},
		{"weak password", tenantAdmin, CreateUserInput{Username: "abc", Email: "a@b.co", Password: "short"}, models.CodeValidation},
		{"bad email", tenantAdmin, CreateUserInput{Username: "abc", Email: "not-an-email", Password: strongPassword}, models.CodeValidation},
		{"bad username", tenantAdmin, CreateUserInput{Username: "_x_", Email: "a@b.co", Password: strongPassword}, models.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateUser(ctx, tt.actor, tt.in)
			assertCode(t, err, tt.code)
		})
	}

	u, err = svc.CreateUser(ctx, superAdmin, CreateUserInput{
		TenantID: 7, Username: "root2", Email: "root2@example.edu", Password: strongPassword, Role: models.RoleSuperAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, uint(7), u.TenantID)
	assert.Equal(t, models.RoleSuperAdmin, u.Role)
}

func TestUserService_GetUserIsTenantScoped(t *testing.T) {
	svc := NewUserService(&stubUserRepo{GetByIDFunc: func(_ context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id, TenantID: 2, Username: "far_away"}, nil
	}})
	ctx := context.Background()

	_, err := svc.GetUser(ctx, alumnus, 9)
	assertCode(t, err, models.CodeNotFound)

	u, err := svc.GetUser(ctx, superAdmin, 9)
	require.NoError(t, err)
	assert.Equal(t, "far_away", u.Username)
}

func TestUserService_SetActive(t *testing.T) {
	users := map[uint]*models.User{
		10: {ID: 10, TenantID: 1, Role: models.RoleMember, IsActive: true},
		11: {ID: 11, TenantID: 1, Role: models.RoleSuperAdmin, IsActive: true},
		12: {ID: 12, TenantID: 2, Role: models.RoleMember, IsActive: true},
	}
	var toggled []uint
	svc := NewUserService(&stubUserRepo{
		GetByIDFunc: func(_ context.Context, id uint) (*models.User, error) {
			u, ok := users[id]
			if !ok {
				return nil, models.NewNotFoundError("User", id)
			}
			cp := *u
			return &cp, nil
		},
		SetActiveFunc: func(_ context.Context, id uint, _ bool) error {
			toggled = append(toggled, id)
			return nil
		},
	})
	ctx := context.Background()

	_, err := svc.SetActive(ctx, tenantAdmin, tenantAdmin.UserID, false)
	assertCode(t, err, models.CodeValidation)

	_, err = svc.SetActive(ctx, alumnus, 10, false)
	assertCode(t, err, models.CodeForbidden)
	_, err = svc.SetActive(ctx, alumnus, 12, false)
	assertCode(t, err, models.CodeNotFound)
	_, err = svc.SetActive(ctx, tenantAdmin, 11, false)
	assertCode(t, err, models.CodeForbidden)

	u, err := svc.SetActive(ctx, tenantAdmin, 10, false)
	require.NoError(t, err)
	assert.False(t, u.IsActive)

	_, err = svc.SetActive(ctx, superAdmin, 11, false)
	require.NoError(t, err)
	assert.Equal(t, []uint{10, 11}, toggled)
}
