package services

import (
	"context"

	"github.com/tmarsden/waypoint/internal/models"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc        func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc     func(ctx context.Context, email string) (*models.User, error)
	CreateFunc         func(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePasswordFunc func(ctx context.Context, id, passwordHash string) error
	SetTOTPSecretFunc  func(ctx context.Context, id, secret string) error
	EnableTOTPFunc     func(ctx context.Context, id string) error
	DisableTOTPFunc    func(ctx context.Context, id string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) SetTOTPSecret(ctx context.Context, id, secret string) error {
	if m.SetTOTPSecretFunc != nil {
		return m.SetTOTPSecretFunc(ctx, id, secret)
	}
	return nil
}

func (m *MockUserRepository) EnableTOTP(ctx context.Context, id string) error {
	if m.EnableTOTPFunc != nil {
		return m.EnableTOTPFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) DisableTOTP(ctx context.Context, id string) error {
	if m.DisableTOTPFunc != nil {
		return m.DisableTOTPFunc(ctx, id)
	}
	return nil
}
