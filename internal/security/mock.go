package security

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockMaker struct {
	mock.Mock
}

func (m *MockMaker) CreateToken(subject string, permissions []string, duration time.Duration) (string, *Payload, error) {
	args := m.Called(subject, permissions, duration)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*Payload), args.Error(2)
}

func (m *MockMaker) VerifyToken(token string) (*Payload, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Payload), args.Error(1)
}

type MockAuthorizer struct {
	mock.Mock
}

func (m *MockAuthorizer) RequireUser(ctx context.Context, user string) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockAuthorizer) RequireAdmin(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
