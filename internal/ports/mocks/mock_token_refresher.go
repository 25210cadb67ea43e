package mocks

import (
	context "context"

	domain "github.com/yuuki-launcher/yuuki-core/internal/domain"
	mock "github.com/stretchr/testify/mock"
)

// MockTokenRefresher is a testify mock of ports.TokenRefresher with a typed EXPECT() recorder.
type MockTokenRefresher struct {
	mock.Mock
}

type MockTokenRefresher_Expecter struct {
	mock *mock.Mock
}

func (_m *MockTokenRefresher) EXPECT() *MockTokenRefresher_Expecter {
	return &MockTokenRefresher_Expecter{mock: &_m.Mock}
}

// Refresh provides a mock function with given fields: ctx, account, current
func (_m *MockTokenRefresher) Refresh(ctx context.Context, account domain.Account, current domain.Token) (domain.Token, error) {
	ret := _m.Called(ctx, account, current)

	if len(ret) == 0 {
		panic("no return value specified for Refresh")
	}

	var r0 domain.Token
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, domain.Account, domain.Token) (domain.Token, error)); ok {
		return rf(ctx, account, current)
	}
	if rf, ok := ret.Get(0).(func(context.Context, domain.Account, domain.Token) domain.Token); ok {
		r0 = rf(ctx, account, current)
	} else {
		r0 = ret.Get(0).(domain.Token)
	}

	if rf, ok := ret.Get(1).(func(context.Context, domain.Account, domain.Token) error); ok {
		r1 = rf(ctx, account, current)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// MockTokenRefresher_Refresh_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'Refresh'
type MockTokenRefresher_Refresh_Call struct {
	*mock.Call
}

// Refresh is a helper method to define mock.On call
//   - ctx context.Context
//   - account domain.Account
//   - current domain.Token
func (_e *MockTokenRefresher_Expecter) Refresh(ctx interface{}, account interface{}, current interface{}) *MockTokenRefresher_Refresh_Call {
	return &MockTokenRefresher_Refresh_Call{Call: _e.mock.On("Refresh", ctx, account, current)}
}

func (_c *MockTokenRefresher_Refresh_Call) Run(run func(ctx context.Context, account domain.Account, current domain.Token)) *MockTokenRefresher_Refresh_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(domain.Account), args[2].(domain.Token))
	})
	return _c
}

func (_c *MockTokenRefresher_Refresh_Call) Return(_a0 domain.Token, _a1 error) *MockTokenRefresher_Refresh_Call {
	_c.Call.Return(_a0, _a1)
	return _c
}

func (_c *MockTokenRefresher_Refresh_Call) RunAndReturn(run func(context.Context, domain.Account, domain.Token) (domain.Token, error)) *MockTokenRefresher_Refresh_Call {
	_c.Call.Return(run)
	return _c
}

// NewMockTokenRefresher creates a new instance of MockTokenRefresher. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockTokenRefresher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTokenRefresher {
	mock := &MockTokenRefresher{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
