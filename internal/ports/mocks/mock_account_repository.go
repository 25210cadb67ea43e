package mocks

import (
	context "context"

	domain "github.com/yuuki-launcher/yuuki-core/internal/domain"
	mock "github.com/stretchr/testify/mock"
)

// MockAccountRepository is a testify mock of ports.AccountRepository with a typed EXPECT() recorder.
type MockAccountRepository struct {
	mock.Mock
}

type MockAccountRepository_Expecter struct {
	mock *mock.Mock
}

func (_m *MockAccountRepository) EXPECT() *MockAccountRepository_Expecter {
	return &MockAccountRepository_Expecter{mock: &_m.Mock}
}

// Load provides a mock function with given fields: ctx
func (_m *MockAccountRepository) Load(ctx context.Context) ([]domain.Account, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Load")
	}

	var r0 []domain.Account
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context) ([]domain.Account, error)); ok {
		return rf(ctx)
	}
	if rf, ok := ret.Get(0).(func(context.Context) []domain.Account); ok {
		r0 = rf(ctx)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]domain.Account)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// MockAccountRepository_Load_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'Load'
type MockAccountRepository_Load_Call struct {
	*mock.Call
}

// Load is a helper method to define mock.On call
//   - ctx context.Context
func (_e *MockAccountRepository_Expecter) Load(ctx interface{}) *MockAccountRepository_Load_Call {
	return &MockAccountRepository_Load_Call{Call: _e.mock.On("Load", ctx)}
}

func (_c *MockAccountRepository_Load_Call) Run(run func(ctx context.Context)) *MockAccountRepository_Load_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context))
	})
	return _c
}

func (_c *MockAccountRepository_Load_Call) Return(_a0 []domain.Account, _a1 error) *MockAccountRepository_Load_Call {
	_c.Call.Return(_a0, _a1)
	return _c
}

func (_c *MockAccountRepository_Load_Call) RunAndReturn(run func(context.Context) ([]domain.Account, error)) *MockAccountRepository_Load_Call {
	_c.Call.Return(run)
	return _c
}

// Replace provides a mock function with given fields: ctx, accounts
func (_m *MockAccountRepository) Replace(ctx context.Context, accounts []domain.Account) error {
	ret := _m.Called(ctx, accounts)

	if len(ret) == 0 {
		panic("no return value specified for Replace")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, []domain.Account) error); ok {
		r0 = rf(ctx, accounts)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// MockAccountRepository_Replace_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'Replace'
type MockAccountRepository_Replace_Call struct {
	*mock.Call
}

// Replace is a helper method to define mock.On call
//   - ctx context.Context
//   - accounts []domain.Account
func (_e *MockAccountRepository_Expecter) Replace(ctx interface{}, accounts interface{}) *MockAccountRepository_Replace_Call {
	return &MockAccountRepository_Replace_Call{Call: _e.mock.On("Replace", ctx, accounts)}
}

func (_c *MockAccountRepository_Replace_Call) Run(run func(ctx context.Context, accounts []domain.Account)) *MockAccountRepository_Replace_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].([]domain.Account))
	})
	return _c
}

func (_c *MockAccountRepository_Replace_Call) Return(_a0 error) *MockAccountRepository_Replace_Call {
	_c.Call.Return(_a0)
	return _c
}

func (_c *MockAccountRepository_Replace_Call) RunAndReturn(run func(context.Context, []domain.Account) error) *MockAccountRepository_Replace_Call {
	_c.Call.Return(run)
	return _c
}

// NewMockAccountRepository creates a new instance of MockAccountRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockAccountRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockAccountRepository {
	mock := &MockAccountRepository{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
