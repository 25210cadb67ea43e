package mocks

import (
	context "context"

	domain "github.com/yuuki-launcher/yuuki-core/internal/domain"
	mock "github.com/stretchr/testify/mock"
)

// MockDeviceAuthorizer is a testify mock of ports.DeviceAuthorizer with a typed EXPECT() recorder.
type MockDeviceAuthorizer struct {
	mock.Mock
}

type MockDeviceAuthorizer_Expecter struct {
	mock *mock.Mock
}

func (_m *MockDeviceAuthorizer) EXPECT() *MockDeviceAuthorizer_Expecter {
	return &MockDeviceAuthorizer_Expecter{mock: &_m.Mock}
}

// AwaitGrant provides a mock function with given fields: ctx, session
func (_m *MockDeviceAuthorizer) AwaitGrant(ctx context.Context, session domain.DeviceLoginSession) (domain.DeviceGrant, error) {
	ret := _m.Called(ctx, session)

	if len(ret) == 0 {
		panic("no return value specified for AwaitGrant")
	}

	var r0 domain.DeviceGrant
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, domain.DeviceLoginSession) (domain.DeviceGrant, error)); ok {
		return rf(ctx, session)
	}
	if rf, ok := ret.Get(0).(func(context.Context, domain.DeviceLoginSession) domain.DeviceGrant); ok {
		r0 = rf(ctx, session)
	} else {
		r0 = ret.Get(0).(domain.DeviceGrant)
	}

	if rf, ok := ret.Get(1).(func(context.Context, domain.DeviceLoginSession) error); ok {
		r1 = rf(ctx, session)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// MockDeviceAuthorizer_AwaitGrant_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'AwaitGrant'
type MockDeviceAuthorizer_AwaitGrant_Call struct {
	*mock.Call
}

// AwaitGrant is a helper method to define mock.On call
//   - ctx context.Context
//   - session domain.DeviceLoginSession
func (_e *MockDeviceAuthorizer_Expecter) AwaitGrant(ctx interface{}, session interface{}) *MockDeviceAuthorizer_AwaitGrant_Call {
	return &MockDeviceAuthorizer_AwaitGrant_Call{Call: _e.mock.On("AwaitGrant", ctx, session)}
}

func (_c *MockDeviceAuthorizer_AwaitGrant_Call) Run(run func(ctx context.Context, session domain.DeviceLoginSession)) *MockDeviceAuthorizer_AwaitGrant_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(domain.DeviceLoginSession))
	})
	return _c
}

func (_c *MockDeviceAuthorizer_AwaitGrant_Call) Return(_a0 domain.DeviceGrant, _a1 error) *MockDeviceAuthorizer_AwaitGrant_Call {
	_c.Call.Return(_a0, _a1)
	return _c
}

func (_c *MockDeviceAuthorizer_AwaitGrant_Call) RunAndReturn(run func(context.Context, domain.DeviceLoginSession) (domain.DeviceGrant, error)) *MockDeviceAuthorizer_AwaitGrant_Call {
	_c.Call.Return(run)
	return _c
}

// StartDeviceAuthorization provides a mock function with given fields: ctx, provider
func (_m *MockDeviceAuthorizer) StartDeviceAuthorization(ctx context.Context, provider string) (domain.DeviceLoginSession, error) {
	ret := _m.Called(ctx, provider)

	if len(ret) == 0 {
		panic("no return value specified for StartDeviceAuthorization")
	}

	var r0 domain.DeviceLoginSession
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (domain.DeviceLoginSession, error)); ok {
		return rf(ctx, provider)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) domain.DeviceLoginSession); ok {
		r0 = rf(ctx, provider)
	} else {
		r0 = ret.Get(0).(domain.DeviceLoginSession)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, provider)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// MockDeviceAuthorizer_StartDeviceAuthorization_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'StartDeviceAuthorization'
type MockDeviceAuthorizer_StartDeviceAuthorization_Call struct {
	*mock.Call
}

// StartDeviceAuthorization is a helper method to define mock.On call
//   - ctx context.Context
//   - provider string
func (_e *MockDeviceAuthorizer_Expecter) StartDeviceAuthorization(ctx interface{}, provider interface{}) *MockDeviceAuthorizer_StartDeviceAuthorization_Call {
	return &MockDeviceAuthorizer_StartDeviceAuthorization_Call{Call: _e.mock.On("StartDeviceAuthorization", ctx, provider)}
}

func (_c *MockDeviceAuthorizer_StartDeviceAuthorization_Call) Run(run func(ctx context.Context, provider string)) *MockDeviceAuthorizer_StartDeviceAuthorization_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(string))
	})
	return _c
}

func (_c *MockDeviceAuthorizer_StartDeviceAuthorization_Call) Return(_a0 domain.DeviceLoginSession, _a1 error) *MockDeviceAuthorizer_StartDeviceAuthorization_Call {
	_c.Call.Return(_a0, _a1)
	return _c
}

func (_c *MockDeviceAuthorizer_StartDeviceAuthorization_Call) RunAndReturn(run func(context.Context, string) (domain.DeviceLoginSession, error)) *MockDeviceAuthorizer_StartDeviceAuthorization_Call {
	_c.Call.Return(run)
	return _c
}

// NewMockDeviceAuthorizer creates a new instance of MockDeviceAuthorizer. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockDeviceAuthorizer(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockDeviceAuthorizer {
	mock := &MockDeviceAuthorizer{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
