// Package mocks provides test doubles for the openweather client.
package mocks

import (
	"context"

	openweather "github.com/sells-group/temp-anomaly/pkg/openweather"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Current provides a mock function with given fields: ctx, city
func (_m *MockClient) Current(ctx context.Context, city string) (*openweather.CurrentResponse, error) {
	ret := _m.Called(ctx, city)

	if len(ret) == 0 {
		panic("no return value specified for Current")
	}

	var r0 *openweather.CurrentResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*openweather.CurrentResponse, error)); ok {
		return rf(ctx, city)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *openweather.CurrentResponse); ok {
		r0 = rf(ctx, city)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*openweather.CurrentResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, city)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient. It also registers a testing
// interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
