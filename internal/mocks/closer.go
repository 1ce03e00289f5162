package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// CloserMock is a mock implementation of di.Closer.
type CloserMock struct {
	mock.Mock
}

// NewCloserMock creates a new CloserMock and asserts its expectations when the test ends.
func NewCloserMock(t interface {
	mock.TestingT
	Cleanup(func())
}) *CloserMock {
	m := &CloserMock{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// Close provides a mock function with given fields: ctx
func (m *CloserMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
