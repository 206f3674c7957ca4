// Package mocks provides testify mocks for the adapter interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	m "sasspipe.dev/pkg/sasspipe/internal/model"
)

// MockProcessRunner is a mock type for the ProcessRunner type.
type MockProcessRunner struct {
	mock.Mock
}

// NewMockProcessRunner creates a new instance of MockProcessRunner. It also
// registers a cleanup function to assert the mock's expectations.
func NewMockProcessRunner(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockProcessRunner {
	runner := &MockProcessRunner{}
	runner.Mock.Test(t)

	t.Cleanup(func() { runner.AssertExpectations(t) })

	return runner
}

// Run provides a mock function with given fields: ctx, spec.
func (_m *MockProcessRunner) Run(ctx context.Context, spec m.ProcessSpec) (m.ProcessResult, error) {
	ret := _m.Called(ctx, spec)

	result, _ := ret.Get(0).(m.ProcessResult)

	return result, ret.Error(1)
}

// MockArtifactStore is a mock type for the ArtifactStore type.
type MockArtifactStore struct {
	mock.Mock
}

// NewMockArtifactStore creates a new instance of MockArtifactStore. It also
// registers a cleanup function to assert the mock's expectations.
func NewMockArtifactStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockArtifactStore {
	store := &MockArtifactStore{}
	store.Mock.Test(t)

	t.Cleanup(func() { store.AssertExpectations(t) })

	return store
}

// Get provides a mock function with given fields: ctx, fingerprint.
func (_m *MockArtifactStore) Get(ctx context.Context, fingerprint m.Fingerprint) (m.Artifact, error) {
	ret := _m.Called(ctx, fingerprint)

	artifact, _ := ret.Get(0).(m.Artifact)

	return artifact, ret.Error(1)
}

// Put provides a mock function with given fields: ctx, artifact.
func (_m *MockArtifactStore) Put(ctx context.Context, artifact m.Artifact) error {
	ret := _m.Called(ctx, artifact)

	return ret.Error(0)
}

// Clear provides a mock function with given fields: ctx.
func (_m *MockArtifactStore) Clear(ctx context.Context) error {
	ret := _m.Called(ctx)

	return ret.Error(0)
}

// Root provides a mock function with no fields.
func (_m *MockArtifactStore) Root() string {
	ret := _m.Called()

	return ret.String(0)
}

// MockThemePaths is a mock type for the ThemePaths type.
type MockThemePaths struct {
	mock.Mock
}

// StylesheetsPath provides a mock function with no fields.
func (_m *MockThemePaths) StylesheetsPath() (m.Path, error) {
	ret := _m.Called()

	path, _ := ret.Get(0).(m.Path)

	return path, ret.Error(1)
}
