package testing

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/imamik/fwupgrade/internal/transfer"
	"github.com/imamik/fwupgrade/internal/upgrade"
)

// MockDecider is a mock implementation of upgrade.Decider.
type MockDecider struct {
	mock.Mock
}

// ConfirmReclaim records the call and returns the configured answer.
func (m *MockDecider) ConfirmReclaim(ctx context.Context, target upgrade.DeviceTarget, space transfer.Space) (bool, error) {
	args := m.Called(ctx, target, space)
	return args.Bool(0), args.Error(1)
}

// ChooseFileToDelete records the call and returns the configured file name.
func (m *MockDecider) ChooseFileToDelete(ctx context.Context, target upgrade.DeviceTarget, listing string) (string, error) {
	args := m.Called(ctx, target, listing)
	return args.String(0), args.Error(1)
}

// MockRecorder is a mock implementation of upgrade.Recorder.
type MockRecorder struct {
	mock.Mock
}

// StepCompleted records the call.
func (m *MockRecorder) StepCompleted(device, step, result string) {
	m.Called(device, step, result)
}

// TransferBytes records the call.
func (m *MockRecorder) TransferBytes(device string, n int64) {
	m.Called(device, n)
}

// JobFinished records the call.
func (m *MockRecorder) JobFinished(outcome string, elapsed time.Duration) {
	m.Called(outcome, elapsed)
}
