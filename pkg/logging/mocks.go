package logging

import (
	"github.com/stretchr/testify/mock"
)

// MockLogger is a mock implementation of the Logger interface.
type MockLogger struct {
	mock.Mock
}

var _ Logger = (*MockLogger)(nil)

// SetupDefaultExpectations allows all logger methods to be called with any
// arguments without failing the test. Use when the test does not assert on
// specific log calls.
func (m *MockLogger) SetupDefaultExpectations() {
	for _, method := range []string{"Debug", "Info", "Warn", "Error", "Fatal"} {
		m.On(method, mock.Anything, mock.Anything).Maybe().Return()
	}
	for _, method := range []string{"Debugf", "Infof", "Warnf", "Errorf", "Fatalf"} {
		m.On(method, mock.Anything, mock.Anything).Maybe().Return()
	}
	m.On("With", mock.Anything).Maybe().Return(m)
}

func (m *MockLogger) Debug(msg string, keysAndValues ...interface{}) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Warn(msg string, keysAndValues ...interface{}) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Fatal(msg string, keysAndValues ...interface{}) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Debugf(template string, args ...interface{}) {
	m.Called(template, args)
}

func (m *MockLogger) Infof(template string, args ...interface{}) {
	m.Called(template, args)
}

func (m *MockLogger) Warnf(template string, args ...interface{}) {
	m.Called(template, args)
}

func (m *MockLogger) Errorf(template string, args ...interface{}) {
	m.Called(template, args)
}

func (m *MockLogger) Fatalf(template string, args ...interface{}) {
	m.Called(template, args)
}

func (m *MockLogger) With(keysAndValues ...interface{}) Logger {
	args := m.Called(keysAndValues)
	if l, ok := args.Get(0).(Logger); ok {
		return l
	}
	return m
}

// NoopLogger discards everything. Handy for tests that do not care about
// logging at all.
type NoopLogger struct{}

var _ Logger = (*NoopLogger)(nil)

func (NoopLogger) Debug(string, ...interface{})  {}
func (NoopLogger) Info(string, ...interface{})   {}
func (NoopLogger) Warn(string, ...interface{})   {}
func (NoopLogger) Error(string, ...interface{})  {}
func (NoopLogger) Fatal(string, ...interface{})  {}
func (NoopLogger) Debugf(string, ...interface{}) {}
func (NoopLogger) Infof(string, ...interface{})  {}
func (NoopLogger) Warnf(string, ...interface{})  {}
func (NoopLogger) Errorf(string, ...interface{}) {}
func (NoopLogger) Fatalf(string, ...interface{}) {}
func (n NoopLogger) With(...interface{}) Logger  { return n }
