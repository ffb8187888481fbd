package sheets

import (
	"context"
	"sync"
)

// MockWriter is a ReportWriter for tests.
type MockWriter struct {
	WriteFunc  func(ctx context.Context, report PipelineReport) error
	LastReport *PipelineReport
	WriteCalls []WriteCall
	mu         sync.Mutex
}

var _ ReportWriter = (*MockWriter)(nil)

// WriteCall records a single call to Write.
type WriteCall struct {
	Error  error
	Report PipelineReport
}

// NewMockWriter creates a new mock writer.
func NewMockWriter() *MockWriter {
	return &MockWriter{}
}

// Write implements ReportWriter.
func (m *MockWriter) Write(ctx context.Context, report PipelineReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.WriteFunc != nil {
		err = m.WriteFunc(ctx, report)
	}

	m.LastReport = &report
	m.WriteCalls = append(m.WriteCalls, WriteCall{Report: report, Error: err})
	return err
}

// Calls returns a copy of all write calls.
func (m *MockWriter) Calls() []WriteCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]WriteCall, len(m.WriteCalls))
	copy(calls, m.WriteCalls)
	return calls
}

// SetWriteError makes every later Write return err.
func (m *MockWriter) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteFunc = func(context.Context, PipelineReport) error {
		return err
	}
}
