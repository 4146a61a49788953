package backend

import (
	"context"

	"github.com/TechnoServe/mfiscore/internal/score"
)

// MockSource is a test double that returns canned records.
type MockSource struct {
	Data []score.Record
	Err  error
	// Cycles records the cycle of every call.
	Cycles []string
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) Records(_ context.Context, cycle string) ([]score.Record, error) {
	m.Cycles = append(m.Cycles, cycle)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Data, nil
}
