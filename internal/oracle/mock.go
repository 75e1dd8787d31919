package oracle

import (
	"context"
	"sync"
)

// MockOracle is a scripted Oracle for tests. Decisions and
// reflections are consumed in order; when a queue runs dry the mock
// returns a finish reflection or a respond decision so loops
// terminate instead of hanging.
type MockOracle struct {
	mu sync.Mutex

	Decisions   []Decision
	Reflections []Reflection
	Continues   bool

	ThinkInputs   []ThinkInput
	ReflectInputs []ReflectInput
}

var _ Oracle = (*MockOracle)(nil)

func (m *MockOracle) Think(_ context.Context, in ThinkInput) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ThinkInputs = append(m.ThinkInputs, in)
	if len(m.Decisions) == 0 {
		return Decision{Kind: DecisionRespond, Text: "nothing scripted"}, nil
	}
	d := m.Decisions[0]
	m.Decisions = m.Decisions[1:]
	return d, nil
}

func (m *MockOracle) Reflect(_ context.Context, in ReflectInput) (Reflection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReflectInputs = append(m.ReflectInputs, in)
	if len(m.Reflections) == 0 {
		return Reflection{Kind: ReflectFinish, Summary: "done"}, nil
	}
	r := m.Reflections[0]
	m.Reflections = m.Reflections[1:]
	return r, nil
}

func (m *MockOracle) ContinuesTask(_ context.Context, _, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Continues, nil
}
