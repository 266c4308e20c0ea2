package tts

import (
	"context"
	"sync"
)

// MockClient allows narration tests without a real synthesis provider.
// Safe for concurrent use; superseded requests may overlap in flight.
type MockClient struct {
	Audio []byte
	Err   error
	Wait  func(ctx context.Context) error

	mu    sync.Mutex
	calls []string
}

func (m *MockClient) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, text)
	m.mu.Unlock()

	if m.Wait != nil {
		if err := m.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return m.Audio, m.Err
}

// Texts returns a copy of the synthesized texts so far.
func (m *MockClient) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}
