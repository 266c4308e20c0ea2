package llm

import "context"

// MockClient allows tests without calling a real LLM.
type MockClient struct {
	Response string
	Err      error
	Delay    func(ctx context.Context) error
	Prompts  []string
}

func (m *MockClient) Generate(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Delay != nil {
		if err := m.Delay(ctx); err != nil {
			return "", err
		}
	}
	return m.Response, m.Err
}
