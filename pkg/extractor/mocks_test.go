package extractor

import "context"

// --- Mocks ---

type stubBackend struct {
	response string
	err      error
	prompts  []string
}

func (s *stubBackend) Extract(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}
