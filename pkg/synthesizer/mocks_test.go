package synthesizer

import "context"

// --- Mocks ---

type stubImageBackend struct {
	image       *Image
	err         error
	calls       int
	lastRequest Request
}

func (s *stubImageBackend) Synthesize(ctx context.Context, req Request) (*Image, error) {
	s.calls++
	s.lastRequest = req
	if s.err != nil {
		return nil, s.err
	}
	return s.image, nil
}

type memorySink struct {
	stored map[string][]byte
	err    error
}

func newMemorySink() *memorySink {
	return &memorySink{stored: make(map[string][]byte)}
}

func (m *memorySink) Store(ctx context.Context, name string, data []byte, mimeType string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	url := "output/images/" + name
	m.stored[url] = data
	return url, nil
}
