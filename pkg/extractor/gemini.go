package extractor

import (
	"context"
	"fmt"

	"github.com/shouni/go-gemini-client/pkg/gemini"
)

// GeminiBackend は go-gemini-client を Backend に適合させるアダプターです。
type GeminiBackend struct {
	aiClient gemini.GenerativeModel
	model    string
}

// NewGeminiBackend は GeminiBackend を初期化します。
func NewGeminiBackend(aiClient gemini.GenerativeModel, model string) (*GeminiBackend, error) {
	if aiClient == nil {
		return nil, fmt.Errorf("aiClient (gemini.GenerativeModel) is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model name is required")
	}
	return &GeminiBackend{aiClient: aiClient, model: model}, nil
}

// Extract はプロンプトを Gemini へ送り、生テキスト応答を返します。
func (b *GeminiBackend) Extract(ctx context.Context, prompt string) (string, error) {
	resp, err := b.aiClient.GenerateContent(ctx, prompt, b.model)
	if err != nil {
		return "", fmt.Errorf("Gemini API の呼び出しに失敗しました: %w", err)
	}
	return resp.Text, nil
}
