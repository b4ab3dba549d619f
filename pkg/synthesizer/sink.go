package synthesizer

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// RemoteSink は remoteio.OutputWriter 経由で画像を保存する Sink 実装です。
// 出力先はローカルディレクトリでも gs:// バケットでも構いません。
type RemoteSink struct {
	writer  remoteio.OutputWriter
	baseDir string
}

// NewRemoteSink は RemoteSink を初期化します。
func NewRemoteSink(writer remoteio.OutputWriter, baseDir string) (*RemoteSink, error) {
	if writer == nil {
		return nil, fmt.Errorf("writer (remoteio.OutputWriter) is required")
	}
	return &RemoteSink{writer: writer, baseDir: baseDir}, nil
}

// Store は画像バイト列を保存し、保存先のパス（URL）を返します。
func (s *RemoteSink) Store(ctx context.Context, name string, data []byte, mimeType string) (string, error) {
	fullPath := path.Join(s.baseDir, name+extensionFor(mimeType))
	if err := s.writer.Write(ctx, fullPath, bytes.NewReader(data), mimeType); err != nil {
		return "", fmt.Errorf("画像の書き込みに失敗しました (%s): %w", fullPath, err)
	}
	return fullPath, nil
}

func extensionFor(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "jpeg"), strings.Contains(mimeType, "jpg"):
		return ".jpg"
	case strings.Contains(mimeType, "webp"):
		return ".webp"
	default:
		return ".png"
	}
}
