package pipeline

import (
	"sync"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// DefaultSubscriberBuffer は購読チャネルの既定バッファ長です。
const DefaultSubscriberBuffer = 64

// Broadcaster は進捗イベントを複数の購読者（UI、ログ、テスト）へ配るのだ。
// 発行は決してブロックしない: バッファの埋まった購読者へのイベントは
// 黙って捨てられます。進捗は単調非減少なので、取りこぼしても次の
// イベントで追いつけるのだ。
type Broadcaster struct {
	mu     sync.Mutex
	subs   []chan domain.ProgressEvent
	closed bool
}

// NewBroadcaster は Broadcaster を初期化します。
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Subscribe は新しい購読チャネルを返します。buffer が 0 以下のときは
// DefaultSubscriberBuffer を使うのだ。
func (b *Broadcaster) Subscribe(buffer int) <-chan domain.ProgressEvent {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	ch := make(chan domain.ProgressEvent, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Publish はイベントを全購読者へノンブロッキングで配信します。
func (b *Broadcaster) Publish(event domain.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			// 追いつけない購読者は待たずにスキップするのだ
		}
	}
}

// Close は全購読チャネルを閉じ、以後の発行を無視します。
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
