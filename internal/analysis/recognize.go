package analysis

import (
	"context"
	"time"
)

// KeepAliveFrame is the SSE comment emitted while recognition is in flight.
// Comment lines keep proxies (nginx in particular) flushing the stream and
// are ignored by SSE-aware frontends.
const KeepAliveFrame = ": processing ocr keep-alive\n\n"

const defaultHeartbeatInterval = 2 * time.Second

type ocrResult struct {
	text string
	err  error
}

// recognizeWithHeartbeat runs the blocking recognition call on its own
// goroutine and emits a keep-alive frame on every tick until the result
// arrives. The worker deposits exactly one result into a buffered channel,
// so it never leaks even when the caller's context is cancelled first; its
// result is simply discarded.
func (s *Service) recognizeWithHeartbeat(ctx context.Context, document []byte, emit func(string) bool) (string, error) {
	results := make(chan ocrResult, 1)
	go func() {
		text, err := s.ocr.Recognize(ctx, document)
		results <- ocrResult{text: text, err: err}
	}()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case r := <-results:
			return r.text, r.err
		case <-ticker.C:
			if !emit(KeepAliveFrame) {
				return "", ctx.Err()
			}
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}
