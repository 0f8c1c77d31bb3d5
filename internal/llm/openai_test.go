package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseChunk(content string) string {
	return fmt.Sprintf(`data: {"choices":[{"delta":{"content":%q}}]}`+"\n\n", content)
}

func newStreamServer(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIClient(OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	})
}

func collect(t *testing.T, ch <-chan StreamDelta) (string, error) {
	t.Helper()
	var text string
	for d := range ch {
		if d.Err != nil {
			return text, d.Err
		}
		text += d.Content
	}
	return text, nil
}

func TestChatStream_HappyPath(t *testing.T) {
	client := newStreamServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("你好"))
		fmt.Fprint(w, sseChunk("，世界"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	ch, err := client.ChatStream(context.Background(), []Message{
		{Role: RoleSystem, Content: "system prompt"},
		{Role: RoleUser, Content: "user prompt"},
	}, 0.7)
	require.NoError(t, err)

	text, streamErr := collect(t, ch)
	require.NoError(t, streamErr)
	assert.Equal(t, "你好，世界", text)
}

func TestChatStream_EmptyChoicesSkipped(t *testing.T) {
	client := newStreamServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `data: {"choices":[]}`+"\n\n")
		fmt.Fprint(w, sseChunk("ok"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	ch, err := client.ChatStream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 0)
	require.NoError(t, err)

	text, streamErr := collect(t, ch)
	require.NoError(t, streamErr)
	assert.Equal(t, "ok", text)
}

func TestChatStream_NoMessages(t *testing.T) {
	client := NewOpenAIClient(OpenAIConfig{APIKey: "k"})
	_, err := client.ChatStream(context.Background(), nil, 0)
	assert.Error(t, err)
}

func TestChatStream_UpstreamStatusErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newStreamServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	})

	_, err := client.ChatStream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Equal(t, int32(1), calls.Load(), "status errors must not be retried")
}

func TestChatStream_MalformedChunkSurfacesError(t *testing.T) {
	client := newStreamServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sseChunk("partial"))
		fmt.Fprint(w, "data: {not json\n\n")
	})

	ch, err := client.ChatStream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 0)
	require.NoError(t, err)

	text, streamErr := collect(t, ch)
	assert.Equal(t, "partial", text)
	assert.ErrorContains(t, streamErr, "malformed stream chunk")
}

func TestChatStream_AbortedStreamSurfacesError(t *testing.T) {
	client := newStreamServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sseChunk("begin"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		panic(http.ErrAbortHandler)
	})

	ch, err := client.ChatStream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 0)
	require.NoError(t, err)

	text, streamErr := collect(t, ch)
	assert.Equal(t, "begin", text)
	assert.ErrorContains(t, streamErr, "stream read failed")
}

func TestChatStream_CircuitOpensAfterConsecutiveFailures(t *testing.T) {
	client := newStreamServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	for i := 0; i < 3; i++ {
		_, err := client.ChatStream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 0)
		require.Error(t, err)
		require.False(t, errors.Is(err, ErrCircuitOpen), "circuit must stay closed for the first failures")
	}

	_, err := client.ChatStream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 0)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestGetModel(t *testing.T) {
	assert.Equal(t, "gpt-4o-mini", NewOpenAIClient(OpenAIConfig{}).GetModel())
	assert.Equal(t, "custom", NewOpenAIClient(OpenAIConfig{Model: "custom"}).GetModel())
}
