package ocr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *TextInClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewTextInClient(TextInConfig{
		AppID:      "app-id",
		SecretCode: "secret",
		BaseURL:    srv.URL,
	})
}

func TestRecognize_HappyPath(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ai/service/v1/pdf_to_markdown", r.URL.Path)
		assert.Equal(t, "app-id", r.Header.Get("x-ti-app-id"))
		assert.Equal(t, "secret", r.Header.Get("x-ti-secret-code"))
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF-fake"), body)

		fmt.Fprint(w, `{"code":200,"result":{"markdown":"# 方案标题\n正文"}}`)
	})

	text, err := client.Recognize(context.Background(), []byte("%PDF-fake"))
	require.NoError(t, err)
	assert.Equal(t, "# 方案标题\n正文", text)
}

func TestRecognize_MissingCredentials(t *testing.T) {
	client := NewTextInClient(TextInConfig{})
	_, err := client.Recognize(context.Background(), []byte("doc"))
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestRecognize_EmptyDocument(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for an empty document")
	})

	_, err := client.Recognize(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestRecognize_UpstreamHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})

	_, err := client.Recognize(context.Background(), []byte("doc"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestRecognize_APILevelError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":40303,"message":"file type not supported"}`)
	})

	_, err := client.Recognize(context.Background(), []byte("doc"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "40303")
	assert.Contains(t, err.Error(), "file type not supported")
}

func TestRecognize_EmptyMarkdownPassedThrough(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":200,"result":{"markdown":""}}`)
	})

	text, err := client.Recognize(context.Background(), []byte("doc"))
	require.NoError(t, err)
	assert.Equal(t, "", text, "empty recognition is the caller's decision, not an error")
}
