package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatBackend(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, frame := range frames {
			fmt.Fprintf(w, "%s\n\n", frame)
			flusher.Flush()
		}
	}))
}

func chunkFrame(content string) string {
	return fmt.Sprintf(`data: {"choices": [{"delta": {"content": %q}}]}`, content)
}

func drain(t *testing.T, chunks <-chan string, errs <-chan error) (string, error) {
	t.Helper()
	var full string
	for c := range chunks {
		full += c
	}
	return full, <-errs
}

func TestStreamChatDeliversChunks(t *testing.T) {
	srv := chatBackend(t, []string{
		chunkFrame("Hel"),
		chunkFrame("lo"),
		`data: [DONE]`,
	})
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "llama3.2", 0.7)
	chunks, errs := client.StreamChat(context.Background(), []ChatTurn{{Role: "user", Content: "hi"}})

	full, err := drain(t, chunks, errs)
	require.NoError(t, err)
	assert.Equal(t, "Hello", full)
}

func TestStreamChatSkipsMalformedFrames(t *testing.T) {
	srv := chatBackend(t, []string{
		chunkFrame("a"),
		`data: {broken`,
		`: comment line`,
		chunkFrame("b"),
	})
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "llama3.2", 0.7)
	chunks, errs := client.StreamChat(context.Background(), nil)

	full, err := drain(t, chunks, errs)
	require.NoError(t, err)
	assert.Equal(t, "ab", full)
}

func TestStreamChatBackendDown(t *testing.T) {
	srv := chatBackend(t, nil)
	srv.Close()

	client := NewOllamaClient(srv.URL, "llama3.2", 0.7)
	chunks, errs := client.StreamChat(context.Background(), nil)

	_, err := drain(t, chunks, errs)
	require.Error(t, err)
}

func TestStreamChatNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "nope", 0.7)
	chunks, errs := client.StreamChat(context.Background(), nil)

	_, err := drain(t, chunks, errs)
	require.Error(t, err)
}

func TestStreamChatCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprintf(w, "%s\n\n", chunkFrame("start"))
		flusher.Flush()
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())

	client := NewOllamaClient(srv.URL, "llama3.2", 0.7)
	chunks, errs := client.StreamChat(ctx, nil)

	<-chunks
	cancel()

	for range chunks {
	}
	<-errs
}

func TestComplete(t *testing.T) {
	srv := chatBackend(t, []string{chunkFrame("one "), chunkFrame("two")})
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "llama3.2", 0.7)
	full, err := Complete(context.Background(), client, []ChatTurn{{Role: "user", Content: "count"}})
	require.NoError(t, err)
	assert.Equal(t, "one two", full)
}
