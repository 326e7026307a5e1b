package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func difyStreamServer(t *testing.T, lines []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat-messages", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprintf(w, "data: %s\n\n", line)
		}
	}))
}

func TestDifyCompleteStream(t *testing.T) {
	srv := difyStreamServer(t, []string{
		`{"event":"message","answer":"Hel","conversation_id":"conv-1"}`,
		`{"event":"message","answer":"lo"}`,
		`{"event":"message_end","conversation_id":"conv-1","metadata":{"usage":{"prompt_tokens":12,"completion_tokens":4}}}`,
	})
	defer srv.Close()

	client, err := NewDifyClient(srv.URL, "test-key", 5*time.Second)
	require.NoError(t, err)

	var chunks []string
	resp, err := client.CompleteStream(context.Background(), &CompletionRequest{
		Query:       "hi",
		SessionUser: "session-1",
	}, func(chunk string, index int) error {
		chunks = append(chunks, chunk)
		assert.Equal(t, len(chunks)-1, index)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello", resp.Content)
	assert.Equal(t, "conv-1", resp.ThreadID)
	assert.Equal(t, 12, resp.TokensIn)
	assert.Equal(t, 4, resp.TokensOut)
	assert.Equal(t, []string{"Hel", "lo"}, chunks)
}

func TestDifyStreamErrorEvent(t *testing.T) {
	srv := difyStreamServer(t, []string{
		`{"event":"message","answer":"partial"}`,
		`{"event":"error","message":"quota exceeded"}`,
	})
	defer srv.Close()

	client, err := NewDifyClient(srv.URL, "test-key", 5*time.Second)
	require.NoError(t, err)

	_, err = client.CompleteStream(context.Background(), &CompletionRequest{Query: "hi"}, func(string, int) error {
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestDifyComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"event":"message","answer":"42","conversation_id":"conv-9","metadata":{"usage":{"prompt_tokens":3,"completion_tokens":1}}}`)
	}))
	defer srv.Close()

	client, err := NewDifyClient(srv.URL, "test-key", 5*time.Second)
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), &CompletionRequest{Query: "meaning of life"})
	require.NoError(t, err)
	assert.Equal(t, "42", resp.Content)
	assert.Equal(t, "conv-9", resp.ThreadID)
}

func TestDifyAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"invalid API key"}`)
	}))
	defer srv.Close()

	client, err := NewDifyClient(srv.URL, "test-key", 5*time.Second)
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), &CompletionRequest{Query: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid API key")
}

func TestDifyRequiresAPIKey(t *testing.T) {
	_, err := NewDifyClient("https://api.dify.example", "", time.Second)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}
