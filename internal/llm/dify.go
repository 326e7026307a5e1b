package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DifyClient relays chat turns to the Dify chat-messages API. Dify keeps
// conversation state server-side, correlated by the thread id it returns
// on the first turn.
type DifyClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewDifyClient creates a Dify client for one agent's API key.
func NewDifyClient(baseURL, apiKey string, timeout time.Duration) (*DifyClient, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return &DifyClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Name returns the provider name.
func (c *DifyClient) Name() string { return "dify" }

type difyChatRequest struct {
	Inputs         map[string]any `json:"inputs"`
	Query          string         `json:"query"`
	ResponseMode   string         `json:"response_mode"`
	ConversationID string         `json:"conversation_id,omitempty"`
	User           string         `json:"user"`
}

type difyChatEvent struct {
	Event          string `json:"event"`
	Answer         string `json:"answer"`
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
	Metadata       struct {
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	} `json:"metadata"`
}

func (c *DifyClient) newRequest(ctx context.Context, req *CompletionRequest, mode string) (*http.Request, error) {
	body := difyChatRequest{
		Inputs:         map[string]any{},
		Query:          req.Query,
		ResponseMode:   mode,
		ConversationID: req.ThreadID,
		User:           req.SessionUser,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal dify request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat-messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("llm: build dify request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, nil
}

// Complete sends a blocking chat request.
func (c *DifyClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	httpReq, err := c.newRequest(ctx, req, "blocking")
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm: dify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readDifyError(resp)
	}

	var event difyChatEvent
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		return nil, fmt.Errorf("llm: decode dify response: %w", err)
	}

	return &CompletionResponse{
		Content:    event.Answer,
		ThreadID:   event.ConversationID,
		Model:      "dify",
		TokensIn:   event.Metadata.Usage.PromptTokens,
		TokensOut:  event.Metadata.Usage.CompletionTokens,
		StopReason: "stop",
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// CompleteStream sends a streaming chat request, forwarding each answer
// chunk to callback. A canceled context aborts the upstream read.
func (c *DifyClient) CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) (*CompletionResponse, error) {
	start := time.Now()

	httpReq, err := c.newRequest(ctx, req, "streaming")
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm: dify stream request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readDifyError(resp)
	}

	var (
		content   strings.Builder
		threadID  string
		tokensIn  int
		tokensOut int
		index     int
	)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}

		var event difyChatEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			continue
		}

		switch event.Event {
		case "message", "agent_message":
			if event.ConversationID != "" {
				threadID = event.ConversationID
			}
			if event.Answer != "" {
				content.WriteString(event.Answer)
				if err := callback(event.Answer, index); err != nil {
					return nil, err
				}
				index++
			}
		case "message_end":
			if event.ConversationID != "" {
				threadID = event.ConversationID
			}
			tokensIn = event.Metadata.Usage.PromptTokens
			tokensOut = event.Metadata.Usage.CompletionTokens
		case "error":
			return nil, fmt.Errorf("llm: dify stream error: %s", event.Message)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("llm: read dify stream: %w", err)
	}

	return &CompletionResponse{
		Content:    content.String(),
		ThreadID:   threadID,
		Model:      "dify",
		TokensIn:   tokensIn,
		TokensOut:  tokensOut,
		StopReason: "stop",
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

func readDifyError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Message != "" {
		return fmt.Errorf("llm: dify API %d: %s", resp.StatusCode, parsed.Message)
	}
	return fmt.Errorf("llm: dify API returned status %d", resp.StatusCode)
}
