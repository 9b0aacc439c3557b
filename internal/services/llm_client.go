package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// ChatTurn is one message in a conversation with the model.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMStreamer produces incremental content deltas for a conversation.
// Implemented by OllamaClient; handlers and tests see only the interface.
type LLMStreamer interface {
	StreamChat(ctx context.Context, turns []ChatTurn) (<-chan string, <-chan error)
}

// OllamaClient speaks the OpenAI-compatible /v1/chat/completions streaming
// API exposed by Ollama and most hosted providers.
type OllamaClient struct {
	BaseURL     string
	Model       string
	Temperature float64
	HTTPClient  *http.Client
}

func NewOllamaClient(baseURL, model string, temperature float64) *OllamaClient {
	return &OllamaClient{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Model:       model,
		Temperature: temperature,
		HTTPClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

type chatCompletionRequest struct {
	Model       string     `json:"model"`
	Messages    []ChatTurn `json:"messages"`
	Temperature float64    `json:"temperature"`
	Stream      bool       `json:"stream"`
}

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// StreamChat opens a streaming completion and returns a channel of content
// deltas. Malformed stream lines are skipped, never fatal; the error channel
// carries at most one terminal error.
func (c *OllamaClient) StreamChat(ctx context.Context, turns []ChatTurn) (<-chan string, <-chan error) {
	contentChan := make(chan string, 100)
	errorChan := make(chan error, 1)

	go func() {
		defer close(contentChan)
		defer close(errorChan)

		if _, hasDeadline := ctx.Deadline(); !hasDeadline {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.HTTPClient.Timeout)
			defer cancel()
		}

		reqBody := chatCompletionRequest{
			Model:       c.Model,
			Messages:    turns,
			Temperature: c.Temperature,
			Stream:      true,
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			errorChan <- fmt.Errorf("failed to marshal request: %w", err)
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/chat/completions", bytes.NewReader(jsonData))
		if err != nil {
			errorChan <- fmt.Errorf("failed to create request: %w", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			errorChan <- fmt.Errorf("request failed: %w", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			errorChan <- fmt.Errorf("llm request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "" {
				continue
			}
			if data == "[DONE]" {
				return
			}

			var chunk chatCompletionChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				log.Printf("[LLM] skipping malformed stream line: %v", err)
				continue
			}
			if chunk.Error != nil {
				errorChan <- fmt.Errorf("llm error: %s", chunk.Error.Message)
				return
			}
			if len(chunk.Choices) > 0 {
				delta := chunk.Choices[0].Delta.Content
				if delta != "" {
					select {
					case contentChan <- delta:
					case <-ctx.Done():
						return
					}
				}
			}
		}
		if err := scanner.Err(); err != nil {
			errorChan <- fmt.Errorf("stream error: %w", err)
		}
	}()

	return contentChan, errorChan
}

// Complete runs a streaming completion to the end and returns the full text.
// Used for the ingredient summary, which is not streamed to the client.
func Complete(ctx context.Context, llm LLMStreamer, turns []ChatTurn) (string, error) {
	contentChan, errorChan := llm.StreamChat(ctx, turns)

	var sb strings.Builder
	for delta := range contentChan {
		sb.WriteString(delta)
	}
	if err := <-errorChan; err != nil {
		return "", err
	}
	return sb.String(), nil
}
