// Package streamclient consumes the recommendation and chat streaming
// endpoints, assembling server-sent text fragments into a growing chat
// transcript. It is the client half of the event-stream protocol served by
// the recommend handler.
package streamclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	RoleUser = "user"
	RoleAI   = "ai"
)

// FailedFetchMessage is the terminal transcript message appended when a
// stream cannot be fetched or dies mid-read.
const FailedFetchMessage = "Failed to fetch recommendation."

// NoSessionMessage surfaces a follow-up attempted before any recommendation
// established a session.
const NoSessionMessage = "No session found. Please click 'Ask AI for Recommendation' first."

var (
	// ErrNoSession means a follow-up was sent before a session existed.
	ErrNoSession = errors.New("no session found")
	// ErrStreamBusy means a stream is already in flight for this client.
	ErrStreamBusy = errors.New("a stream is already in progress")
)

// ChatMessage is one transcript entry. Content grows while Streaming is
// true and is final once it flips false.
type ChatMessage struct {
	Role      string
	Content   string
	Streaming bool
}

type streamFrame struct {
	Content string `json:"content"`
	Error   string `json:"error"`
}

// Client talks to the recommendation service. It keeps the transcript and
// the session correlation token across calls. Not safe for concurrent
// streams by design: one conversation, one stream at a time.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// OnUpdate, when set, observes every transcript mutation. The slice is
	// a snapshot; the callback must not retain it past the call.
	OnUpdate func(messages []ChatMessage)

	mu        sync.Mutex
	sessionID string
	messages  []ChatMessage
	active    bool
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// SessionID returns the correlation token captured from the first
// recommendation response, or "" before one exists.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Messages returns a snapshot of the transcript.
func (c *Client) Messages() []ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Reset clears the transcript and session, as when the chat panel closes.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
	c.sessionID = ""
}

// Recommend requests the initial recommendation stream. The request body is
// passed through as-is; the session token from the response header is kept
// for follow-ups. Returns the fully accumulated recommendation text.
func (c *Client) Recommend(ctx context.Context, reqBody interface{}) (string, error) {
	return c.stream(ctx, "/recommend", reqBody, true)
}

// Send submits a follow-up question on the established session. Without a
// session it appends a user-visible error message and returns ErrNoSession
// instead of failing silently.
func (c *Client) Send(ctx context.Context, message string) (string, error) {
	c.mu.Lock()
	sessionID := c.sessionID
	c.mu.Unlock()

	c.appendMessage(ChatMessage{Role: RoleUser, Content: message})

	if sessionID == "" {
		c.appendMessage(ChatMessage{Role: RoleAI, Content: NoSessionMessage})
		return "", ErrNoSession
	}

	body := map[string]string{
		"session_id": sessionID,
		"message":    message,
	}
	return c.stream(ctx, "/chat", body, false)
}

// stream runs one request/consume cycle: issue the POST, then read the body
// line by line, appending each `data: {"content": ...}` fragment to a single
// growing AI message. The displayed message is always the concatenation of
// every fragment received so far, in arrival order.
func (c *Client) stream(ctx context.Context, path string, reqBody interface{}, captureSession bool) (string, error) {
	if err := c.beginStream(); err != nil {
		return "", err
	}
	defer c.endStream()

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.appendMessage(ChatMessage{Role: RoleAI, Content: FailedFetchMessage})
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.appendMessage(ChatMessage{Role: RoleAI, Content: FailedFetchMessage})
		return "", errors.New("unexpected status " + resp.Status)
	}

	if captureSession {
		if sid := resp.Header.Get("X-Session-Id"); sid != "" {
			c.mu.Lock()
			c.sessionID = sid
			c.mu.Unlock()
		}
	}

	c.appendMessage(ChatMessage{Role: RoleAI, Streaming: true})

	var full strings.Builder

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var frame streamFrame
		if err := json.Unmarshal([]byte(line[len("data: "):]), &frame); err != nil {
			// A bad frame is skipped; it must not abort the stream.
			log.Printf("[StreamClient] skipping malformed frame: %v", err)
			continue
		}
		if frame.Error != "" {
			// The server signaled a mid-stream failure; whatever arrived so
			// far is truncated, not a completed reply.
			c.finishStreaming()
			c.appendMessage(ChatMessage{Role: RoleAI, Content: FailedFetchMessage})
			return "", errors.New(frame.Error)
		}
		if frame.Content == "" {
			continue
		}

		full.WriteString(frame.Content)
		c.updateStreaming(full.String())
	}

	if err := scanner.Err(); err != nil {
		// End the partial message so nothing is left permanently streaming,
		// then surface a single terminal error message.
		c.finishStreaming()
		c.appendMessage(ChatMessage{Role: RoleAI, Content: FailedFetchMessage})
		return "", err
	}

	c.finishStreaming()
	return full.String(), nil
}

func (c *Client) beginStream() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return ErrStreamBusy
	}
	c.active = true
	return nil
}

func (c *Client) endStream() {
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
}

func (c *Client) appendMessage(msg ChatMessage) {
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snapshot)
}

// updateStreaming replaces the content of the trailing streaming message.
func (c *Client) updateStreaming(content string) {
	c.mu.Lock()
	if n := len(c.messages); n > 0 && c.messages[n-1].Streaming {
		c.messages[n-1].Content = content
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snapshot)
}

// finishStreaming flips the trailing message's streaming flag off. No
// further mutation of that message happens after this.
func (c *Client) finishStreaming() {
	c.mu.Lock()
	if n := len(c.messages); n > 0 && c.messages[n-1].Streaming {
		c.messages[n-1].Streaming = false
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snapshot)
}

func (c *Client) snapshotLocked() []ChatMessage {
	out := make([]ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Client) notify(snapshot []ChatMessage) {
	if c.OnUpdate != nil {
		c.OnUpdate(snapshot)
	}
}
