// Package relayclient is a small HTTP client for the chat relay API.
package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"healthchat-relay/internal/models"
)

// APIError is a non-2xx answer from the relay. Message holds the plain-text
// body for 400s and the "error" field for JSON failures.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("relay returned %d: %s (request %s)", e.StatusCode, e.Message, e.RequestID)
	}
	return fmt.Sprintf("relay returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Greeting(ctx context.Context) (string, error) {
	var resp models.WelcomeResponse
	if err := c.do(ctx, http.MethodGet, "/", nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Ask sends prompt within conversationID. An empty conversationID starts a
// new conversation; the returned response carries its ID.
func (c *Client) Ask(ctx context.Context, conversationID, prompt string) (models.ChatResponse, error) {
	var resp models.ChatResponse
	req := models.ChatRequest{Prompt: prompt, ConversationID: conversationID}
	if err := c.do(ctx, http.MethodPost, "/chat", req, &resp); err != nil {
		return models.ChatResponse{}, err
	}
	return resp, nil
}

// AskStateless sends a one-off question that is not recorded anywhere.
func (c *Client) AskStateless(ctx context.Context, input string) (string, error) {
	var resp models.StatelessChatResponse
	if err := c.do(ctx, http.MethodPost, "/chat", models.ChatRequest{UserInput: input}, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

func (c *Client) History(ctx context.Context, conversationID string) ([]models.ConversationTurn, error) {
	var resp models.HistoryResponse
	path := "/chat/" + url.PathEscape(conversationID) + "/history"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Turns, nil
}

func (c *Client) Reset(ctx context.Context, conversationID string) error {
	return c.do(ctx, http.MethodDelete, "/chat/"+url.PathEscape(conversationID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("couldn't marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("couldn't create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("couldn't reach relay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("couldn't decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(raw)),
		RequestID:  resp.Header.Get("X-Request-ID"),
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var body models.ErrorResponse
		if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
			apiErr.Message = body.Error
		}
	}
	return apiErr
}
