// Package retrieval is an HTTP client for the managed RAG assistant
// collaborator.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// AssistantClient queries a chat-style retrieval assistant. All failures
// are returned as errors; the pipeline maps them to empty context.
type AssistantClient struct {
	baseURL       string
	apiKey        string
	assistantName string
	httpClient    *http.Client
}

// NewAssistantClient creates a retrieval assistant client.
func NewAssistantClient(baseURL, apiKey, assistantName string, timeout time.Duration) *AssistantClient {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &AssistantClient{
		baseURL:       baseURL,
		apiKey:        apiKey,
		assistantName: assistantName,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Citations []citation `json:"citations"`
}

type citation struct {
	Text       string `json:"text"`
	References []struct {
		File struct {
			Name string `json:"name"`
		} `json:"file"`
		Pages []int `json:"pages"`
	} `json:"references"`
}

// Query sends the user's question to the assistant and returns the answer
// content with citation excerpts appended.
func (c *AssistantClient) Query(ctx context.Context, query string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Messages: []chatMessage{{Role: "user", Content: query}},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/assistant/chat/%s", c.baseURL, c.assistantName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("assistant returned %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("malformed assistant response: %w", err)
	}

	var b strings.Builder
	b.WriteString(parsed.Message.Content)
	for _, cit := range parsed.Citations {
		if cit.Text == "" {
			continue
		}
		source := "unknown"
		if len(cit.References) > 0 && cit.References[0].File.Name != "" {
			source = cit.References[0].File.Name
		}
		b.WriteString("\n\n[Source: ")
		b.WriteString(source)
		b.WriteString("] ")
		b.WriteString(cit.Text)
	}
	return b.String(), nil
}
