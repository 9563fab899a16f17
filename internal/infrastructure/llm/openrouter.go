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

	"PageVault/internal/config"
	"PageVault/internal/domain"
	"PageVault/internal/ports"
)

// OpenRouterClient implements ports.Summarizer backed by an
// OpenAI-compatible chat-completions API.
type OpenRouterClient struct {
	baseURL       string
	apiKey        string
	model         string
	summaryPrompt string
	tagPrompt     string
	httpClient    *http.Client
}

var _ ports.Summarizer = (*OpenRouterClient)(nil)

// NewOpenRouterClient builds a client from configuration.
func NewOpenRouterClient(cfg config.OpenRouterConfig) *OpenRouterClient {
	return &OpenRouterClient{
		baseURL:       cfg.BaseURL,
		apiKey:        cfg.APIKey,
		model:         cfg.Model,
		summaryPrompt: cfg.SummaryPrompt,
		tagPrompt:     cfg.TagPrompt,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Summarize streams a summary of the content, feeding each token chunk to
// emit in order. The stream is single-pass; the caller accumulates chunks
// and persists the final text itself.
func (c *OpenRouterClient) Summarize(ctx context.Context, content string, emit func(chunk string) error) error {
	if emit == nil {
		return fmt.Errorf("emit callback is nil")
	}

	resp, err := c.send(ctx, chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.summaryPrompt},
			{Role: "user", Content: "Please summarize the following content:\n\n" + content},
		},
		Stream: true,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return fmt.Errorf("decode stream chunk: %w", err)
		}

		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if err := emit(choice.Delta.Content); err != nil {
				return fmt.Errorf("emit chunk: %w", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}

	return nil
}

// ExtractTags asks the model for a comma-separated tag list and parses it
// into at most five normalized tokens.
func (c *OpenRouterClient) ExtractTags(ctx context.Context, summary string) ([]string, error) {
	resp, err := c.send(ctx, chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.tagPrompt},
			{Role: "user", Content: "Extract tags from this summary: \n\n" + summary},
		},
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("empty completion")
	}

	return domain.ParseTags(parsed.Choices[0].Message.Content), nil
}

func (c *OpenRouterClient) send(ctx context.Context, payload chatRequest) (*http.Response, error) {
	if c.apiKey == "" || c.baseURL == "" || c.model == "" {
		return nil, fmt.Errorf("openrouter client misconfigured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("openrouter error %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	return resp, nil
}
