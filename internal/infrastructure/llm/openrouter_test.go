package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"PageVault/internal/config"
)

func testConfig(baseURL string) config.OpenRouterConfig {
	return config.OpenRouterConfig{
		BaseURL:       baseURL,
		APIKey:        "test-key",
		Model:         "test/model",
		SummaryPrompt: "summarize",
		TagPrompt:     "tag",
	}
}

func TestSummarizeStreamsChunks(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["stream"] != true {
			t.Error("expected stream:true")
		}
		if req["model"] != "test/model" {
			t.Errorf("unexpected model: %v", req["model"])
		}

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(
			"data: {\"choices\":[{\"delta\":{\"content\":\"Hello \"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"world\"}}]}\n\n" +
				": comment line ignored\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\".\"}}]}\n\n" +
				"data: [DONE]\n\n"))
	}))
	defer server.Close()

	client := NewOpenRouterClient(testConfig(server.URL))

	var chunks []string
	err := client.Summarize(context.Background(), "some content", func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}

	if got := strings.Join(chunks, ""); got != "Hello world." {
		t.Fatalf("unexpected accumulated summary: %q", got)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
}

func TestSummarizeEmitErrorAborts(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(
			"data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n\n" +
				"data: [DONE]\n\n"))
	}))
	defer server.Close()

	client := NewOpenRouterClient(testConfig(server.URL))

	calls := 0
	err := client.Summarize(context.Background(), "content", func(string) error {
		calls++
		return context.Canceled
	})
	if err == nil {
		t.Fatal("expected error from aborted emit")
	}
	if calls != 1 {
		t.Fatalf("expected stream to stop after first emit, got %d calls", calls)
	}
}

func TestExtractTags(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["stream"] != nil {
			t.Error("tag extraction must not stream")
		}

		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"content": "Tech, AI,AI, , Research,Extra,Overflow"}}]
		}`))
	}))
	defer server.Close()

	client := NewOpenRouterClient(testConfig(server.URL))

	tags, err := client.ExtractTags(context.Background(), "a summary")
	if err != nil {
		t.Fatalf("ExtractTags error: %v", err)
	}

	if len(tags) != 5 {
		t.Fatalf("expected 5 tags, got %d: %v", len(tags), tags)
	}
	for _, tag := range tags {
		if tag == "" {
			t.Fatal("tags must be non-empty")
		}
		if tag != strings.ToLower(strings.TrimSpace(tag)) {
			t.Fatalf("tag %q is not normalized", tag)
		}
	}
}

func TestExtractTagsUpstreamError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewOpenRouterClient(testConfig(server.URL))

	if _, err := client.ExtractTags(context.Background(), "a summary"); err == nil {
		t.Fatal("expected error on upstream failure")
	}
}

func TestMisconfiguredClient(t *testing.T) {
	t.Parallel()

	client := NewOpenRouterClient(config.OpenRouterConfig{BaseURL: "http://example.com"})

	if _, err := client.ExtractTags(context.Background(), "x"); err == nil {
		t.Fatal("expected misconfiguration error without api key")
	}
}
