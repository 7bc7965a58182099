package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"paperdigest/internal/domain"
	"paperdigest/internal/ports"
)

// openAIBackend ranks papers through the OpenAI chat-completions API.
type openAIBackend struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

var _ ports.RankingBackend = (*openAIBackend)(nil)

func newOpenAIBackend(apiKey, model, endpoint string, client *http.Client) *openAIBackend {
	return &openAIBackend{
		apiKey:     apiKey,
		model:      model,
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: client,
	}
}

func (b *openAIBackend) Name() string {
	return fmt.Sprintf("openai (%s)", b.model)
}

func (b *openAIBackend) Submit(ctx context.Context, paper domain.Paper, interests string) (ports.RankVerdict, error) {
	body, err := json.Marshal(map[string]any{
		"model": b.model,
		"messages": []map[string]string{
			{"role": "system", "content": "You are a concise research assistant."},
			{"role": "user", "content": buildPrompt(interests, paper)},
		},
		"temperature": 0.2,
	})
	if err != nil {
		return ports.RankVerdict{}, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return ports.RankVerdict{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return ports.RankVerdict{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return ports.RankVerdict{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return ports.RankVerdict{}, fmt.Errorf("openai error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return ports.RankVerdict{}, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return ports.RankVerdict{}, fmt.Errorf("openai returned no choices")
	}

	return parseVerdict(parsed.Choices[0].Message.Content)
}
