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

const anthropicEndpoint = "https://api.anthropic.com/v1/messages"

// anthropicBackend ranks papers through the Anthropic messages API.
type anthropicBackend struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

var _ ports.RankingBackend = (*anthropicBackend)(nil)

func newAnthropicBackend(apiKey, model string, client *http.Client) *anthropicBackend {
	return &anthropicBackend{apiKey: apiKey, model: model, httpClient: client}
}

func (b *anthropicBackend) Name() string {
	return fmt.Sprintf("anthropic (%s)", b.model)
}

func (b *anthropicBackend) Submit(ctx context.Context, paper domain.Paper, interests string) (ports.RankVerdict, error) {
	body, err := json.Marshal(map[string]any{
		"model":      b.model,
		"max_tokens": 256,
		"messages": []map[string]string{
			{"role": "user", "content": buildPrompt(interests, paper)},
		},
	})
	if err != nil {
		return ports.RankVerdict{}, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicEndpoint, bytes.NewReader(body))
	if err != nil {
		return ports.RankVerdict{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("x-api-key", b.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
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
		return ports.RankVerdict{}, fmt.Errorf("anthropic error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return ports.RankVerdict{}, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return ports.RankVerdict{}, fmt.Errorf("anthropic returned no content blocks")
	}

	return parseVerdict(parsed.Content[0].Text)
}
