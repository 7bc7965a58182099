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

// ollamaBackend ranks papers through a local Ollama instance.
type ollamaBackend struct {
	host       string
	model      string
	httpClient *http.Client
}

var _ ports.RankingBackend = (*ollamaBackend)(nil)

func newOllamaBackend(host, model string, client *http.Client) *ollamaBackend {
	return &ollamaBackend{
		host:       strings.TrimRight(host, "/"),
		model:      model,
		httpClient: client,
	}
}

func (b *ollamaBackend) Name() string {
	return fmt.Sprintf("ollama (%s)", b.model)
}

func (b *ollamaBackend) Submit(ctx context.Context, paper domain.Paper, interests string) (ports.RankVerdict, error) {
	body, err := json.Marshal(map[string]any{
		"model":  b.model,
		"prompt": buildPrompt(interests, paper),
		"stream": false,
	})
	if err != nil {
		return ports.RankVerdict{}, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return ports.RankVerdict{}, fmt.Errorf("new request: %w", err)
	}
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
		return ports.RankVerdict{}, fmt.Errorf("ollama error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return ports.RankVerdict{}, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Response == "" {
		return ports.RankVerdict{}, fmt.Errorf("ollama returned an empty response")
	}

	return parseVerdict(parsed.Response)
}
