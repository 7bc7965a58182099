// Package llm contains the ranking backends, one per supported provider.
package llm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"paperdigest/internal/config"
	"paperdigest/internal/domain"
	"paperdigest/internal/ports"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	maxAbstractChars   = 1000
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// NewBackend builds the ranking backend selected by configuration.
// Selection happens here once; callers never inspect provider types.
func NewBackend(cfg config.LLMConfig) (ports.RankingBackend, error) {
	client := &http.Client{Timeout: defaultHTTPTimeout}

	switch cfg.Provider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, &domain.ConfigError{Field: "llm.anthropicApiKey", Msg: "required for anthropic provider"}
		}
		return newAnthropicBackend(cfg.AnthropicAPIKey, cfg.AnthropicModel, client), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, &domain.ConfigError{Field: "llm.openaiApiKey", Msg: "required for openai provider"}
		}
		return newOpenAIBackend(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIEndpoint, client), nil
	case "ollama":
		if cfg.OllamaHost == "" {
			return nil, &domain.ConfigError{Field: "llm.ollamaHost", Msg: "required for ollama provider"}
		}
		return newOllamaBackend(cfg.OllamaHost, cfg.OllamaModel, client), nil
	default:
		return nil, &domain.ConfigError{Field: "llm.provider", Msg: "unknown provider " + cfg.Provider}
	}
}

// buildPrompt asks for a strict JSON verdict so the response stays parseable.
func buildPrompt(interests string, paper domain.Paper) string {
	abstract := paper.Abstract
	if len(abstract) > maxAbstractChars {
		abstract = abstract[:maxAbstractChars]
	}
	return fmt.Sprintf(`Rate this paper's relevance to the following research interests on a scale of 1-10.
Be strict - only give 8+ for papers directly relevant to the interests.

Research interests: %s

Paper title: %s
Abstract: %s

Respond with ONLY a JSON object in this exact format (no other text):
{"score": <number 1-10>, "reason": "<brief 1-sentence explanation>"}`, interests, paper.Title, abstract)
}

// parseVerdict extracts the {score, reason} object from raw model output,
// tolerating markdown code fences around the JSON.
func parseVerdict(raw string) (ports.RankVerdict, error) {
	content := strings.TrimSpace(raw)
	if match := fencedBlock.FindStringSubmatch(content); match != nil {
		content = match[1]
	}

	var parsed struct {
		Score  json.Number `json:"score"`
		Reason string      `json:"reason"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ports.RankVerdict{}, fmt.Errorf("parse verdict: %w", err)
	}

	score, err := parsed.Score.Float64()
	if err != nil {
		return ports.RankVerdict{}, fmt.Errorf("parse score %q: %w", parsed.Score, err)
	}

	return ports.RankVerdict{Score: score, Reason: parsed.Reason}, nil
}
