package email

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ComputeDigestID derives a stable identifier from the sending parameters,
// so reruns for the same date and recipient set map to the same marker.
func ComputeDigestID(date string, recipients []string, subjectTemplate string) string {
	normalized := make([]string, 0, len(recipients))
	for _, r := range recipients {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(r)))
	}
	sort.Strings(normalized)

	payload, _ := json.Marshal(map[string]any{
		"date":       date,
		"recipients": normalized,
		"subject":    strings.TrimSpace(subjectTemplate),
	})

	sum := sha256.Sum256(payload)
	return fmt.Sprintf("%x", sum)[:16]
}

// SentState stores sent markers in a local JSON file.
type SentState struct {
	path string
}

// NewSentState creates the parent directory if needed.
func NewSentState(path string) (*SentState, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("init sent state: %w", err)
	}
	return &SentState{path: path}, nil
}

type sentFile struct {
	Sent []string `json:"sent"`
}

// AlreadySent reports whether the digest ID has a sent marker.
func (s *SentState) AlreadySent(digestID string) bool {
	state := s.load()
	for _, id := range state.Sent {
		if id == digestID {
			return true
		}
	}
	return false
}

// MarkSent records a sent marker for the digest ID.
func (s *SentState) MarkSent(digestID string) error {
	state := s.load()
	for _, id := range state.Sent {
		if id == digestID {
			return nil
		}
	}
	state.Sent = append(state.Sent, digestID)

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sent state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write sent state: %w", err)
	}
	return nil
}

// load tolerates a missing or corrupt state file by starting empty.
func (s *SentState) load() sentFile {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return sentFile{}
	}
	var state sentFile
	if err := json.Unmarshal(data, &state); err != nil {
		return sentFile{}
	}
	return state
}
