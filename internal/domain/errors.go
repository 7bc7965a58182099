package domain

import "fmt"

// SourceFetchError marks a per-source failure. Recoverable: the generator
// records it and continues with the remaining sources.
type SourceFetchError struct {
	Source string
	Err    error
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceFetchError) Unwrap() error { return e.Err }

// RankingError marks a per-paper ranking failure. Recoverable: the paper is
// dropped from the ranked output.
type RankingError struct {
	PaperID string
	Err     error
}

func (e *RankingError) Error() string {
	return fmt.Sprintf("rank paper %s: %v", e.PaperID, e.Err)
}

func (e *RankingError) Unwrap() error { return e.Err }

// StorageError marks an I/O failure inside digest storage. Fatal for the
// operation that raised it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ConfigError marks invalid run parameters. Fatal at construction.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Msg)
}
