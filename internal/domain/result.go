package domain

// GenerationStatus is the terminal state of one generation attempt.
type GenerationStatus string

const (
	StatusCompleted      GenerationStatus = "completed"
	StatusPartialFailure GenerationStatus = "partial_failure"
	StatusFailed         GenerationStatus = "failed"
)

// FailureStage identifies where a recoverable sub-failure happened.
type FailureStage string

const (
	StageFetch FailureStage = "fetch"
	StageRank  FailureStage = "rank"
)

// Failure records one recoverable sub-failure inside a generation run.
type Failure struct {
	Stage   FailureStage `json:"stage"`
	Subject string       `json:"subject"`
	Err     string       `json:"error"`
}

// GenerationResult is the tagged outcome of one generation attempt.
// Completed and PartialFailure carry a digest; Failed carries Err.
// Failures is never silently dropped: a PartialFailure lists every
// source and ranking failure that occurred along the way.
type GenerationResult struct {
	RunID    string
	Status   GenerationStatus
	Digest   *Digest
	Failures []Failure
	Err      error
}

// Usable reports whether the result carries a digest a caller may act on.
func (r GenerationResult) Usable() bool {
	return r.Status != StatusFailed && r.Digest != nil
}
