package domain

import (
	"errors"
	"fmt"
)

// Stage identifies where in the query pipeline a failure originated.
type Stage string

const (
	StageValidating      Stage = "validating"
	StageEmbedding       Stage = "embedding"
	StageRetrieving      Stage = "retrieving"
	StageBuildingContext Stage = "building_context"
	StageGenerating      Stage = "generating"
	StageCheckingOutput  Stage = "checking_output"
	StageStartup         Stage = "startup"
)

// ErrorKind classifies pipeline failures.
type ErrorKind string

const (
	KindValidationRejected ErrorKind = "validation_rejected"
	KindRateLimited        ErrorKind = "rate_limited"
	KindEmbeddingFailure   ErrorKind = "embedding_failure"
	KindRetrievalFailure   ErrorKind = "retrieval_failure"
	KindGenerationFailure  ErrorKind = "generation_failure"
	KindConfiguration      ErrorKind = "configuration_error"
)

// PipelineError names the failing stage alongside the classified reason.
// Any stage failure aborts the remaining stages; no partial answer is
// synthesized.
type PipelineError struct {
	Stage  Stage
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Reason)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError builds a stage-tagged error. err may be nil when the
// failure has no underlying cause (validation rejections).
func NewPipelineError(stage Stage, kind ErrorKind, reason string, err error) *PipelineError {
	return &PipelineError{Stage: stage, Kind: kind, Reason: reason, Err: err}
}

// KindOf extracts the error kind from err, or "" when err carries none.
func KindOf(err error) ErrorKind {
	var perr *PipelineError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return ""
}

// IsExpectedRejection reports whether err is a frequent, low-severity
// guardrail outcome rather than an operational failure.
func IsExpectedRejection(err error) bool {
	switch KindOf(err) {
	case KindValidationRejected, KindRateLimited:
		return true
	}
	return false
}
