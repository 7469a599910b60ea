package types

import (
	"errors"
	"time"
)

// FailureKind identifies the stage that produced a failure.
type FailureKind string

const (
	// KindToolNotFound means the conversion tool is not on the search path
	KindToolNotFound FailureKind = "ToolNotFound"
	// KindPreconditionFailed means the resource group check did not pass
	KindPreconditionFailed FailureKind = "PreconditionFailed"
	// KindConversionFailed means the conversion tool reported an error
	KindConversionFailed FailureKind = "ConversionFailed"
	// KindParseFailed means the converted file could not be read or parsed
	KindParseFailed FailureKind = "ParseFailed"
	// KindSubmissionFailed means submission or the completion wait failed
	KindSubmissionFailed FailureKind = "SubmissionFailed"
)

// FailureKinds lists every failure kind.
var FailureKinds = []FailureKind{
	KindToolNotFound,
	KindPreconditionFailed,
	KindConversionFailed,
	KindParseFailed,
	KindSubmissionFailed,
}

// Failure carries a human-readable reason and the stage that produced it.
type Failure struct {
	Kind   FailureKind `json:"kind" yaml:"kind"`
	Reason string      `json:"reason" yaml:"reason"`
	Err    error       `json:"-" yaml:"-"`
}

// NewFailure builds a Failure whose reason is the error text, verbatim.
func NewFailure(kind FailureKind, err error) *Failure {
	f := &Failure{Kind: kind, Err: err}
	if err != nil {
		f.Reason = err.Error()
	}
	return f
}

func (f *Failure) Error() string {
	return string(f.Kind) + ": " + f.Reason
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// AsFailure returns the Failure carried by err, if any.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// Outcome is the single result of a deployment run. Exactly one of
// Success or Failure holds.
type Outcome struct {
	ID         string            `json:"id" yaml:"id"`
	Request    DeploymentRequest `json:"request" yaml:"request"`
	Success    bool              `json:"success" yaml:"success"`
	Failure    *Failure          `json:"failure,omitempty" yaml:"failure,omitempty"`
	State      State             `json:"state" yaml:"state"`
	Trace      []State           `json:"trace" yaml:"trace"`
	StartedAt  time.Time         `json:"startedAt" yaml:"startedAt"`
	FinishedAt time.Time         `json:"finishedAt" yaml:"finishedAt"`
}

// Duration reports how long the run took.
func (o *Outcome) Duration() time.Duration {
	if o.FinishedAt.IsZero() {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}

// Visited reports whether the run passed through the given state.
func (o *Outcome) Visited(s State) bool {
	for _, st := range o.Trace {
		if st == s {
			return true
		}
	}
	return false
}
