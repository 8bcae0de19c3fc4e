package pipeline

import "fmt"

// Outcome tags a stage result
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeSkipped
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFatal:
		return "fatal"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// StageResult is what a stage action reports back to the interpreter.
// Skipped carries the reason the stage degraded; Fatal carries the error
// that ends the task.
type StageResult struct {
	Outcome Outcome
	Reason  string
	Err     error
}

// OK is a stage that did its work
func OK() StageResult { return StageResult{Outcome: OutcomeOK} }

// Skipped is a stage that degraded and let the pipeline continue
func Skipped(reason string, err error) StageResult {
	return StageResult{Outcome: OutcomeSkipped, Reason: reason, Err: err}
}

// Fatal is a stage whose failure ends the task
func Fatal(err error) StageResult { return StageResult{Outcome: OutcomeFatal, Err: err} }

// stage is one step of the interpreter: it runs when enabled is true
type stage struct {
	name    string
	enabled func(s *state) bool
	run     func(s *state) StageResult
}

func always(*state) bool { return true }
