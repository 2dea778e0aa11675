package pipeline

import "fmt"

// stageFailedError signals that an external stage process exited non-zero.
// The orchestration layer only ever depends on zero/non-zero; the code is
// carried for the abort message.
type stageFailedError struct {
	label    string
	title    string
	exitCode int
}

func (e stageFailedError) Error() string {
	return fmt.Sprintf("stage %s (%s) failed with exit code %d", e.label, e.title, e.exitCode)
}

// ErrStageFailed constructs a stage failure for the given stage and code.
func ErrStageFailed(label, title string, exitCode int) error {
	return stageFailedError{label: label, title: title, exitCode: exitCode}
}

// IsStageFailed reports whether err is a stage process failure.
func IsStageFailed(err error) bool {
	_, ok := err.(stageFailedError)
	return ok
}

// FailedStage returns the label of the failing stage, if err is one.
func FailedStage(err error) (string, bool) {
	e, ok := err.(stageFailedError)
	if !ok {
		return "", false
	}
	return e.label, true
}

// skipUnsupportedError marks a skip flag that is reserved but has no
// defined fallback behavior.
type skipUnsupportedError struct{ label string }

func (e skipUnsupportedError) Error() string {
	return fmt.Sprintf("skipping stage %s is not supported: no fallback page set is defined", e.label)
}

// ErrSkipUnsupported constructs the reserved-skip failure.
func ErrSkipUnsupported(label string) error { return skipUnsupportedError{label: label} }

// IsSkipUnsupported reports whether err is a reserved-skip failure.
func IsSkipUnsupported(err error) bool {
	_, ok := err.(skipUnsupportedError)
	return ok
}
