package orchestrator

import (
	"fmt"

	"github.com/pkg/errors"
)

// errors
var (
	ErrBudgetExhausted = errors.New("rate budget exhausted")
)

// FatalError - failure which aborts the run: the sink is unreachable or the checkpoint could not be written.
// The last durable checkpoint stays intact.
type FatalError struct {
	Op  string
	Err error
}

// Error -
func (e FatalError) Error() string {
	return fmt.Sprintf("fatal: %s: %s", e.Op, e.Err.Error())
}

// Unwrap -
func (e FatalError) Unwrap() error {
	return e.Err
}

func fatal(op string, err error) error {
	return FatalError{op, err}
}

// IsFatal -
func IsFatal(err error) bool {
	var e FatalError
	return errors.As(err, &e)
}
