package tutor

import (
	"errors"
	"fmt"
)

// Fault kinds. Match with errors.Is against a Fault or a Response's Err.
var (
	ErrNotFound         = errors.New("not found")
	ErrNoActiveExercise = errors.New("no active exercise")
	ErrValidationConfig = errors.New("validation config")
	ErrLedger           = errors.New("ledger unavailable")
	ErrInvalidInput     = errors.New("invalid input")
)

// Fault is an engine-level failure. Msg is shown to the learner as is.
type Fault struct {
	Kind error
	Msg  string
	Err  error
}

func (f *Fault) Error() string {
	return f.Msg
}

func (f *Fault) Is(target error) bool {
	return target == f.Kind
}

func (f *Fault) Unwrap() error {
	return f.Err
}

func fault(kind error, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func ledgerFault(op string, err error) *Fault {
	return &Fault{Kind: ErrLedger, Msg: fmt.Sprintf("Could not %s: %v", op, err), Err: err}
}
