package workflow

import (
	"fmt"

	"github.com/egaotan/solana-revertable/backend"
	"github.com/pkg/errors"
)

type State string

const (
	StateInit     State = "Init"
	StateFunded   State = "Funded"
	StateAssigned State = "Assigned"
	StateInvoked  State = "Invoked"
	StateVerified State = "Verified"
	StateFailed   State = "Failed"
)

type Cause string

const (
	CauseRejected    Cause = Cause(backend.ReasonRejected)
	CauseTimeout     Cause = Cause(backend.ReasonTimeout)
	CauseUnreachable Cause = Cause(backend.ReasonUnreachable)
	CauseMalformed   Cause = Cause(backend.ReasonMalformed)
	CauseQuery       Cause = "query"
	CauseOutOfOrder  Cause = "outOfOrder"
	CauseUnknown     Cause = "unknown"
)

var ErrOutOfOrder = errors.New("step out of order")

// Failure records the transition that failed. AtState is the state the
// run was moving into.
type Failure struct {
	AtState  State
	Cause    Cause
	Err      error
	Expected bool
}

func (f *Failure) Error() string {
	return fmt.Sprintf("failed at %s (%s): %s", f.AtState, f.Cause, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func causeOf(err error) Cause {
	var subErr *backend.SubmissionError
	if errors.As(err, &subErr) {
		return Cause(subErr.Reason)
	}
	var queryErr *backend.QueryError
	if errors.As(err, &queryErr) {
		return CauseQuery
	}
	if errors.Cause(err) == ErrOutOfOrder {
		return CauseOutOfOrder
	}
	return CauseUnknown
}
