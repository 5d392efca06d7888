package backend

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

type Reason string

const (
	// ReasonMalformed: the transaction could not be built or signed. Nothing
	// was sent.
	ReasonMalformed Reason = "malformed"
	// ReasonRejected: the ledger refused or failed the transaction,
	// deliberate program reverts included.
	ReasonRejected Reason = "rejected"
	// ReasonTimeout: no confirmation was observed in time. The transaction
	// may still have been applied.
	ReasonTimeout Reason = "timeout"
	// ReasonUnreachable: the endpoint could not be reached.
	ReasonUnreachable Reason = "endpointUnreachable"
)

type SubmissionError struct {
	Reason    Reason
	Signature solana.Signature
	Err       error
}

func (e *SubmissionError) Error() string {
	if e.Signature.IsZero() {
		return fmt.Sprintf("submission %s: %s", e.Reason, e.Err)
	}
	return fmt.Sprintf("submission %s (%s): %s", e.Reason, e.Signature, e.Err)
}

func (e *SubmissionError) Cause() error {
	return e.Err
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// PossiblyApplied reports whether the ledger may hold the transaction's
// effects. Callers must re-read state rather than resubmit.
func (e *SubmissionError) PossiblyApplied() bool {
	return e.Reason == ReasonTimeout
}

type QueryError struct {
	Address solana.PublicKey
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query balance %s: %s", e.Address, e.Err)
}

func (e *QueryError) Cause() error {
	return e.Err
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

func reasonOf(err error) (Reason, bool) {
	var subErr *SubmissionError
	if !errors.As(err, &subErr) {
		return "", false
	}
	return subErr.Reason, true
}

func IsRejected(err error) bool {
	reason, ok := reasonOf(err)
	return ok && reason == ReasonRejected
}

func IsTimeout(err error) bool {
	reason, ok := reasonOf(err)
	return ok && reason == ReasonTimeout
}

func IsUnreachable(err error) bool {
	reason, ok := reasonOf(err)
	return ok && reason == ReasonUnreachable
}

func IsMalformed(err error) bool {
	reason, ok := reasonOf(err)
	return ok && reason == ReasonMalformed
}
