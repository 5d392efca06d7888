package workflow

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/egaotan/solana-revertable/program"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

type StepResult struct {
	Step      string
	Signature solana.Signature
	Slot      uint64
	Err       string
}

// Report is what a run exposes to its caller: the balances of the ephemeral
// account before and after, the state reached and how the run ended.
type Report struct {
	Id             uint64
	Operator       solana.PublicKey
	Ephemeral      solana.PublicKey
	State          State
	Reached        State
	PreBalance     uint64
	PostBalance    uint64
	HasPreBalance  bool
	HasPostBalance bool
	Steps          []*StepResult
	Failure        *Failure
	StartTime      time.Time
	EndTime        time.Time
}

var lastId uint64

// nextId is a microsecond timestamp, bumped when concurrent runs start in
// the same microsecond.
func nextId(now time.Time) uint64 {
	for {
		id := uint64(now.UnixNano() / time.Microsecond.Nanoseconds())
		last := atomic.LoadUint64(&lastId)
		if id <= last {
			id = last + 1
		}
		if atomic.CompareAndSwapUint64(&lastId, last, id) {
			return id
		}
	}
}

func newReport(operator solana.PublicKey) *Report {
	now := time.Now()
	return &Report{
		Id:        nextId(now),
		Operator:  operator,
		State:     StateInit,
		Reached:   StateInit,
		Steps:     make([]*StepResult, 0, 4),
		StartTime: now,
	}
}

// Delta is the post balance minus the pre balance.
func (r *Report) Delta() int64 {
	return int64(r.PostBalance) - int64(r.PreBalance)
}

// Succeeded is true when the run reached Verified, or when its only failure
// is the expected revert and the post balance was still verified.
func (r *Report) Succeeded() bool {
	if r.Failure == nil {
		return r.State == StateVerified
	}
	return r.Failure.Expected && r.HasPostBalance
}

// RevertObserved is true when the invoke step was rejected.
func (r *Report) RevertObserved() bool {
	return r.Failure != nil && r.Failure.AtState == StateInvoked && r.Failure.Cause == CauseRejected
}

func Native(lamports int64) decimal.Decimal {
	return decimal.NewFromInt(lamports).Div(decimal.NewFromInt(program.LamportsPerNative))
}

func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %d: state %s, reached %s\n", r.Id, r.State, r.Reached)
	fmt.Fprintf(&b, "operator: %s\n", r.Operator)
	fmt.Fprintf(&b, "ephemeral: %s\n", r.Ephemeral)
	for _, step := range r.Steps {
		if step.Err != "" {
			fmt.Fprintf(&b, "step %s: %s, err: %s\n", step.Step, step.Signature, step.Err)
			continue
		}
		fmt.Fprintf(&b, "step %s: %s (slot %d)\n", step.Step, step.Signature, step.Slot)
	}
	if r.HasPreBalance {
		fmt.Fprintf(&b, "pre balance: %d (%s)\n", r.PreBalance, Native(int64(r.PreBalance)).StringFixed(9))
	}
	if r.HasPostBalance {
		fmt.Fprintf(&b, "post balance: %d (%s)\n", r.PostBalance, Native(int64(r.PostBalance)).StringFixed(9))
	}
	if r.HasPreBalance && r.HasPostBalance {
		fmt.Fprintf(&b, "delta: %d (%s)\n", r.Delta(), Native(r.Delta()).StringFixed(9))
	}
	if r.Failure != nil {
		expected := ""
		if r.Failure.Expected {
			expected = ", expected"
		}
		fmt.Fprintf(&b, "failure: %s at %s%s: %s\n", r.Failure.Cause, r.Failure.AtState, expected, r.Failure.Err)
	}
	fmt.Fprintf(&b, "duration: %s", r.EndTime.Sub(r.StartTime))
	return b.String()
}
