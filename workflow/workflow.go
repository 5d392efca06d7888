package workflow

import (
	"context"
	"time"

	"github.com/badgerodon/collections/queue"
	"github.com/egaotan/solana-revertable/backend"
	"github.com/egaotan/solana-revertable/config"
	"github.com/egaotan/solana-revertable/program"
	"github.com/egaotan/solana-revertable/revertable"
	"github.com/egaotan/solana-revertable/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Submitter sends a transaction and waits for confirmed commitment.
type Submitter interface {
	Submit(ctx context.Context, t *program.Transaction) (*backend.Confirmation, error)
}

type BalanceOracle interface {
	GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error)
}

// Workflow is a single run. Every step blocks until its transaction is
// confirmed before the next one is built, and refuses to run out of order.
type Workflow struct {
	logger    *logrus.Entry
	params    *Params
	operator  *wallet.Wallet
	ephemeral *wallet.Wallet
	submitter Submitter
	oracle    BalanceOracle
	state     State
	report    *Report
}

func (r *Runner) NewWorkflow() *Workflow {
	report := newReport(r.operator.PublicKey())
	return &Workflow{
		logger:    r.logger.WithField("run", report.Id),
		params:    r.params,
		operator:  r.operator,
		submitter: r.submitter,
		oracle:    r.oracle,
		state:     StateInit,
		report:    report,
	}
}

func (w *Workflow) State() State {
	return w.state
}

func (w *Workflow) Report() *Report {
	return w.report
}

func (w *Workflow) Ephemeral() *wallet.Wallet {
	return w.ephemeral
}

func (w *Workflow) expect(step string, states ...State) error {
	for _, state := range states {
		if w.state == state {
			return nil
		}
	}
	return errors.Wrapf(ErrOutOfOrder, "%s requires state %v, current %s", step, states, w.state)
}

// fail records the failure of the transition into atState and ends the run.
// It replaces an expected revert recorded earlier.
func (w *Workflow) fail(atState State, err error) error {
	w.report.Failure = &Failure{AtState: atState, Cause: causeOf(err), Err: err}
	w.report.State = StateFailed
	w.state = StateFailed
	w.logger.Warnf("failed at %s: %s", atState, err)
	var subErr *backend.SubmissionError
	if errors.As(err, &subErr) && subErr.PossiblyApplied() {
		w.recheck()
	}
	return w.report.Failure
}

// recheck reads the ephemeral balance after a timed out submission, which
// may have been applied.
func (w *Workflow) recheck() {
	if w.ephemeral == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), w.params.RecheckTimeout)
	defer cancel()
	balance, err := w.oracle.GetBalance(ctx, w.ephemeral.PublicKey())
	if err != nil {
		w.logger.Warnf("recheck balance err: %s", err)
		return
	}
	w.report.PostBalance = balance
	w.report.HasPostBalance = true
	w.logger.Infof("recheck balance after timeout: %d", balance)
}

func (w *Workflow) submit(ctx context.Context, step string, t *program.Transaction) error {
	result := &StepResult{Step: step}
	w.report.Steps = append(w.report.Steps, result)
	confirmation, err := w.submitter.Submit(ctx, t)
	if err != nil {
		var subErr *backend.SubmissionError
		if errors.As(err, &subErr) {
			result.Signature = subErr.Signature
		}
		result.Err = err.Error()
		return err
	}
	result.Signature = confirmation.Signature
	result.Slot = confirmation.Slot
	w.logger.Infof("%s confirmed: %s", step, confirmation.Signature)
	return nil
}

func (w *Workflow) advance(state State) {
	w.state = state
	w.report.Reached = state
	w.report.State = state
}

// Fund generates the ephemeral account, funds it from the operator and
// records its balance.
func (w *Workflow) Fund(ctx context.Context) error {
	if err := w.expect(config.StepFund, StateInit); err != nil {
		return err
	}
	ephemeral, err := wallet.Generate()
	if err != nil {
		return w.fail(StateFunded, err)
	}
	w.ephemeral = ephemeral
	w.report.Ephemeral = ephemeral.PublicKey()
	w.logger.Infof("ephemeral account: %s", ephemeral.PublicKey())

	t := revertable.BuildFund(w.operator, ephemeral.PublicKey(), w.params.FundLamports)
	if err := w.submit(ctx, config.StepFund, t); err != nil {
		return w.fail(StateFunded, err)
	}
	// the transfer is confirmed even if the balance read below fails
	w.advance(StateFunded)
	balance, err := w.oracle.GetBalance(ctx, ephemeral.PublicKey())
	if err != nil {
		return w.fail(StateFunded, err)
	}
	w.report.PreBalance = balance
	w.report.HasPreBalance = true
	return nil
}

// Assign hands the ephemeral account to the EVM program. The operator pays
// the fee so the ephemeral balance is untouched.
func (w *Workflow) Assign(ctx context.Context) error {
	if err := w.expect(config.StepAssign, StateFunded); err != nil {
		return err
	}
	t := revertable.BuildAssign(w.ephemeral, w.params.Bridge.Id()).WithFeePayer(w.operator)
	if err := w.submit(ctx, config.StepAssign, t); err != nil {
		return w.fail(StateAssigned, err)
	}
	w.advance(StateAssigned)
	return nil
}

// Invoke calls the invoke program with the revert target. A rejection is
// the expected outcome when ExpectRevert is set: it is recorded and the run
// moves on to verification.
func (w *Workflow) Invoke(ctx context.Context) error {
	if err := w.expect(config.StepInvoke, StateAssigned); err != nil {
		return err
	}
	var bridge = w.params.Bridge
	if !w.params.Extended {
		bridge = nil
	}
	t := revertable.BuildInvoke(w.ephemeral, w.params.InvokeProgram, w.params.RevertProgram, w.params.Payload, bridge).
		WithFeePayer(w.operator)
	err := w.submit(ctx, config.StepInvoke, t)
	if err != nil && !(backend.IsRejected(err) && w.params.ExpectRevert) {
		return w.fail(StateInvoked, err)
	}
	if err != nil {
		w.report.Failure = &Failure{AtState: StateInvoked, Cause: CauseRejected, Err: err, Expected: true}
		w.logger.Infof("invoke reverted as expected: %s", err)
	} else if w.params.ExpectRevert {
		w.logger.Warnf("invoke was expected to revert but was confirmed")
	}
	w.advance(StateInvoked)
	return nil
}

// Bridge runs the bridge instructions directly in place of assign and
// invoke.
func (w *Workflow) Bridge(ctx context.Context) error {
	if err := w.expect(config.StepBridge, StateFunded); err != nil {
		return err
	}
	t, err := revertable.BuildBridge(w.ephemeral, w.params.Bridge, w.params.BridgeLamports, w.params.Payload)
	if err != nil {
		return w.fail(StateInvoked, err)
	}
	if err := w.submit(ctx, config.StepBridge, t.WithFeePayer(w.operator)); err != nil {
		return w.fail(StateInvoked, err)
	}
	w.advance(StateInvoked)
	return nil
}

// Verify reads the ephemeral balance after the last step.
func (w *Workflow) Verify(ctx context.Context) error {
	if err := w.expect("verify", StateFunded, StateAssigned, StateInvoked); err != nil {
		return err
	}
	balance, err := w.oracle.GetBalance(ctx, w.ephemeral.PublicKey())
	if err != nil {
		return w.fail(StateVerified, err)
	}
	w.report.PostBalance = balance
	w.report.HasPostBalance = true
	if w.report.Failure == nil {
		w.advance(StateVerified)
	} else {
		w.state = StateFailed
		w.report.State = StateFailed
	}
	w.logger.Infof("verified, pre balance: %d, post balance: %d, delta: %d",
		w.report.PreBalance, w.report.PostBalance, w.report.Delta())
	return nil
}

func (w *Workflow) step(ctx context.Context, step string) error {
	switch step {
	case config.StepFund:
		return w.Fund(ctx)
	case config.StepAssign:
		return w.Assign(ctx)
	case config.StepInvoke:
		return w.Invoke(ctx)
	case config.StepBridge:
		return w.Bridge(ctx)
	}
	return errors.Errorf("unknown step %q", step)
}

// Run executes the step plan in order and verifies the balance. The error
// is nil when the run verified, including after an expected revert.
func (w *Workflow) Run(ctx context.Context) (*Report, error) {
	defer w.finish()
	plan := queue.New()
	for _, step := range w.params.Steps {
		plan.Enqueue(step)
	}
	for plan.Len() > 0 {
		step := plan.Dequeue().(string)
		if err := ctx.Err(); err != nil {
			return w.report, w.fail(target(step), errors.Wrapf(err, "interrupted before %s", step))
		}
		if err := w.step(ctx, step); err != nil {
			// out of order steps return before recording anything
			if w.report.Failure == nil || w.report.Failure.Expected {
				w.fail(target(step), err)
			}
			return w.report, err
		}
	}
	if err := w.Verify(ctx); err != nil {
		return w.report, err
	}
	return w.report, nil
}

// target is the state a step moves the run into.
func target(step string) State {
	switch step {
	case config.StepFund:
		return StateFunded
	case config.StepAssign:
		return StateAssigned
	case config.StepInvoke, config.StepBridge:
		return StateInvoked
	}
	return StateVerified
}

func (w *Workflow) finish() {
	w.report.EndTime = time.Now()
}
