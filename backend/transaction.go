package backend

import (
	"context"
	"encoding/json"
	"time"

	"github.com/egaotan/solana-revertable/program"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Confirmation is a transaction observed at confirmed commitment or better.
type Confirmation struct {
	Signature  solana.Signature
	Slot       uint64
	Commitment string
}

// Submit signs and sends t, then blocks until the ledger reports it at
// confirmed commitment. It never resubmits: after a timeout the caller has
// to re-read ledger state to learn whether t was applied.
func (backend *Backend) Submit(ctx context.Context, t *program.Transaction) (*Confirmation, error) {
	trx, err := backend.build(ctx, t)
	if err != nil {
		return nil, err
	}
	signature := trx.Signatures[0]
	logger := backend.logger.WithField("signature", signature.String())
	if logger.Logger.IsLevelEnabled(logrus.DebugLevel) {
		trxJson, _ := json.MarshalIndent(trx, "", "    ")
		logger.Debugf("transaction: %s", trxJson)
	}

	ctx, cancel := context.WithTimeout(ctx, backend.confirmTimeout)
	defer cancel()

	logger.Infof("send transaction, fee payer: %s", t.FeePayer)
	if _, err := backend.client.SendTransaction(ctx, trx, backend.skipPreflight); err != nil {
		subErr := sendError(ctx, signature, err)
		logger.Warnf("send transaction err: %s", subErr)
		return nil, subErr
	}
	confirmation, err := backend.confirm(ctx, signature)
	if err != nil {
		logger.Warnf("confirm transaction err: %s", err)
		return nil, err
	}
	logger.Infof("transaction confirmed at slot %d (%s)", confirmation.Slot, confirmation.Commitment)
	return confirmation, nil
}

func (backend *Backend) build(ctx context.Context, t *program.Transaction) (*solana.Transaction, error) {
	if t == nil || len(t.Instructions) == 0 {
		return nil, &SubmissionError{Reason: ReasonMalformed, Err: errors.New("transaction has no instructions")}
	}
	if missing := t.MissingSigners(); len(missing) > 0 {
		return nil, &SubmissionError{Reason: ReasonMalformed, Err: errors.Errorf("missing signer %s", missing[0])}
	}
	blockHash, err := backend.client.LatestBlockhash(ctx)
	if err != nil {
		// nothing was sent, whatever the node answered
		return nil, &SubmissionError{Reason: ReasonUnreachable, Err: errors.Wrap(err, "failed to get recent block hash")}
	}

	builder := solana.NewTransactionBuilder()
	for _, i := range t.Instructions {
		builder.AddInstruction(i)
	}
	builder.SetRecentBlockHash(blockHash)
	builder.SetFeePayer(t.FeePayer)
	trx, err := builder.Build()
	if err != nil {
		return nil, &SubmissionError{Reason: ReasonMalformed, Err: errors.Wrap(err, "build transaction")}
	}
	if _, err := trx.Sign(t.Signer); err != nil {
		return nil, &SubmissionError{Reason: ReasonMalformed, Err: errors.Wrap(err, "sign transaction")}
	}
	if len(trx.Signatures) == 0 {
		return nil, &SubmissionError{Reason: ReasonMalformed, Err: errors.New("transaction is not signed")}
	}
	return trx, nil
}

// sendError classifies a failed sendTransaction. Only a failed preflight
// simulation is a rejection; node health and stale blockhash errors are
// transient.
func sendError(ctx context.Context, signature solana.Signature, err error) *SubmissionError {
	var rpcErr *RPCError
	switch {
	case errors.As(err, &rpcErr) && rpcErr.PreflightFailure():
		return &SubmissionError{Reason: ReasonRejected, Signature: signature, Err: err}
	case ctx.Err() != nil:
		return &SubmissionError{Reason: ReasonTimeout, Signature: signature, Err: err}
	default:
		return &SubmissionError{Reason: ReasonUnreachable, Signature: signature, Err: err}
	}
}

func (backend *Backend) confirm(ctx context.Context, signature solana.Signature) (*Confirmation, error) {
	ticker := time.NewTicker(backend.pollInterval)
	defer ticker.Stop()
	var lastErr error
	for {
		status, err := backend.client.SignatureStatus(ctx, signature)
		switch {
		case err != nil:
			lastErr = err
			backend.logger.Debugf("signature status %s err: %s", signature, err)
		case status == nil:
		case status.Err != nil:
			return nil, &SubmissionError{Reason: ReasonRejected, Signature: signature, Err: status.Err}
		case status.Confirmed():
			commitment := status.ConfirmationStatus
			if commitment == "" {
				commitment = ConfirmationStatusFinalized
			}
			return &Confirmation{Signature: signature, Slot: status.Slot, Commitment: commitment}, nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			err := ctx.Err()
			if lastErr != nil {
				err = errors.Wrapf(lastErr, "%s, last status err", ctx.Err())
			}
			return nil, &SubmissionError{Reason: ReasonTimeout, Signature: signature, Err: err}
		}
	}
}
