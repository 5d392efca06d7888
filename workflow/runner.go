package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/egaotan/solana-revertable/config"
	"github.com/egaotan/solana-revertable/evm"
	"github.com/egaotan/solana-revertable/program"
	"github.com/egaotan/solana-revertable/revertable"
	"github.com/egaotan/solana-revertable/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// Params are the per run settings shared by every workflow of a Runner.
type Params struct {
	InvokeProgram  solana.PublicKey
	RevertProgram  solana.PublicKey
	Bridge         *evm.Program
	Extended       bool
	ExpectRevert   bool
	Payload        []byte
	FundLamports   uint64
	BridgeLamports uint64
	Steps          []string
	RecheckTimeout time.Duration
}

func ParamsFromConfig(cfg *config.Config) (*Params, error) {
	payload, err := revertable.Payload(cfg.EtherAddress)
	if err != nil {
		return nil, &config.ConfigError{Key: config.EtherAddressKey, Err: err}
	}
	return &Params{
		InvokeProgram:  cfg.InvokeProgramId,
		RevertProgram:  cfg.RevertProgramId,
		Bridge:         evm.NewProgram(cfg.EvmProgramId, cfg.EvmStateId),
		Extended:       cfg.Extended,
		ExpectRevert:   cfg.ExpectRevert,
		Payload:        payload,
		FundLamports:   cfg.FundLamports,
		BridgeLamports: program.DefaultBridgeLamports,
		Steps:          cfg.Steps,
		RecheckTimeout: cfg.ConfirmTimeout,
	}, nil
}

// validate rejects zero addresses so a missing value never reaches a
// transaction.
func (p *Params) validate() error {
	zero := solana.PublicKey{}
	for key, pubkey := range map[string]solana.PublicKey{
		config.InvokeProgramIdKey: p.InvokeProgram,
		config.RevertProgramIdKey: p.RevertProgram,
	} {
		if pubkey == zero {
			return &config.ConfigError{Key: key, Err: config.ErrMissing}
		}
	}
	if p.Bridge == nil || p.Bridge.Id() == zero || p.Bridge.State() == zero {
		return &config.ConfigError{Key: config.EvmProgramIdKey, Err: config.ErrMissing}
	}
	if len(p.Steps) == 0 {
		return &config.ConfigError{Key: config.StepsKey, Err: config.ErrMissing}
	}
	if p.RecheckTimeout <= 0 {
		p.RecheckTimeout = 10 * time.Second
	}
	return nil
}

// Callback is told about every finished run.
type Callback interface {
	OnReport(report *Report)
}

// Runner starts workflows that share the operator and the ledger
// connection. Runs have no other shared state and may run concurrently.
type Runner struct {
	logger    *logrus.Entry
	params    *Params
	operator  *wallet.Wallet
	submitter Submitter
	oracle    BalanceOracle
	callbacks []Callback
}

func NewRunner(params *Params, operator *wallet.Wallet, submitter Submitter, oracle BalanceOracle, logger *logrus.Entry) (*Runner, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger().WithField("type", "workflow")
	}
	return &Runner{
		logger:    logger,
		params:    params,
		operator:  operator,
		submitter: submitter,
		oracle:    oracle,
	}, nil
}

func (r *Runner) AddCallback(cb Callback) {
	r.callbacks = append(r.callbacks, cb)
}

func (r *Runner) Operator() *wallet.Wallet {
	return r.operator
}

// Run executes one workflow from a fresh ephemeral account.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report, err := r.NewWorkflow().Run(ctx)
	for _, cb := range r.callbacks {
		cb.OnReport(report)
	}
	return report, err
}

// RunMany executes n independent workflows concurrently.
func (r *Runner) RunMany(ctx context.Context, n int) ([]*Report, []error) {
	reports := make([]*Report, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reports[i], errs[i] = r.Run(ctx)
		}(i)
	}
	wg.Wait()
	return reports, errs
}
