package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/egaotan/solana-revertable/backend"
	"github.com/egaotan/solana-revertable/balancelisten"
	"github.com/egaotan/solana-revertable/config"
	"github.com/egaotan/solana-revertable/dingsdk"
	"github.com/egaotan/solana-revertable/networkdetect"
	"github.com/egaotan/solana-revertable/server"
	"github.com/egaotan/solana-revertable/store"
	"github.com/egaotan/solana-revertable/utils"
	"github.com/egaotan/solana-revertable/wallet"
	"github.com/egaotan/solana-revertable/workflow"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ClientFactory opens the ledger RPC client for an endpoint.
type ClientFactory func(endpoint string) backend.Client

// App holds everything one command needs. It is built only after the
// configuration and the signer key have been validated.
type App struct {
	ctx      context.Context
	cfg      *config.Config
	stdout   io.Writer
	logger   *logrus.Entry
	operator *wallet.Wallet
	backend  *backend.Backend
	runner   *workflow.Runner
	loggers  map[string]*logrus.Entry
	store    *store.Store
	notify   *Notify
	dsdk     *dingsdk.DingSdk
}

func NewApp(ctx context.Context, src config.Source, newClient ClientFactory, stdout io.Writer) (*App, error) {
	cfg, err := config.Load(src)
	if err != nil {
		return nil, err
	}
	params, err := workflow.ParamsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	utils.SetLevel(cfg.LogLevel)
	if err := os.MkdirAll(cfg.LogPath, os.ModePerm); err != nil {
		return nil, errors.Wrapf(err, "log path %s", cfg.LogPath)
	}
	config.LogPath = cfg.LogPath
	loggers := make(map[string]*logrus.Entry)
	for _, name := range []string{config.BackendLog, config.WorkflowLog, config.StoreLog, config.NetworkLog, config.ServerLog} {
		if loggers[name], err = utils.NewLog(config.LogPath, name); err != nil {
			return nil, err
		}
	}

	operator, err := wallet.Load(cfg.SignerKeypair)
	if err != nil {
		return nil, err
	}

	client := newClient(cfg.RpcUrl)
	be := backend.NewBackend(client,
		backend.WithLogger(loggers[config.BackendLog]),
		backend.WithConfirmTimeout(cfg.ConfirmTimeout),
		backend.WithPollInterval(cfg.PollInterval),
		backend.WithSkipPreflight(cfg.SkipPreflight),
	)
	logger := loggers[config.WorkflowLog]
	runner, err := workflow.NewRunner(params, operator, be, be, logger)
	if err != nil {
		return nil, err
	}
	app := &App{
		ctx:      ctx,
		cfg:      cfg,
		stdout:   stdout,
		logger:   logger,
		operator: operator,
		backend:  be,
		runner:   runner,
		loggers:  loggers,
		dsdk:     dingsdk.NewDingSdk(cfg.DingUrl),
	}
	if cfg.DBUrl != "" {
		dao, err := store.NewDao(cfg.DBUrl, cfg.DBScheme, cfg.DBUser, cfg.DBPasswd)
		if err != nil {
			return nil, err
		}
		app.store = store.NewStore(ctx, dao, loggers[config.StoreLog])
		runner.AddCallback(app.store)
	}
	if app.dsdk.Enabled() {
		app.notify = NewNotify(ctx, app.dsdk, logger)
		runner.AddCallback(app.notify)
	}
	return app, nil
}

func (app *App) Start() {
	if app.store != nil {
		app.store.Start()
	}
	if app.notify != nil {
		app.notify.Start()
	}
}

// Stop flushes queued records and notifications.
func (app *App) Stop() {
	if app.store != nil {
		app.store.Stop()
	}
	if app.notify != nil {
		app.notify.Stop()
	}
}

func (app *App) statusf(format string, args ...interface{}) {
	fmt.Fprintf(app.stdout, format+"\n", args...)
}

// Probe measures the round trip to the RPC host. A failed probe is only
// reported.
func (app *App) Probe() {
	if networkdetect.IsLoopback(app.cfg.RpcUrl) {
		return
	}
	probe, err := networkdetect.ProbeEndpoint(app.cfg.RpcUrl, 3, app.loggers[config.NetworkLog])
	if err != nil {
		app.statusf("probe %s: %s", app.cfg.RpcUrl, err)
		return
	}
	app.statusf("probe %s: avg rtt %s, loss %.1f%%", probe.Host, probe.AvgRtt, probe.PacketLoss)
}

// Run executes count workflows and reports whether all of them succeeded.
func (app *App) Run(count int) (bool, error) {
	app.statusf("operator: %s", app.operator.PublicKey())
	app.statusf("steps: %v", app.cfg.Steps)
	reports := make([]*workflow.Report, 0, count)
	errs := make([]error, 0, count)
	if count <= 1 {
		report, err := app.runner.Run(app.ctx)
		reports = append(reports, report)
		errs = append(errs, err)
	} else {
		reports, errs = app.runner.RunMany(app.ctx, count)
	}
	succeeded := true
	var firstErr error
	for i, report := range reports {
		app.statusf("%s", report)
		if !report.Succeeded() {
			succeeded = false
		}
		if errs[i] != nil && firstErr == nil {
			firstErr = errs[i]
		}
	}
	return succeeded, firstErr
}

// Serve runs the HTTP API and the operator balance watcher until the
// context is done.
func (app *App) Serve() {
	bl := balancelisten.NewBalanceListen(app.ctx, app.backend, []solana.PublicKey{app.operator.PublicKey()},
		app.cfg.WatchInterval, app.dsdk, app.logger)
	bl.Start()
	var reader server.RunReader
	if app.store != nil {
		reader = app.store
	}
	srv := server.NewServer(app.ctx, app.cfg.Listen, app.runner, app.backend, reader,
		app.loggers[config.ServerLog])
	app.statusf("serving on %s", app.cfg.Listen)
	srv.Service()
	bl.Wait()
}
