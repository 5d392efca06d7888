package app

import (
	"context"
	"fmt"
	"io"

	"github.com/egaotan/solana-revertable/backend"
	"github.com/egaotan/solana-revertable/config"
	"github.com/egaotan/solana-revertable/wallet"
	"github.com/egaotan/solana-revertable/workflow"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var ErrRunFailed = errors.New("run did not verify")

// Execute runs the command line and returns the process exit code. Status
// lines go to stdout and the cause of a failure to stderr.
func Execute(ctx context.Context, args []string, src config.Source, newClient ClientFactory, stdout, stderr io.Writer) int {
	root := NewRootCommand(ctx, src, newClient, stdout)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		return 1
	}
	return 0
}

func NewRootCommand(ctx context.Context, src config.Source, newClient ClientFactory, stdout io.Writer) *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:           "revertcheck",
		Short:         "Fund an ephemeral account, hand it to the EVM program and check the balance after a reverting invoke",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var count int
	var probe bool
	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the configured step plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return errors.Errorf("--count must be at least 1, got %d", count)
			}
			app, err := NewApp(ctx, src, newClient, stdout)
			if err != nil {
				return err
			}
			app.Start()
			defer app.Stop()
			if probe {
				app.Probe()
			}
			succeeded, err := app.Run(count)
			if succeeded {
				return nil
			}
			if err != nil {
				return err
			}
			return ErrRunFailed
		},
	}
	runCmd.Flags().IntVar(&count, "count", 1, "Number of independent runs")
	runCmd.Flags().BoolVar(&probe, "probe", false, "Ping the RPC host before running")

	var serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the run API and watch the operator balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(ctx, src, newClient, stdout)
			if err != nil {
				return err
			}
			app.Start()
			defer app.Stop()
			app.Serve()
			return nil
		},
	}

	var keygenCmd = &cobra.Command{
		Use:   "keygen <path>",
		Short: "Write a new signer keypair file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := wallet.Generate()
			if err != nil {
				return err
			}
			if err := w.Save(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "public key: %s\n", w.PublicKey())
			return nil
		},
	}

	var balanceCmd = &cobra.Command{
		Use:   "balance <address>",
		Short: "Print the confirmed balance of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return errors.Wrapf(err, "address %q", args[0])
			}
			endpoint, err := config.Endpoint(src)
			if err != nil {
				return err
			}
			be := backend.NewBackend(newClient(endpoint))
			balance, err := be.GetBalance(ctx, address)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%s: %d (%s)\n", address, balance, workflow.Native(int64(balance)).StringFixed(9))
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, serveCmd, keygenCmd, balanceCmd)
	return rootCmd
}
