package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/egaotan/solana-revertable/backend"
	"github.com/egaotan/solana-revertable/config"
	"github.com/egaotan/solana-revertable/revertcheck/app"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGABRT)
	go shutdown(cancel, quit)

	code := app.Execute(ctx, os.Args[1:], config.NewViper(), backend.NewRPCClient, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func shutdown(cancel context.CancelFunc, quit <-chan os.Signal) {
	osCall := <-quit
	fmt.Fprintf(os.Stderr, "System call: %v, revertcheck is shutting down......\n", osCall)
	cancel()
}
