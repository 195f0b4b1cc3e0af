// Package main implements atctl, a command line client for the Africa's
// Talking gateway.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/africastalking-go/client"
	"github.com/example/africastalking-go/internal/config"
	"github.com/example/africastalking-go/internal/logger"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "atctl",
		Short: "Africa's Talking command line client",
		Long: `atctl talks to the Africa's Talking gateway using the account in
AFRICASTALKING_USERNAME and AFRICASTALKING_API_KEY (a .env file is honoured).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(smsCmd())
	cmd.AddCommand(airtimeCmd())
	cmd.AddCommand(balanceCmd())
	cmd.AddCommand(callCmd())
	cmd.AddCommand(voiceCmd())
	cmd.AddCommand(networkCmd())

	return cmd
}

// session bundles what gateway commands need.
type session struct {
	client *client.Client
	cfg    *config.Config
}

// newSession loads configuration and builds a client. Log output goes to
// stderr so stdout stays machine readable.
func newSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.App.Env, cfg.App.LogLevel, os.Stderr)
	if err != nil {
		return nil, err
	}
	c, err := client.New(cfg.AfricasTalking.Client(), client.WithLogger(logger.Component(log, "africastalking")))
	if err != nil {
		return nil, err
	}
	return &session{client: c, cfg: cfg}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
