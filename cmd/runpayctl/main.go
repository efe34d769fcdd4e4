// Command runpayctl drives the payroll console from a terminal: an
// interactive session, one-off prompt matching and summary previews.
package main

import (
	"context"
	"fmt"
	"os"

	"runpay/internal/cli"
	"runpay/internal/core"
	"runpay/internal/ledger"
	"runpay/internal/log"
	"runpay/internal/seed/memory"
	"runpay/internal/services"

	"github.com/spf13/cobra"
)

var (
	seedFile string
	policy   string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "runpayctl",
	Short:         "Terminal client for the runpay payroll console",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&seedFile, "seed", "", "YAML seed file (default: the configured seed backend)")
	rootCmd.PersistentFlags().StringVar(&policy, "policy", "", "underfunded policy: reject or clamp (default: LEDGER_UNDERFUNDED_POLICY)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "error", "log level for diagnostics on stderr")

	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	cli.LoadEnvFile()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger(cmd *cobra.Command) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(logLevel)
	cfg.Component = log.ComponentCLI
	cfg.Output = cmd.ErrOrStderr()
	return log.New(cfg)
}

// loadSeed reads --seed when given, otherwise the seed backend named by the
// environment.
func loadSeed(ctx context.Context, logger *log.Logger) (core.Seed, ledger.UnderfundedPolicy, ledger.SummaryFigures, error) {
	figures := ledger.DefaultFigures()
	pol := policy

	var s core.Seed
	if seedFile != "" {
		store, err := memory.NewFromFile(seedFile)
		if err != nil {
			return core.Seed{}, "", figures, err
		}
		if s, err = store.ReadSeed(ctx); err != nil {
			return core.Seed{}, "", figures, err
		}
	} else {
		cfg, err := cli.LoadConfig(false)
		if err != nil {
			return core.Seed{}, "", figures, err
		}
		seed, cleanup, err := cli.LoadSeed(ctx, cfg, logger, nil)
		if err != nil {
			return core.Seed{}, "", figures, err
		}
		if cleanup != nil {
			_ = cleanup()
		}
		s = seed
		figures = ledger.SummaryFigures{Payroll: cfg.SummaryPayroll, Vendors: cfg.SummaryVendors}
		if pol == "" {
			pol = cfg.UnderfundedPolicy
		}
	}

	p, err := ledger.ParsePolicy(pol)
	if err != nil {
		return core.Seed{}, "", figures, err
	}
	return s, p, figures, nil
}

func newConsole(cmd *cobra.Command) (*services.Console, core.Seed, error) {
	logger := newLogger(cmd)
	s, p, figures, err := loadSeed(cmd.Context(), logger)
	if err != nil {
		return nil, core.Seed{}, err
	}
	c := services.NewConsole(ledger.NewState(s, p, figures), s.Integrations, services.Options{Logger: logger})
	return c, s, nil
}
