package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"casino-vault-backend/internal/logger"
)

func main() {
	_ = godotenv.Load()
	logger.Init(logger.Config{Level: "warn", Format: "console", Output: os.Stderr})

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "casinoctl",
		Short:         "Operate the casino vault against its Redis ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		TokenCmd(),
		AirdropCmd(),
		DepositCmd(),
		InitCmd(),
		PauseCmd(),
		ResumeCmd(),
		FundCmd(),
		SkimCmd(),
		StatusCmd(),
		SweepCmd(),
	)

	return cmd
}
