package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-outreach/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "outreach",
		Short:   "Outreach - email drip campaigns with follow-ups",
		Version: cli.Version,
		Long: `Outreach sends an initial email and up to three follow-ups to each contact,
within business hours and a randomized daily quota, and stops as soon as a
contact replies. Configuration is read from the environment and .env.`,
		SilenceUsage: true,
	}

	// Campaign
	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.RunCmd())
	rootCmd.AddCommand(cli.CheckRepliesCmd())
	rootCmd.AddCommand(cli.StatsCmd())

	// Contacts
	rootCmd.AddCommand(cli.AddCmd())
	rootCmd.AddCommand(cli.ImportCmd())

	// Diagnostics
	rootCmd.AddCommand(cli.SendTestCmd())
	rootCmd.AddCommand(cli.VersionCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
