package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-outreach/internal/services"
)

// RunCmd returns the run command, which performs one batch immediately.
func RunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one send batch now",
		Long: `Run a single batch with the same guards as the scheduled job: business
hours, daily quota and re-entrancy. Ctrl-C stops the batch at the next delay.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			tr, err := a.transport(ctx)
			if err != nil {
				return err
			}
			res, err := a.scheduler(tr).RunBatch(ctx)
			printBatch(cmd, res)
			return err
		},
	}
}

func printBatch(cmd *cobra.Command, res services.BatchResult) {
	w := cmd.OutOrStdout()
	if res.Reason != "" {
		fmt.Fprintf(w, "%s %s\n", color.New(color.FgYellow).Sprint("skipped:"), res.Reason)
		return
	}
	fmt.Fprintf(w, "sent %s, failed %s\n",
		color.New(color.FgGreen).Sprint(res.Sent),
		color.New(color.FgRed).Sprint(res.Failed))
}

// CheckRepliesCmd returns the check-replies command.
func CheckRepliesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-replies",
		Short: "Poll the inbox once and mark contacts that replied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			ch := a.checker()
			if ch == nil {
				return errors.New("IMAP_HOST must be set to check replies")
			}
			res, err := ch.Check(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "checked %d, responses %s, skipped %d, errors %d\n",
				res.Checked, color.New(color.FgGreen).Sprint(res.Responses), res.Skipped, res.Errors)
			return nil
		},
	}
}

// SendTestCmd returns the send-test command.
func SendTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send-test <email>",
		Short: "Verify the mail transport and send a test email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			tr, err := a.transport(ctx)
			if err != nil {
				return err
			}
			if err := tr.Verify(ctx); err != nil {
				return err
			}
			id, err := tr.SendTest(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s test email sent to %s (%s)\n",
				color.New(color.FgGreen).Sprint("✓"), args[0], id)
			return nil
		},
	}
}

// VersionCmd returns the version command.
func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}
