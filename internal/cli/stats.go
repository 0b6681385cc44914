package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-outreach/internal/services"
	"github.com/tbourn/go-outreach/internal/sysutil"
)

// StatsCmd returns the stats command.
func StatsCmd() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show contact counts per stage and what is due now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if noColor || sysutil.IsTruthy(os.Getenv("NO_COLOR")) {
				color.NoColor = true
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			st, err := a.store.Statistics(cmd.Context(), a.intervals)
			if err != nil {
				return err
			}
			renderStats(cmd.OutOrStdout(), st)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}

func renderStats(w io.Writer, st services.Statistics) {
	head := color.New(color.Bold)
	row := func(label string, n any, c *color.Color) {
		fmt.Fprintf(w, "  %-18s %s\n", label, c.Sprint(n))
	}
	plain := color.New(color.Reset)

	head.Fprintln(w, "Contacts")
	row("Total", st.Total, plain)
	row("Pending", st.Pending, plain)
	row("Initial sent", st.Contacted1, plain)
	row("Follow-up 1 sent", st.FollowUp1, plain)
	row("Follow-up 2 sent", st.FollowUp2, plain)
	row("Follow-up 3 sent", st.FollowUp3, plain)
	row("Responded", st.Responded, color.New(color.FgGreen))
	fmt.Fprintln(w)

	head.Fprintln(w, "Today")
	row("Sent", st.ContactedToday, color.New(color.FgCyan))
	fmt.Fprintln(w)

	head.Fprintln(w, "Due now")
	due := color.New(color.FgYellow)
	row("Follow-up 1", st.NeedFollowUp1, due)
	row("Follow-up 2", st.NeedFollowUp2, due)
	row("Follow-up 3", st.NeedFollowUp3, due)
}
