package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/punchamoorthee/lockvault/internal/domain"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the ledger as seen by --account",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) error {
	v, err := connect(cmd)
	if err != nil {
		return err
	}
	defer v.Close()

	s := v.session.Observed()
	lock := domain.Lock{Balance: s.MyBalance, UnlockTime: s.MyUnlockTime}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Account:        %s\n", v.session.Account())
	fmt.Fprintf(out, "Network:        %s\n", v.session.Network())
	fmt.Fprintf(out, "Owner:          %s\n", s.Owner)
	if s.IsOwner {
		fmt.Fprintln(out, "                (you are the owner)")
	}
	fmt.Fprintf(out, "My balance:     %s ETH\n", domain.FormatEther(s.MyBalance))
	fmt.Fprintf(out, "Unlock time:    %s%s\n", s.UnlockLabel(), relative(s.MyUnlockTime))
	fmt.Fprintf(out, "Lock state:     %s\n", lock.State(time.Now()))
	fmt.Fprintf(out, "Total locked:   %s ETH\n", domain.FormatEther(s.AggregateBalance))
	fmt.Fprintf(out, "Deposits:       %s\n", pausedLabel(s.DepositsPaused))
	return nil
}

func relative(unix int64) string {
	if unix <= 0 {
		return ""
	}
	return " (" + humanize.Time(time.Unix(unix, 0)) + ")"
}

func pausedLabel(paused bool) string {
	if paused {
		return "paused"
	}
	return "open"
}
