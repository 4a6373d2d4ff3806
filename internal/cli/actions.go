package cli

import (
	"context"
	"fmt"

	"github.com/punchamoorthee/lockvault/internal/domain"
	"github.com/punchamoorthee/lockvault/internal/service"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(depositCmd, withdrawCmd, extendCmd, pauseCmd)

	depositCmd.Flags().StringP("amount", "a", "", "Amount in ETH")
	depositCmd.Flags().StringP("lock", "l", "", "Lock duration")
	depositCmd.Flags().StringP("unit", "u", string(domain.UnitMinutes), "Duration unit: seconds, minutes, hours or days")

	withdrawCmd.Flags().StringP("amount", "a", "", "Amount in ETH")

	extendCmd.Flags().StringP("by", "b", "", "Extra lock duration")
	extendCmd.Flags().StringP("unit", "u", string(domain.UnitMinutes), "Duration unit: seconds, minutes, hours or days")
}

var depositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Lock ETH until now + the lock duration",
	Long: `Deposit ETH and lock it. If you already hold a lock, the unlock time
becomes the later of the current unlock time and now + the new duration.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		amount, _ := cmd.Flags().GetString("amount")
		lock, _ := cmd.Flags().GetString("lock")
		unit, _ := cmd.Flags().GetString("unit")
		return runAction(cmd, func(in *service.Inputs) {
			in.DepositAmount = amount
			in.LockValue = lock
			in.LockUnit = domain.DurationUnit(unit)
		}, (*service.Orchestrator).Deposit)
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Withdraw unlocked ETH",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		amount, _ := cmd.Flags().GetString("amount")
		return runAction(cmd, func(in *service.Inputs) {
			in.WithdrawAmount = amount
		}, (*service.Orchestrator).Withdraw)
	},
}

var extendCmd = &cobra.Command{
	Use:   "extend",
	Short: "Push your unlock time further out",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		by, _ := cmd.Flags().GetString("by")
		unit, _ := cmd.Flags().GetString("unit")
		return runAction(cmd, func(in *service.Inputs) {
			in.ExtendValue = by
			in.ExtendUnit = domain.DurationUnit(unit)
		}, (*service.Orchestrator).ExtendLock)
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause deposits, or resume them if already paused (owner only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runAction(cmd, nil, (*service.Orchestrator).TogglePause)
	},
}

type actionFunc = func(*service.Orchestrator, context.Context) (service.Outcome, error)

func runAction(cmd *cobra.Command, fill func(*service.Inputs), run actionFunc) error {
	v, err := connect(cmd)
	if err != nil {
		return err
	}
	defer v.Close()

	in := service.DefaultInputs()
	if fill != nil {
		fill(&in)
	}
	v.session.SetInputs(in)

	out, err := run(v.orch, cmd.Context())
	if hash := out.Record.SubmittedHash; hash != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "tx: %s\n", hash)
	}
	if err != nil {
		return fmt.Errorf("%s: %s", out.Record.Kind, domain.Diagnose(err))
	}
	return nil
}
