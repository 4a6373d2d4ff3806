// Package cli is the lockvault command line: a thin presentation layer over
// a service.Session talking to a node.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/punchamoorthee/lockvault/internal/chain"
	"github.com/punchamoorthee/lockvault/internal/config"
	"github.com/punchamoorthee/lockvault/internal/domain"
	"github.com/punchamoorthee/lockvault/internal/service"
	"github.com/punchamoorthee/lockvault/internal/wallet"
	"github.com/spf13/cobra"
)

var (
	nodeURL string
	account string
	chainID string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&nodeURL, "node", "", "Node URL (env NODE_URL)")
	rootCmd.PersistentFlags().StringVar(&account, "account", "", "Caller account address (env ACCOUNT)")
	rootCmd.PersistentFlags().StringVar(&chainID, "chain-id", "", "Chain id reported by the wallet (env CHAIN_ID)")
}

var rootCmd = &cobra.Command{
	Use:   "vault",
	Short: "Time-locked deposits against a lockvault node",
	Long: `vault deposits value that stays locked until a chosen time, withdraws it
once unlocked, extends locks and, for the ledger owner, pauses deposits.
Every mutating command waits for its transaction to be final.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadDefaults,
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadDefaults fills flags the user did not set from the environment.
func loadDefaults(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("node") {
		nodeURL = cfg.NodeURL
	}
	if !cmd.Flags().Changed("account") {
		account = cfg.Account
	}
	if !cmd.Flags().Changed("chain-id") {
		chainID = cfg.ChainID
	}
	return nil
}

type vault struct {
	session *service.Session
	orch    *service.Orchestrator
}

// connect opens a session for --account and prints every status line.
func connect(cmd *cobra.Command) (*vault, error) {
	if account == "" {
		return nil, fmt.Errorf("an account is required: pass --account or set ACCOUNT")
	}
	id, err := domain.ParseAccountID(account)
	if err != nil {
		return nil, fmt.Errorf("--account: %w", err)
	}

	client := chain.NewClient(chain.ClientConfig{
		BaseURL:       nodeURL,
		SubmitRetries: 3,
		RetryBackoff:  time.Second,
	})
	session := service.NewSession(wallet.NewStatic(chainID, id), client)
	session.OnStatus(func(msg string) {
		fmt.Fprintln(cmd.OutOrStdout(), msg)
	})
	if err := session.Connect(cmd.Context()); err != nil {
		session.Close()
		return nil, err
	}
	return &vault{session: session, orch: service.NewOrchestrator(client, session)}, nil
}

func (v *vault) Close() { v.session.Close() }
