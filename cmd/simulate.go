package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openvest/vestd/auth"
	"github.com/openvest/vestd/config"
	"github.com/openvest/vestd/core/claim"
	"github.com/openvest/vestd/core/store"
	"github.com/openvest/vestd/core/transfer"
	"github.com/openvest/vestd/core/vesting"
	"github.com/openvest/vestd/internal/keymutex"
)

var (
	simBeneficiary string
	simAt          uint64
)

// simulateCmd answers "what would a claim transfer right now" without
// moving funds or touching the allocation record.
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate a withdrawal against the configured store",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&simBeneficiary, "beneficiary", "", "beneficiary identity")
	simulateCmd.Flags().Uint64Var(&simAt, "at", 0, "logical timestamp (0 = now)")
	_ = simulateCmd.MarkFlagRequired("beneficiary")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Store.Backend != "sqlite" {
		return fmt.Errorf("simulate requires the sqlite store backend")
	}
	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	ids := auth.NewStaticProvider(cfg.Auth.Administrator, cfg.Auth.Delegates)
	// Simulation never reaches the transfer boundary.
	noop := transfer.Func(func(context.Context, string, string, uint64) error { return nil })
	eng, err := claim.New(st, ids, noop, keymutex.New(), nil, nil,
		vesting.SystemClock{}, nil, cfg.Ledger.TokenType)
	if err != nil {
		return err
	}
	sim, err := eng.SimulateWithdraw(cmd.Context(), simBeneficiary, simAt)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(sim)
}
