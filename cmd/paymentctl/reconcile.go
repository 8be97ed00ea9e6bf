package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"practice_app_echo/internal/models"
	"practice_app_echo/internal/services"
)

func reconcileCmd() *cobra.Command {
	var repair bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare every session's paid flag with its payment ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, logger, err := openDB()
			if err != nil {
				return err
			}
			report, err := services.NewPaymentService(db, nil, logger).ReconcileSessions(cmd.Context(), repair)
			if err != nil {
				return err
			}

			fmt.Printf("Checked:  %d\n", report.Checked)
			fmt.Printf("Drifted:  %d\n", report.Drifted)
			fmt.Printf("Repaired: %d\n", report.Repaired)
			for _, ref := range report.Drifts {
				fmt.Printf("  %s\n", ref)
			}
			if report.Drifted > report.Repaired {
				return fmt.Errorf("%d sessions drifted from the ledger", report.Drifted-report.Repaired)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&repair, "repair", false, "Rewrite drifted paid flags from the ledger")
	return cmd
}

func consistencyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consistency <session-type> <session-id>",
		Short: "Replay the ledger of one session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := models.ParseSessionType(args[0])
			if err != nil {
				return err
			}
			id, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid session id %q", args[1])
			}

			db, logger, err := openDB()
			if err != nil {
				return err
			}
			report, err := services.NewPaymentService(db, nil, logger).
				CheckSessionConsistency(cmd.Context(), models.SessionRef{Type: st, ID: uint(id)})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}
