package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the summaries table if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			db, err := openLedger(context.Background(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			log.Info().Str("driver", cfg.Ledger.Driver).Msg("summaries table ready")
			return nil
		},
	}
}

func searchCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "search <name fragment>",
		Short: "List patients whose name contains the fragment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			patients, err := loadPatients(cfg, log, nil)
			if err != nil {
				return err
			}

			matches := patients.SearchByName(args[0])
			out := cmd.OutOrStdout()
			if len(matches) == 0 {
				fmt.Fprintln(out, "Patient not found. Please enter a valid ID or name.")
				return nil
			}
			for _, m := range matches {
				fmt.Fprintf(out, "%d\t%s\n", m.ID, m.Name)
			}
			return nil
		},
	}
}
