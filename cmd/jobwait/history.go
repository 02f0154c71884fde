package main

import (
	"fmt"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"jobwait/internal/config"
	"jobwait/internal/storage"
)

func newHistoryCmd(global *globalOptions) *cobra.Command {
	var (
		limit   int
		offset  int
		auditDB string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: heredoc.Doc(`
			Print the runs recorded in the audit database as JSON, newest first.
			The database is the one given to "jobwait run --audit-db".
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if auditDB == "" {
				cfg, err := config.Load(global.configPath)
				if err != nil {
					return fmt.Errorf("failed to load configuration: %w", err)
				}
				auditDB = cfg.Audit.Path
			}
			if auditDB == "" {
				return fmt.Errorf("--audit-db is required")
			}
			if limit <= 0 || limit > 1000 {
				return fmt.Errorf("invalid --limit: %d (must be between 1 and 1000)", limit)
			}
			if offset < 0 {
				return fmt.Errorf("invalid --offset: %d (must be non-negative)", offset)
			}

			if err := storage.Init(auditDB); err != nil {
				return fmt.Errorf("failed to open run history: %w", err)
			}
			defer storage.Close()

			runs, err := storage.ListRuns(limit, offset)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), runs)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of runs to print")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of newest runs to skip")
	cmd.Flags().StringVar(&auditDB, "audit-db", "", "SQLite file written by run (default from audit.path)")

	return cmd
}
