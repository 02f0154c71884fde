package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"jobwait/internal/config"
	"jobwait/internal/logger"
)

// globalOptions are the flags shared by every command
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	global := &globalOptions{}
	opts := &runOptions{global: global}

	cmd := &cobra.Command{
		Use:   "jobwait [job-name]",
		Short: "Trigger a Jenkins job and wait for its result",
		Long: heredoc.Doc(`
			Trigger a Jenkins job and, with --wait, poll it until it finishes.

			The exit status is 0 when the job succeeds (or was only triggered) and 1
			otherwise. Inputs come from an optional YAML file, a .env file, JOBWAIT_*
			or INPUT_* environment variables, and flags, in increasing precedence.

			Running jobwait without a subcommand is the same as "jobwait run".
		`),
		Example: heredoc.Doc(`
			$ jobwait deploy --url https://ci.example.com --user bot --token $TOKEN
			$ jobwait run team/app/deploy --param ENV=prod --wait --timeout 1800
			$ jobwait history --audit-db runs.db --limit 5
		`),
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := global.logLevel
			if level == "" {
				level = config.GetLogLevel()
			}
			format := global.logFormat
			if format == "" {
				format = config.GetLogFormat()
			}
			logger.InitWithFormat(level, format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd, opts, args)
		},
	}

	cmd.PersistentFlags().StringVar(&global.configPath, "config", "", "Path to a YAML configuration file")
	cmd.PersistentFlags().StringVar(&global.logLevel, "log-level", "", "Log level: debug, info, warn or error (default from JOBWAIT_LOG_LEVEL)")
	cmd.PersistentFlags().StringVar(&global.logFormat, "log-format", "", "Log format: json or text (default from JOBWAIT_LOG_FORMAT)")
	opts.bindFlags(cmd)

	cmd.AddCommand(newRunCmd(global))
	cmd.AddCommand(newHistoryCmd(global))

	return cmd
}

// printJSON writes data as indented JSON
func printJSON(w io.Writer, data any) error {
	output, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}
