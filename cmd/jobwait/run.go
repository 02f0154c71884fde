package main

import (
	"fmt"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"jobwait/internal/config"
	"jobwait/internal/engine/jenkins"
	"jobwait/internal/logger"
	"jobwait/internal/runner"
	"jobwait/internal/storage"
)

// runOptions holds the flags of a trigger run
type runOptions struct {
	global *globalOptions

	url      string
	user     string
	token    string
	headers  []string
	insecure bool
	job      string
	params   []string
	wait     bool
	timeout  int
	auditDB  string
}

func (o *runOptions) bindFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&o.url, "url", "", "Jenkins base URL")
	flags.StringVar(&o.user, "user", "", "Jenkins user name")
	flags.StringVar(&o.token, "token", "", "Jenkins API token")
	flags.StringArrayVar(&o.headers, "header", nil, "Extra request header as key=value (repeatable)")
	flags.BoolVar(&o.insecure, "insecure", false, "Skip TLS certificate verification for Jenkins requests")
	flags.StringVar(&o.job, "job", "", "Job name; folders are separated by '/'")
	flags.StringArrayVar(&o.params, "param", nil, "Build parameter as key=value (repeatable)")
	flags.BoolVar(&o.wait, "wait", false, "Wait for the build to finish")
	flags.IntVar(&o.timeout, "timeout", 0, "Seconds before the run is aborted; 0 disables (default 3600)")
	flags.StringVar(&o.auditDB, "audit-db", "", "SQLite file recording every run")
}

func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{global: global}

	cmd := &cobra.Command{
		Use:   "run [job-name]",
		Short: "Trigger a job and optionally wait for it",
		Long: heredoc.Doc(`
			Trigger a Jenkins job. Parameterized jobs receive the given parameters
			through buildWithParameters; other jobs are started with build and the
			parameters are ignored.

			With --wait the queue item is followed to its build and the build is
			polled until it reports SUCCESS, FAILURE, ABORTED or UNSTABLE, or until
			--timeout elapses.
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd, opts, args)
		},
	}
	opts.bindFlags(cmd)

	return cmd
}

// resolveConfig loads the file and environment, then applies the flags that
// were set explicitly
func resolveConfig(cmd *cobra.Command, opts *runOptions, args []string) (*config.Config, error) {
	cfg, err := config.Load(opts.global.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.Jenkins.URL = opts.url
	}
	if flags.Changed("user") {
		cfg.Jenkins.Username = opts.user
	}
	if flags.Changed("token") {
		cfg.Jenkins.Token = opts.token
	}
	if flags.Changed("insecure") {
		cfg.Jenkins.InsecureSkipVerify = opts.insecure
	}
	if len(opts.headers) > 0 {
		headers, err := config.ParseKeyValues(opts.headers)
		if err != nil {
			return nil, fmt.Errorf("invalid --header: %w", err)
		}
		cfg.Jenkins.Headers = config.MergeStringMaps(cfg.Jenkins.Headers, headers)
	}

	if flags.Changed("job") {
		cfg.Job.Name = opts.job
	}
	if len(args) == 1 {
		cfg.Job.Name = args[0]
	}
	if len(opts.params) > 0 {
		params, err := config.ParseKeyValues(opts.params)
		if err != nil {
			return nil, fmt.Errorf("invalid --param: %w", err)
		}
		cfg.Job.Parameters = config.MergeStringMaps(cfg.Job.Parameters, params)
	}
	if flags.Changed("wait") {
		cfg.Job.Wait = opts.wait
	}
	if flags.Changed("timeout") {
		cfg.Job.Timeout = opts.timeout
	}
	if flags.Changed("audit-db") {
		cfg.Audit.Path = opts.auditDB
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runJob(cmd *cobra.Command, opts *runOptions, args []string) error {
	cfg, err := resolveConfig(cmd, opts, args)
	if err != nil {
		return err
	}

	var runnerOpts []runner.Option
	if cfg.Audit.Path != "" {
		if err := storage.Init(cfg.Audit.Path); err != nil {
			return fmt.Errorf("failed to open run history: %w", err)
		}
		defer storage.Close()
		runnerOpts = append(runnerOpts, runner.WithRecorder(storage.Recorder{}))
	}

	client := jenkins.NewClient(cfg.Jenkins)
	waiter := jenkins.NewWaiter(client,
		jenkins.WithPollInterval(time.Duration(cfg.Job.PollInterval)*time.Second),
	)
	r := runner.New(jenkins.NewEngine(jenkins.NewTrigger(client), waiter), runnerOpts...)

	runLog := logger.With("job", cfg.Job.Name, "url", cfg.Jenkins.URL)
	runLog.Info("Starting run", "wait", cfg.Job.Wait, "timeout", cfg.Job.Timeout)

	result, err := r.Run(cmd.Context(), runner.Request{
		Job:     cfg.Job.Name,
		Params:  cfg.Job.Parameters,
		Wait:    cfg.Job.Wait,
		Timeout: time.Duration(cfg.Job.Timeout) * time.Second,
	})

	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(result))
	return err
}
