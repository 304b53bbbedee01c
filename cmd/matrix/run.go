package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/shehryarbajwa/browsermatrix/internal/catalog"
	"github.com/shehryarbajwa/browsermatrix/internal/config"
	"github.com/shehryarbajwa/browsermatrix/internal/logging"
	"github.com/shehryarbajwa/browsermatrix/internal/orchestrator"
	"github.com/shehryarbajwa/browsermatrix/pkg/models"
)

// runFlags override the run file
type runFlags struct {
	provider     string
	url          string
	code         string
	codeFile     string
	browsersFile string
	timeout      int
	settle       time.Duration
	logLevel     string
	output       string
	providers    providerFlags
}

func newRunCmd(g *globalFlags) *cobra.Command {
	f := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run [run-file]",
		Short: "Run a script in every browser of the matrix",
		Long: `Runs the configured script in every resolved browser, at most as many at a time as
the provider account allows, and prints one report per browser.

Flags override the run file. The command exits non-zero when any browser failed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatrix(cmd, g, f, args)
		},
	}

	f.register(cmd)
	return cmd
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.provider, "provider", "p", "", "Provider to run on (saucelabs, browserstack, local)")
	cmd.Flags().StringVar(&f.url, "url", "", "Page to open before running the script")
	cmd.Flags().StringVar(&f.code, "code", "", "Script to run")
	cmd.Flags().StringVar(&f.codeFile, "code-file", "", "File holding the script to run")
	cmd.Flags().StringVar(&f.browsersFile, "browsers", "", "YAML or JSON file holding the browsers mapping")
	cmd.Flags().IntVar(&f.timeout, "timeout", 0, "Connect and open timeout in milliseconds")
	cmd.Flags().DurationVar(&f.settle, "settle", 0, "Time the page keeps running after the script")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Lowest console level to report")
	cmd.Flags().StringVarP(&f.output, "output", "o", "json", "Report format: json or yaml")
	f.providers.register(cmd)
}

// loadRun merges the run file and flags
func loadRun(cmd *cobra.Command, f *runFlags, args []string) (*config.File, error) {
	file := &config.File{}
	if len(args) == 1 {
		var err error
		if file, err = config.Load(args[0]); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		file.Provider = f.provider
	}
	if flags.Changed("url") {
		file.URL = f.url
	}
	if flags.Changed("code") {
		file.Code = f.code
		file.CodeFile = ""
	}
	if flags.Changed("code-file") {
		file.CodeFile = f.codeFile
	}
	if flags.Changed("timeout") {
		file.Timeout = f.timeout
	}
	if flags.Changed("settle") {
		file.Settle = f.settle.String()
	}
	if flags.Changed("log-level") {
		file.LogLevel = f.logLevel
	}
	if flags.Changed("browsers") {
		data, err := os.ReadFile(f.browsersFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read browsers file: %w", err)
		}
		if err := yaml.Unmarshal(data, &file.Browsers); err != nil {
			return nil, fmt.Errorf("invalid browsers file: %w", err)
		}
		// Unmarshal into a Node yields the document node
		if len(file.Browsers.Content) == 1 {
			file.Browsers = *file.Browsers.Content[0]
		}
	}
	if file.Provider == "" {
		file.Provider = "saucelabs"
	}
	return file, nil
}

func runMatrix(cmd *cobra.Command, g *globalFlags, f *runFlags, args []string) error {
	if err := config.LoadEnv(g.envFile); err != nil {
		return err
	}

	file, err := loadRun(cmd, f, args)
	if err != nil {
		return err
	}
	cfg, err := file.RunConfig(config.Credentials(file.Provider))
	if err != nil {
		return err
	}

	logger, err := logging.NewConsole(g.verbose || cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := interruptible(cmd.Context())
	defer stop()

	tables := catalog.Default()
	registry, pool, err := f.providers.registry(tables, logger, file.Provider == config.LocalProvider)
	if err != nil {
		return err
	}
	defer registry.Close()

	p, err := registry.Get(file.Provider)
	if err != nil {
		return err
	}

	runner := orchestrator.NewRunner(orchestrator.Options{
		Provider:     p,
		Tables:       tables,
		Logger:       logger,
		StartLimiter: f.providers.startLimiter(),
		Observers:    []orchestrator.Observer{progress(logger)},
	})

	defs, err := runner.Prepare(cfg)
	if err != nil {
		return err
	}
	if pool != nil {
		if err := pool.EnsureImage(ctx); err != nil {
			return fmt.Errorf("failed to prepare browser image: %w", err)
		}
	}

	batch, err := runner.Execute(ctx, cfg, defs)
	if err != nil {
		return err
	}

	if err := writeReport(cmd.OutOrStdout(), f.output, batch); err != nil {
		return err
	}

	failed := 0
	for _, res := range batch {
		if res.Failed() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d browsers failed", failed, len(batch))
	}
	return nil
}

// progress logs each browser as it finishes
func progress(logger *zap.Logger) orchestrator.Observer {
	return orchestrator.ObserverFunc(func(t orchestrator.Transition) {
		switch t.To {
		case orchestrator.StateSucceeded:
			logger.Info("Browser finished", zap.String("browser", t.DisplayName))
		case orchestrator.StateFailed:
			logger.Warn("Browser failed", zap.String("browser", t.DisplayName), zap.String("error", t.Error))
		}
	})
}

func writeReport(w io.Writer, format string, batch models.BatchResult) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(batch)
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(batch)
	}
	return fmt.Errorf("unknown output format %q", format)
}

// interruptible returns a context cancelled on SIGINT or SIGTERM
func interruptible(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
