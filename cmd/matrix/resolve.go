package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shehryarbajwa/browsermatrix/internal/catalog"
	"github.com/shehryarbajwa/browsermatrix/internal/logging"
	"github.com/shehryarbajwa/browsermatrix/internal/matrix"
)

func newResolveCmd(g *globalFlags) *cobra.Command {
	f := &runFlags{}

	cmd := &cobra.Command{
		Use:   "resolve [run-file]",
		Short: "Print the fully qualified browser matrix without opening sessions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := loadRun(cmd, f, args)
			if err != nil {
				return err
			}
			browsers, err := file.BrowsersSource()
			if err != nil {
				return err
			}

			logger, err := logging.NewConsole(g.verbose)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			parsed, err := matrix.Parse(browsers)
			if err != nil {
				return err
			}
			defs, err := matrix.NewResolver(catalog.Default(), logger).Resolve(parsed)
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(defs)
		},
	}

	cmd.Flags().StringVar(&f.browsersFile, "browsers", "", "YAML or JSON file holding the browsers mapping")
	return cmd
}
