// Command formwizard converts, lints, fills and serves form definitions.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formwizard/internal/logging"
	"github.com/goliatone/go-formwizard/pkg/config"
)

// app carries what every subcommand shares once the root command has run its
// pre-run hook.
type app struct {
	configPath string
	logLevel   string

	cfg    config.Config
	logger *logrus.Logger
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "formwizard",
		Short: "Build, convert and fill JSON Schema based forms",
		Long: `formwizard works with form definitions stored as JSON Schema documents,
flat or multi-step, including the x-externalSource and x-validation
extensions.

Examples:
  formwizard export form.json > schema.json
  formwizard import schema.yaml --as-steps
  formwizard lint schema.json
  formwizard fill schema.json --credentials creds.yaml
  formwizard serve --addr :8080`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (overrides config and LOG_LEVEL)")

	root.AddCommand(
		newExportCmd(a),
		newImportCmd(a),
		newLintCmd(a),
		newFillCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	a.logger = logging.New(cfg.Log.Level, a.stderr)
	return nil
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
