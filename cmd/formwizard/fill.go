package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formwizard/pkg/convert"
	"github.com/goliatone/go-formwizard/pkg/importer"
	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/multistep"
	"github.com/goliatone/go-formwizard/pkg/renderers/tui"
	"github.com/goliatone/go-formwizard/pkg/resolver"
	"github.com/goliatone/go-formwizard/pkg/validation"
)

func newFillCmd(a *app) *cobra.Command {
	var (
		format      string
		back        bool
		credentials string
		allowHTTP   bool
		output      string
	)
	cmd := &cobra.Command{
		Use:   "fill <schema|url|->",
		Short: "Fill a form step by step in the terminal",
		Long: `Fill walks a flat or multi-step form in the terminal. Fields backed by
x-externalSource are offered as choices loaded from their endpoint and
fields carrying x-validation.externalSource are checked remotely. The
merged payload is printed once the last step is submitted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, ok := tui.ParseOutputFormat(format)
			if !ok {
				return fmt.Errorf("fill: unknown format %q", format)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			src, err := sourceFor(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			forms, err := importer.New(importer.WithHTTP(allowHTTP), importer.WithLogger(a.logger)).
				Import(ctx, src, convert.ImportOptions{AsSteps: true})
			if err != nil {
				return err
			}
			if len(forms) == 0 {
				return errors.New("fill: no form in input")
			}
			steps, err := formSteps(forms[0])
			if err != nil {
				return err
			}

			if credentials == "" {
				credentials = a.cfg.Resolver.CredentialsFile
			}
			lookup, err := a.newResolver(credentials)
			if err != nil {
				return err
			}

			rt, err := multistep.New(steps,
				multistep.WithResolver(lookup),
				multistep.WithValidator(validation.NewValidator()),
				multistep.WithLogger(a.logger),
				multistep.WithScheduler(nil, a.cfg.Resolver.DebounceWindow),
				multistep.WithSubmit(func(_ context.Context, data map[string]any) error {
					a.logger.WithField("fields", len(data)).Debug("fill: submitted")
					return nil
				}),
			)
			if err != nil {
				return err
			}

			renderer, err := tui.New(
				tui.WithPromptDriver(tui.NewSurveyDriver(cmd.ErrOrStderr())),
				tui.WithOutputFormat(outputFormat),
				tui.WithBackNavigation(back),
				tui.WithLogger(a.logger),
				tui.WithTheme(tui.Theme{ErrorPrefix: "! "}),
			)
			if err != nil {
				return err
			}
			data, err := renderer.Fill(ctx, rt)
			if errors.Is(err, tui.ErrAborted) {
				return errors.New("fill: aborted")
			}
			if err != nil {
				return err
			}
			return writeOutput(output, cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().StringVar(&format, "format", string(tui.OutputFormatJSON), "output format: json, form or pretty")
	cmd.Flags().BoolVar(&back, "back", false, "offer going back after each step")
	cmd.Flags().StringVar(&credentials, "credentials", "", "YAML credentials file for authenticated sources")
	cmd.Flags().BoolVar(&allowHTTP, "allow-http", false, "allow fetching the schema from a URL")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	return cmd
}

// formSteps returns the steps of form. A flat form becomes a single step.
func formSteps(form model.FormSchema) ([]model.FormStep, error) {
	if form.IsMultiStep {
		return form.Steps, nil
	}
	step := model.NewStep(form.Title)
	step, err := convert.SetStepFields(step, form.Fields)
	if err != nil {
		return nil, fmt.Errorf("fill: %w", err)
	}
	return []model.FormStep{step}, nil
}

func (a *app) newResolver(credentialsPath string) (*resolver.Resolver, error) {
	opts := []resolver.ResolverOption{
		resolver.WithTimeout(a.cfg.Resolver.Timeout),
		resolver.WithAPIKeyHeader(a.cfg.Resolver.APIKeyHeader),
		resolver.WithLogger(a.logger),
	}
	if credentialsPath != "" {
		creds, err := resolver.LoadCredentialsFile(credentialsPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, resolver.WithCredentials(creds))
	}
	return resolver.New(opts...), nil
}
