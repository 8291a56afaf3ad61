package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formwizard/pkg/convert"
	"github.com/goliatone/go-formwizard/pkg/importer"
	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/validation"
)

func newLintCmd(a *app) *cobra.Command {
	var fromModel bool
	cmd := &cobra.Command{
		Use:   "lint <file|->",
		Short: "Report structural problems in a form",
		Long: `Lint imports a JSON Schema document (or, with --model, reads an internal
form model) and reports duplicate names, missing names, misplaced
constraints, half-configured external sources and similar problems.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			forms, err := a.lintInput(cmd, args[0], fromModel)
			if err != nil {
				return err
			}

			total := 0
			out := cmd.OutOrStdout()
			for _, form := range forms {
				result := validation.Lint(form)
				for _, issue := range result.Issues {
					total++
					fmt.Fprintf(out, "%s: %s\n", issue.Path, issue.Message)
				}
			}
			if total > 0 {
				return fmt.Errorf("lint: %d issue(s) found", total)
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromModel, "model", false, "input is an internal form model, not a JSON Schema")
	return cmd
}

func (a *app) lintInput(cmd *cobra.Command, arg string, fromModel bool) ([]model.FormSchema, error) {
	if fromModel {
		raw, err := readInput(arg, cmd.InOrStdin())
		if err != nil {
			return nil, err
		}
		var form model.FormSchema
		if err := json.Unmarshal(raw, &form); err != nil {
			return nil, fmt.Errorf("lint: decode form model: %w", err)
		}
		return []model.FormSchema{form}, nil
	}
	src, err := sourceFor(arg, cmd.InOrStdin())
	if err != nil {
		return nil, err
	}
	return importer.New(importer.WithLogger(a.logger)).Import(cmd.Context(), src, convert.ImportOptions{})
}
