package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/goliatone/go-formwizard/pkg/convert"
	"github.com/goliatone/go-formwizard/pkg/model"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		output  string
		compact bool
	)
	cmd := &cobra.Command{
		Use:   "export <form.json|->",
		Short: "Convert an internal form model into a JSON Schema document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			var form model.FormSchema
			if err := json.Unmarshal(raw, &form); err != nil {
				return fmt.Errorf("export: decode form model: %w", err)
			}
			for _, issue := range multierr.Errors(form.Validate()) {
				a.logger.WithField("form", form.Title).Warn("export: " + issue.Error())
			}

			var data []byte
			if compact {
				data, err = convert.Marshal(form)
			} else {
				data, err = convert.ToJSONSchema(form).Indent()
			}
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			return writeOutput(output, cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&compact, "compact", false, "emit compact JSON")
	return cmd
}
