package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formwizard/pkg/convert"
	"github.com/goliatone/go-formwizard/pkg/formsapi"
	"github.com/goliatone/go-formwizard/pkg/importer"
	"github.com/goliatone/go-formwizard/pkg/model"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		asSteps    bool
		title      string
		allowHTTP  bool
		save       bool
		documentID string
		output     string
	)
	cmd := &cobra.Command{
		Use:   "import <schema.json|schema.yaml|url|->",
		Short: "Import JSON Schema text into the internal form model",
		Long: `Import reads a JSON Schema document (JSON or YAML), a multi-step envelope
or an array of schemas and prints the resulting form models. With --save the
forms are stored through the forms API instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := sourceFor(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			imp := importer.New(
				importer.WithHTTP(allowHTTP),
				importer.WithTimeout(a.cfg.Resolver.Timeout),
				importer.WithLogger(a.logger),
			)
			forms, err := imp.Import(cmd.Context(), src, convert.ImportOptions{AsSteps: asSteps, Title: title})
			if err != nil {
				return err
			}

			if !save {
				data, err := json.MarshalIndent(singleOrList(forms), "", "  ")
				if err != nil {
					return fmt.Errorf("import: encode forms: %w", err)
				}
				return writeOutput(output, cmd.OutOrStdout(), data)
			}

			records, err := a.saveForms(cmd, forms, documentID)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				return fmt.Errorf("import: encode records: %w", err)
			}
			return writeOutput(output, cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().BoolVar(&asSteps, "as-steps", false, "combine an array of schemas into one multi-step form")
	cmd.Flags().StringVar(&title, "title", "", "title of the combined multi-step form")
	cmd.Flags().BoolVar(&allowHTTP, "allow-http", false, "allow fetching the schema from a URL")
	cmd.Flags().BoolVar(&save, "save", false, "store the imported forms through the forms API")
	cmd.Flags().StringVar(&documentID, "document-id", "", "update this form instead of creating one (single form only)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	return cmd
}

func singleOrList(forms []model.FormSchema) any {
	if len(forms) == 1 {
		return forms[0]
	}
	return forms
}

func (a *app) saveForms(cmd *cobra.Command, forms []model.FormSchema, documentID string) ([]formsapi.FormRecord, error) {
	if a.cfg.FormsAPI.BaseURL == "" {
		return nil, errors.New("import: formsAPI.baseURL is not configured")
	}
	if documentID != "" && len(forms) != 1 {
		return nil, fmt.Errorf("import: --document-id needs exactly one form, got %d", len(forms))
	}
	client := formsapi.NewClient(a.cfg.FormsAPI.BaseURL,
		formsapi.WithToken(a.cfg.FormsAPI.Token),
		formsapi.WithLogger(a.logger),
	)

	records := make([]formsapi.FormRecord, 0, len(forms))
	for _, form := range forms {
		payload, err := convert.ToPayload(form)
		if err != nil {
			return nil, fmt.Errorf("import: %q: %w", form.Title, err)
		}
		record, err := client.Save(cmd.Context(), documentID, payload)
		if err != nil {
			return nil, err
		}
		a.logger.WithFields(logrus.Fields{"documentId": record.DocumentID, "title": record.Title}).Info("import: form saved")
		records = append(records, record)
	}
	return records, nil
}
