package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/cv-generator/internal/observability"
	"github.com/jonathan/cv-generator/internal/schemas"
	"github.com/jonathan/cv-generator/internal/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate <document.json>",
	Short: "Validate a stored CV document file",
	Long: `Checks a CV document JSON file against the document schema and the entity constraints, listing every violation.

With --schema the file is checked against that JSON Schema instead, e.g. an exported form or a document
held to stricter local rules. Entity constraints are not applied in that mode.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var schemaPath string

func init() {
	validateCmd.Flags().StringVar(&schemaPath, "schema", "", "JSON Schema file to validate against instead of the document schema")
	rootCmd.AddCommand(validateCmd)
}

// schemaViolations converts schema errors into the violation list printed for
// entity constraints
func schemaViolations(err *schemas.ValidationError) *types.ValidationError {
	ve := &types.ValidationError{}
	for _, fe := range err.Errors {
		ve.Add(fe.Field, fe.Message)
	}
	return ve
}

func runValidate(cmd *cobra.Command, args []string) error {
	printer := observability.NewPrinter(cmd.ErrOrStderr())

	if schemaPath != "" {
		if err := schemas.ValidateFile(schemaPath, args[0]); err != nil {
			var schemaErr *schemas.ValidationError
			if !errors.As(err, &schemaErr) {
				return err
			}
			printer.PrintViolations(schemaViolations(schemaErr))
			return fmt.Errorf("validation failed: %s does not match %s", args[0], schemaPath)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Validation passed: %s\n", args[0])
		return nil
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read document file: %w", err)
	}

	if err := schemas.ValidateDocument(raw); err != nil {
		var schemaErr *schemas.ValidationError
		if !errors.As(err, &schemaErr) {
			return err
		}
		printer.PrintViolations(schemaViolations(schemaErr))
		return fmt.Errorf("validation failed: document does not match schema")
	}

	var doc types.CVDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal document JSON: %w", err)
	}
	if err := doc.Data.Validate(); err != nil {
		var ve *types.ValidationError
		if errors.As(err, &ve) {
			printer.PrintViolations(ve)
			return fmt.Errorf("validation failed: %d constraint violation(s)", len(ve.Violations))
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Validation passed: %s\n", args[0])
	return nil
}
