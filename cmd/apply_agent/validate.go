package main

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jonathan/freelance-applier/internal/schemas"
)

var validateCommand = &cobra.Command{
	Use:   "validate",
	Short: "Validate a JSON file against a schema",
	Long:  "Validates a JSON file against one of the bundled schemas (by name, e.g. job_posting) or a schema file path.",
	RunE:  runValidateCmd,
}

var (
	validateSchema string
	validateJSON   string
)

func init() {
	validateCommand.Flags().StringVarP(&validateSchema, "schema", "s", "", "Bundled schema name or path to a schema file (required)")
	validateCommand.Flags().StringVarP(&validateJSON, "json", "j", "", "Path to the JSON file to validate (required)")
	_ = validateCommand.MarkFlagRequired("schema")
	_ = validateCommand.MarkFlagRequired("json")
	rootCmd.AddCommand(validateCommand)
}

func runValidateCmd(_ *cobra.Command, _ []string) error {
	err := validateAgainst(validateSchema, validateJSON)
	if err == nil {
		_, _ = fmt.Fprintf(os.Stdout, "Validation passed: %s matches %s\n", validateJSON, validateSchema)
		return nil
	}

	var validationErr *schemas.ValidationError
	if errors.As(err, &validationErr) {
		_, _ = fmt.Fprintf(os.Stderr, "Validation failed:\n")
		for _, fe := range validationErr.Errors {
			_, _ = fmt.Fprintf(os.Stderr, "  - %s: %s\n", fe.Field, fe.Message)
		}
		os.Exit(1)
	}
	return err
}

// validateAgainst validates jsonPath with a bundled schema name or a schema file path
func validateAgainst(schema, jsonPath string) error {
	if slices.Contains(schemas.Names(), schema) {
		return schemas.ValidateFile(schema, jsonPath)
	}
	return schemas.ValidateJSON(schema, jsonPath)
}
