package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/luxury-studio/internal/schemas"
)

var (
	validateSchema string
	validateJSON   string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a JSON file against a record schema",
	Long: fmt.Sprintf(`Validates a JSON file against one of the embedded record schemas
(%s) or against a schema file path.`, strings.Join(schemaNames(), ", ")),
	// Validation needs no backend configuration
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := runValidate(os.Stdout, validateSchema, validateJSON); err != nil {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateSchema, "schema", "", "Schema name or path to a schema file (required)")
	validateCmd.Flags().StringVar(&validateJSON, "json", "", "Path to the JSON file to validate (required)")
	_ = validateCmd.MarkFlagRequired("schema")
	_ = validateCmd.MarkFlagRequired("json")
	rootCmd.AddCommand(validateCmd)
}

func schemaNames() []string {
	names := schemas.Names()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}

// runValidate prints the outcome and returns a non-nil error on failure.
func runValidate(out io.Writer, schema, path string) error {
	err := schemas.ValidateFile(schema, path)
	if err == nil {
		fmt.Fprintf(out, "Validation passed: %s matches %s\n", path, schema)
		return nil
	}

	var verr *schemas.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintf(out, "Validation failed: %d error(s)\n", len(verr.Errors))
		for _, fe := range verr.Errors {
			fmt.Fprintf(out, "  - %s: %s\n", fe.Field, fe.Message)
		}
		return err
	}
	fmt.Fprintf(out, "Validation failed: %v\n", err)
	return err
}
