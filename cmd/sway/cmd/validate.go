package cmd

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <doc>...",
	Short: "Validate a value against a schema",
	Long: `Validate a JSON value (or, with --query, a query string) read from --input
or stdin against a schema declared in the descriptor documents. Violations are
printed one per line and the command exits non-zero when there are any.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringP("schema", "s", "", "schema name (Name or source.Name)")
	validateCmd.Flags().Bool("query", false, "input is a query string; coerce before validating")
	validateCmd.Flags().StringP("input", "i", "-", "input file, - for stdin")
	_ = validateCmd.MarkFlagRequired("schema")
}

func runValidate(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("schema")
	query, _ := cmd.Flags().GetBool("query")
	input, _ := cmd.Flags().GetString("input")

	schemas, err := loadSchemas(args)
	if err != nil {
		return err
	}
	schema, err := schemas.Find(name)
	if err != nil {
		return err
	}

	data, err := readInput(cmd.InOrStdin(), input)
	if err != nil {
		return err
	}
	value, err := decodeInput(data, query)
	if err != nil {
		return err
	}

	_, violations := schemas.Check(schema, value, query)
	if len(violations) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	}
	for _, v := range violations {
		fmt.Fprintln(cmd.OutOrStdout(), v)
	}
	return errViolations
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" || path == "" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

// decodeInput parses a JSON document, or a query string when query is set.
// Repeated query keys become lists, as in HTTP dispatch.
func decodeInput(data []byte, query bool) (any, error) {
	if query {
		values, err := url.ParseQuery(strings.TrimPrefix(strings.TrimSpace(string(data)), "?"))
		if err != nil {
			return nil, fmt.Errorf("invalid query string: %w", err)
		}
		out := make(map[string]any, len(values))
		for k, vs := range values {
			if len(vs) == 1 {
				out[k] = vs[0]
				continue
			}
			list := make([]any, len(vs))
			for i, v := range vs {
				list[i] = v
			}
			out[k] = list
		}
		return out, nil
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("invalid JSON input: %w", err)
	}
	return v, nil
}
