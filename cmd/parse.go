package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/SashaDiz/autoved-sub000/internal/extract"
)

const maxParseInput = 1 << 20

func newParseCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Run the extraction rules on a file or stdin and print the result as JSON",
		Long: `Reads listing text from the given file (or stdin when omitted), runs the extractor
and validator, and prints the report. Nothing is downloaded or stored.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			report := extract.New(extract.WithLogger(rt.logger)).Diagnose(text)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			if err := enc.Encode(report); err != nil {
				return fmt.Errorf("encode report: %w", err)
			}
			if strict && !report.Valid {
				return fmt.Errorf("not a valid listing: %s", report.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when the text is not a valid listing")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return "", fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	raw, err := io.ReadAll(io.LimitReader(r, maxParseInput))
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(raw), nil
}
