// Package cmd provides command-line interface commands for the triage service.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"triage/config"
	"triage/core"
	"triage/enrich"
	"triage/report"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// Global flags for triage commands
var (
	outputJSON bool
	outputCSV  bool
	noColor    bool
)

const defaultTimeout = 5 * time.Minute

// NewTriageCmd creates the root triage command with all subcommands.
func NewTriageCmd() *cobra.Command {
	triageCmd := &cobra.Command{
		Use:   "triage",
		Short: "Classify and enrich threat indicators",
		Long: `Classify and enrich threat indicators from the command line.

Indicators are read from a file or stdin, split on commas and newlines, and
classified by type (ipv4, url, md5, sha1, sha256, domain). Enrichment runs
the selected analysis tools against the backend.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	triageCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	triageCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	triageCmd.AddCommand(newClassifyCmd())
	triageCmd.AddCommand(newEnrichCmd())
	triageCmd.AddCommand(newToolsCmd())

	return triageCmd
}

// readIndicators reads raw indicator text from a file, or stdin when the
// argument is "-" or absent.
func readIndicators(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), nil
}

func classifyRaw(raw string) ([]core.IOCRecord, error) {
	candidates := core.ParseIndicators(raw)
	if len(candidates) == 0 {
		return nil, enrich.ErrInputEmpty
	}
	records := make([]core.IOCRecord, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		records = append(records, core.IOCRecord{Value: candidate, Type: core.Classify(candidate)})
	}
	return records, nil
}

func newClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [file|-]",
		Short: "Classify indicators by type",
		Long:  "Parse and classify indicators from a file or stdin without contacting the backend.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readIndicators(args)
			if err != nil {
				return err
			}

			records, err := classifyRaw(raw)
			if err != nil {
				return fmt.Errorf("no indicators found in input")
			}

			switch {
			case outputJSON:
				return outputAsJSON(records)
			case outputCSV:
				fmt.Print(report.BuildCSV(records))
				return nil
			default:
				renderRecordsTable(records)
				return nil
			}
		},
	}

	cmd.Flags().BoolVar(&outputCSV, "csv", false, "Output in CSV format")
	return cmd
}

func newEnrichCmd() *cobra.Command {
	var tools []string

	cmd := &cobra.Command{
		Use:   "enrich [file|-]",
		Short: "Classify and enrich indicators",
		Long:  "Classify indicators and run the selected analysis tools against the backend.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readIndicators(args)
			if err != nil {
				return err
			}

			records, err := classifyRaw(raw)
			if err != nil {
				return fmt.Errorf("no indicators found in input")
			}

			if err := enrich.ValidateTools(tools); err != nil {
				return err
			}

			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			client := enrich.NewClient(
				cfg.AnalyzeURL(),
				cfg.EnrichURL(),
				cfg.Backend.AuthToken,
				cfg.Backend.Timeout,
				zap.NewNop().Sugar(),
			)

			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			var s *spinner.Spinner
			if !outputJSON && !outputCSV {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				s.Suffix = fmt.Sprintf(" Enriching %d indicators...", len(records))
				s.Start()
			}

			deltas, err := client.Enrich(ctx, records, tools)

			if s != nil {
				s.Stop()
			}

			if err != nil {
				return fmt.Errorf("enrichment failed: %w", err)
			}

			merged := core.MergeEnrichment(records, deltas)

			switch {
			case outputJSON:
				return outputAsJSON(merged)
			case outputCSV:
				fmt.Print(report.BuildCSV(merged))
				return nil
			default:
				successColor.Printf("✓ Enriched %d of %d indicators\n", len(deltas), len(merged))
				renderRecordsTable(merged)
				return nil
			}
		},
	}

	cmd.Flags().StringSliceVarP(&tools, "tools", "t", []string{"virustotal"}, "Analysis tools to run")
	cmd.Flags().BoolVar(&outputCSV, "csv", false, "Output in CSV format")
	return cmd
}

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List available analysis tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputJSON {
				return outputAsJSON(enrich.ToolCatalog)
			}
			headerColor.Println("ANALYSIS TOOLS")
			for _, tool := range enrich.ToolCatalog {
				fmt.Println("  " + string(tool))
			}
			return nil
		},
	}
}
