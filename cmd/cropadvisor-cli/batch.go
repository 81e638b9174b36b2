package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"yashubustudio/cropadvisor/advisor"
)

type batchOptions struct {
	inputPath  string
	outputPath string
	outputDir  string
	explain    bool
	stdout     bool
}

func newBatchCommand(g *globalOptions) *cobra.Command {
	opts := &batchOptions{}
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Rank every row of a CSV or TSV file",
		Long: `Rank every row of a CSV or TSV file of readings and write the top three
crops per row to a result CSV.

Columns are matched by header (nitrogen, N, ph, rainfall, ...). Files without a
recognised header are read positionally as N, P, K, temperature, humidity, pH,
rainfall.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd, g, opts)
		},
	}
	cmd.Flags().StringVar(&opts.inputPath, "input", "", "CSV/TSV file with one set of readings per row")
	cmd.Flags().StringVar(&opts.outputPath, "output", "", "CSV file to write results (default uses --output-dir/result_*.csv)")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "csv", "Directory where result CSVs are written when --output is omitted")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Add the LLM explanations to every row")
	cmd.Flags().BoolVar(&opts.stdout, "stdout", false, "Write the result CSV to stdout instead of a file")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runBatch(cmd *cobra.Command, g *globalOptions, opts *batchOptions) error {
	records, err := advisor.ParseMeasurementFile(strings.TrimSpace(opts.inputPath))
	if err != nil {
		return fmt.Errorf("read input records: %w", err)
	}
	if len(records) == 0 {
		return errors.New("input file does not contain any rows")
	}

	svc, _, logger, err := g.newService(cmd, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	results := svc.RecommendBatch(cmd.Context(), records, opts.explain)
	failed := advisor.Failed(results)
	for _, r := range results {
		if r.Err != nil {
			logger.Warn().Err(r.Err).Int("row", r.Record.Row).Str("id", r.Record.ID).Msg("row failed")
		}
	}

	if opts.stdout {
		return advisor.WriteResultCSV(cmd.OutOrStdout(), results)
	}
	outputPath, err := resolveOutputPath(strings.TrimSpace(opts.outputPath), strings.TrimSpace(opts.outputDir))
	if err != nil {
		return err
	}
	if err := advisor.WriteResultFile(outputPath, results); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Ranked %d rows (%d failed), saved to %s\n", len(results), failed, outputPath)
	return nil
}

func resolveOutputPath(path, dir string) (string, error) {
	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("resolve output path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
		return absPath, nil
	}
	if dir == "" {
		dir = "csv"
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	filename := fmt.Sprintf("result_%s.csv", time.Now().Format("20060102150405"))
	return filepath.Join(absDir, filename), nil
}
