package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/easydata/internal/core"
	"github.com/JonMunkholm/easydata/internal/persist"
)

func newInferCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "infer FILE",
		Short: "Print the column types inferred from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := loadDataset(args[0])
			if err != nil {
				return err
			}
			state := ds.State()

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(state)
			}
			return printColumns(out, state)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON")
	return cmd
}

func newApplyCmd() *cobra.Command {
	var (
		opsPath     string
		outPath     string
		format      string
		compression string
	)

	cmd := &cobra.Command{
		Use:   "apply FILE",
		Short: "Apply derived-column operations and write the result",
		Long: `Apply reads FILE, runs the operations in --ops in order and writes the
result as CSV or Parquet. --ops holds one operation, a JSON array of
operations, or an object with an "operations" array. Without --out the
result is written to standard output as CSV.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := readOperations(opsPath)
			if err != nil {
				return err
			}

			ds, err := loadDataset(args[0])
			if err != nil {
				return err
			}
			batch, err := ds.ApplyAll(ops)
			if err != nil {
				return err
			}
			for _, res := range batch.Results {
				slog.Info("operation applied",
					"column", res.Column.Name,
					"data_type", res.Column.DataType,
					"failed_cells", res.Failed,
					"overwrote", res.Overwrote,
				)
			}

			f, err := outputFormat(format, outPath)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), outPath, ds.Export(), f, compression)
		},
	}
	cmd.Flags().StringVar(&opsPath, "ops", "", "JSON file with the operations to apply")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default: standard output)")
	cmd.Flags().StringVar(&format, "format", "", "csv or parquet (default: from --out extension)")
	cmd.Flags().StringVar(&compression, "compression", "snappy", "parquet compression: none, snappy, gzip, zstd")
	_ = cmd.MarkFlagRequired("ops")
	return cmd
}

// loadDataset reads a delimited file into a new dataset.
func loadDataset(path string) (*core.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw, err := core.ReadTable(f, core.IngestOptions{})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	ds := core.NewDataset()
	ds.Load(filepath.Base(path), raw)
	slog.Debug("dataset loaded", "source", path, "rows", ds.Len())
	return ds, nil
}

// readOperations accepts a single descriptor, an array, or
// {"operations": [...]}.
func readOperations(path string) ([]core.Operation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '[' {
		var ops []core.Operation
		if err := json.Unmarshal(data, &ops); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return ops, nil
	}

	var wrapped struct {
		core.Operation
		Operations []core.Operation `json:"operations"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(wrapped.Operations) > 0 {
		return wrapped.Operations, nil
	}
	return []core.Operation{wrapped.Operation}, nil
}

func outputFormat(flag, outPath string) (persist.Format, error) {
	if flag != "" {
		return persist.ParseFormat(flag)
	}
	if strings.EqualFold(filepath.Ext(outPath), ".parquet") {
		return persist.FormatParquet, nil
	}
	return persist.FormatCSV, nil
}

func writeOutput(stdout io.Writer, outPath string, exp core.Export, f persist.Format, compression string) error {
	opts := persist.ParquetOptions{Compression: compression}
	if outPath == "" {
		return persist.WriteFile(stdout, exp, f, opts)
	}

	file, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := persist.WriteFile(file, exp, f, opts); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	slog.Info("result written", "path", outPath, "rows", len(exp.Rows), "format", f)
	return nil
}

func printColumns(w io.Writer, state core.DatasetState) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tFORMAT")
	for _, c := range state.Columns {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, c.DataType, c.Format)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d rows\n", state.RowCount)
	return err
}
