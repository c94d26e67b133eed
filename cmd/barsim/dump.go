package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/peter-kozarec/barsim/pkg/datasource/duckdb"
	"github.com/peter-kozarec/barsim/pkg/datasource/historical"
)

func dumpCmd() *cobra.Command {
	var (
		output     string
		timeColumn string
	)

	cmd := &cobra.Command{
		Use:   "dump <csv>...",
		Short: "Convert csv bar files into the binary bar format",
		Long: `dump reads OHLCV csv files in the given order and appends their bars to a
single binary file usable as a "binary" market source. Files must not overlap
in time.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, _, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			n, err := dumpBars(cmd.Context(), logger, args, timeColumn, output)
			if err != nil {
				return err
			}
			logger.Info("done", zap.String("output", output), zap.Int("bars", n))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Binary file to create")
	cmd.Flags().StringVar(&timeColumn, "time-column", duckdb.DefaultTimeColumn, "Name of the timestamp column")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// dumpBars writes the bars of every csv file to output. A failed dump leaves
// no output file behind.
func dumpBars(ctx context.Context, logger *zap.Logger, csvPaths []string, timeColumn, output string) (n int, err error) {
	reader := duckdb.NewReader("")
	if err := reader.Connect(); err != nil {
		return 0, err
	}
	defer func() { _ = reader.Close() }()

	binFile, err := os.Create(output)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := binFile.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(output)
		}
	}()

	var last time.Time
	for _, path := range csvPaths {
		bars, err := reader.LoadBars(ctx, "", duckdb.CSVQuery(path, timeColumn))
		if err != nil {
			return 0, fmt.Errorf("%s: %w", path, err)
		}
		if len(bars) == 0 {
			logger.Warn("no bars in file", zap.String("file", path))
			continue
		}
		if !bars[0].TimeStamp.After(last) && n > 0 {
			return 0, fmt.Errorf("%s: starts at %s, not after the previous file", path, bars[0].TimeStamp.Format(time.RFC3339))
		}
		if err := historical.WriteBars(binFile, bars); err != nil {
			return 0, fmt.Errorf("%s: %w", path, err)
		}

		last = bars[len(bars)-1].TimeStamp
		n += len(bars)
		logger.Info("dump finished", zap.String("file", path), zap.Int("bars", len(bars)))
	}
	return n, nil
}
