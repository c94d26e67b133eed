package sweep

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/peter-kozarec/barsim/pkg/utility/fixed"
)

const notAvailable = "n/a"

// WriteTable prints the outcomes of grid. Two dimensional grids print a matrix
// of sharpe ratios, one dimensional grids print a row of metrics per value.
// Outcomes of other grids are ignored.
func WriteTable(w io.Writer, grid Grid, outcomes []Outcome) error {
	cells := make(map[[2]int]Metrics, len(grid.Jobs))
	for _, o := range outcomes {
		if o.Job.Grid == grid.Name {
			cells[[2]int{o.Job.Row, o.Job.Col}] = o.Metrics
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(w, "%s\n", grid.Name); err != nil {
		return err
	}

	if len(grid.Cols) == 0 {
		fmt.Fprintf(tw, "%s\tsharpe\treturn\tmax_dd\ttrades\t\n", grid.RowLabel)
		for i, row := range grid.Rows {
			m, ok := cells[[2]int{i, 0}]
			if !ok {
				fmt.Fprintf(tw, "%v\t%s\t%s\t%s\t%s\t\n", row, notAvailable, notAvailable, notAvailable, notAvailable)
				continue
			}
			fmt.Fprintf(tw, "%v\t%s\t%s\t%s\t%d\t\n", row, sharpe(m), percent(m.TotalReturn), percent(m.MaxDrawdown), m.Trades)
		}
		return tw.Flush()
	}

	header := []string{grid.RowLabel + " \\ " + grid.ColLabel}
	for _, col := range grid.Cols {
		header = append(header, fmt.Sprint(col))
	}
	fmt.Fprintf(tw, "%s\t\n", strings.Join(header, "\t"))

	for i, row := range grid.Rows {
		line := []string{fmt.Sprint(row)}
		for j := range grid.Cols {
			m, ok := cells[[2]int{i, j}]
			if !ok {
				line = append(line, notAvailable)
				continue
			}
			line = append(line, sharpe(m))
		}
		fmt.Fprintf(tw, "%s\t\n", strings.Join(line, "\t"))
	}
	return tw.Flush()
}

func sharpe(m Metrics) string {
	if !m.HasSharpe {
		return notAvailable
	}
	return m.Sharpe.Rescale(2).String()
}

func percent(p fixed.Point) string {
	return p.MulInt(100).Rescale(2).String() + "%"
}
