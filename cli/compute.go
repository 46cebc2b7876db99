package cli

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/spf13/afero"

	"github.com/coder/serpent"
	"golang.org/x/xerrors"

	"github.com/coder/connstats"
	"github.com/coder/connstats/series"
)

func (r *RootCmd) compute() *serpent.Command {
	var (
		input       string
		kind        string
		interval    time.Duration
		marginStr   string
		bucketWidth time.Duration
		bucketCount int64
	)
	cmd := &serpent.Command{
		Use:   "compute",
		Short: "Run the bucketing pipeline over a rows file and print the series as JSON.",
		Long: "The input file holds a JSON array of raw rows, time-ordered, as " +
			"captured from a connector statistics subscription. Bucket ends are " +
			"derived by walking back from the last row's timestamp in bucket-width steps.",
		Handler: func(inv *serpent.Invocation) error {
			data, err := afero.ReadFile(r.fs, input)
			if err != nil {
				return xerrors.Errorf("read %q: %w", input, err)
			}
			var rows []connstats.Row
			if err := json.Unmarshal(data, &rows); err != nil {
				return xerrors.Errorf("parse %q: %w", input, err)
			}
			k := connstats.ConnectorKind(kind)
			if !k.Valid() {
				return xerrors.Errorf("invalid kind %q, want source or sink", kind)
			}
			margin, err := strconv.ParseFloat(marginStr, 64)
			if err != nil {
				return xerrors.Errorf("invalid variance margin %q: %w", marginStr, err)
			}
			if len(rows) == 0 {
				return xerrors.New("no rows in input")
			}

			width := bucketWidth
			if width <= 0 {
				width = interval
			}
			last := rows[len(rows)-1].Timestamp
			ends := make([]time.Time, 0, bucketCount)
			for i := bucketCount - 1; i >= 0; i-- {
				ends = append(ends, last.Add(-time.Duration(i)*width))
			}

			resp := connstats.Compute(connstats.ComputeRequest{
				Kind:           k,
				Rows:           rows,
				IntervalMS:     interval.Milliseconds(),
				VarianceMargin: margin,
				BucketWidthMS:  width.Milliseconds(),
				BucketEnds:     ends,
			})

			enc := json.NewEncoder(inv.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
	cmd.Options = serpent.OptionSet{
		{
			Flag:          "input",
			FlagShorthand: "i",
			Description:   "Path to the rows JSON file.",
			Required:      true,
			Value:         serpent.StringOf(&input),
		},
		{
			Flag:        "kind",
			Description: "Connector kind, source or sink.",
			Default:     string(connstats.ConnectorKindSource),
			Value:       serpent.StringOf(&kind),
		},
		{
			Flag:        "interval",
			Description: "Upstream collection interval.",
			Default:     series.DefaultInterval.String(),
			Value:       serpent.DurationOf(&interval),
		},
		{
			Flag:        "variance-margin",
			Description: "Tolerance fraction applied to the interval for gap detection.",
			Default:     "0.10",
			Value:       serpent.StringOf(&marginStr),
		},
		{
			Flag:        "bucket-width",
			Description: "Bucket width. Defaults to the collection interval.",
			Value:       serpent.DurationOf(&bucketWidth),
		},
		{
			Flag:        "buckets",
			Description: "Number of buckets, ending at the last row's timestamp.",
			Default:     "30",
			Value:       serpent.Int64Of(&bucketCount),
		},
	}
	return cmd
}
