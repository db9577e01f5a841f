package bench

import (
	"log/slog"

	"github.com/weiihann/transferoor/dataset"
)

// Options controls a benchmark run.
type Options struct {
	Reps     int
	Warmups  int
	OmitHuge bool
	Compress bool
}

// Run measures every applicable round-trip variant for every dataset.
// A failure inside one measurement is recorded in its result row and
// the run continues with the remaining variants and datasets. Huge
// datasets run a single repetition with no warmup.
func (b *Benchmark) Run(datasets []*dataset.Dataset, opts Options) []Result {
	results := make([]Result, 0, 4*len(datasets))

	for _, ds := range datasets {
		if opts.OmitHuge && ds.Huge {
			b.logger.Info("omitting huge dataset", slog.String("dataset", ds.Name))

			continue
		}

		reps, warmups := opts.Reps, opts.Warmups
		if ds.Huge {
			reps, warmups = 1, 0
		}

		b.logger.Info("benchmarking dataset",
			slog.String("dataset", ds.Name),
			slog.String("format", ds.Format.String()),
			slog.Int64("file_bytes", ds.FileBytes),
			slog.Int("table_bytes", ds.TableBytes),
			slog.Int("reps", reps),
			slog.Int("warmups", warmups),
		)

		if ds.SupportsRaw() {
			results = append(results, b.measureVariant(
				ds, VariantRaw, ds.FileBytes, reps, warmups,
				func() error { return b.RoundTripRaw(ds) },
			))
		}

		results = append(results, b.measureVariant(
			ds, VariantStream, ds.FileBytes, reps, warmups,
			func() error { return b.RoundTripStream(ds) },
		))

		if opts.Compress {
			results = append(results, b.measureVariant(
				ds, VariantCompressed, ds.FileBytes, reps, warmups,
				func() error { return b.RoundTripCompressed(ds) },
			))
		}

		results = append(results, b.measureVariant(
			ds, VariantTable, int64(ds.TableBytes), reps, warmups,
			func() error { return b.RoundTripTable(ds) },
		))
	}

	return results
}

func (b *Benchmark) measureVariant(
	ds *dataset.Dataset,
	variant string,
	payloadBytes int64,
	reps, warmups int,
	op Op,
) Result {
	result := Result{
		Dataset:      ds.Name,
		Format:       ds.Format.String(),
		Variant:      variant,
		PayloadBytes: payloadBytes,
		Reps:         reps,
	}

	timing, err := Measure(op, reps, warmups)
	if err != nil {
		b.logger.Error("measurement failed",
			slog.String("dataset", ds.Name),
			slog.String("variant", variant),
			slog.String("error", err.Error()),
		)

		result.Error = err.Error()

		return result
	}

	result.ElapsedMs = timing.Total.Milliseconds()
	result.TimePerByteNs = timing.TimePerByte(payloadBytes) * 1e9
	result.MeanMs = timing.Mean()
	result.P99Ms = timing.P99()

	return result
}
