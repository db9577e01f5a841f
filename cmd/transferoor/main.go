// Package main provides the CLI entry point for transferoor, a
// round-trip transfer benchmark for a shared-memory object store.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/weiihann/transferoor/bench"
	"github.com/weiihann/transferoor/datagen"
	"github.com/weiihann/transferoor/dataset"
	"github.com/weiihann/transferoor/report"
	"github.com/weiihann/transferoor/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "transferoor",
		Short: "Shared-memory object store transfer benchmark",
		Long: `Transferoor benchmarks round trips against a shared-memory object
store: it transfers files, streams, and in-memory tables into and out of the
store, times repeated round trips after a warmup phase, and prints per-variant
result tables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(logger))
	root.AddCommand(newGenCmd(logger))

	return root
}

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var (
		configPath string
		endpoint   string
		inDir      string
		outDir     string
		reps       int
		warmups    int
		omitHuge   bool
		compress   bool
		useMem     bool
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run transfer round-trip benchmarks",
		Long: `Connect to the store, build one dataset per supported file in the
input directory, and time raw, streamed, and in-memory table round trips.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := bench.DefaultConfig()

			if configPath != "" {
				var err error

				cfg, err = bench.LoadConfig(configPath)
				if err != nil {
					return err
				}
			}

			// Flags set on the command line win over the config file.
			flags := cmd.Flags()
			if flags.Changed("store") {
				cfg.Store = endpoint
			}
			if flags.Changed("in-dir") {
				cfg.InDir = inDir
			}
			if flags.Changed("out-dir") {
				cfg.OutDir = outDir
			}
			if flags.Changed("reps") {
				cfg.Reps = reps
			}
			if flags.Changed("warmups") {
				cfg.Warmups = warmups
			}
			if flags.Changed("omit-huge") {
				cfg.OmitHuge = omitHuge
			}
			if flags.Changed("compress") {
				cfg.Compress = compress
			}

			return runBenchmark(cmd.Context(), logger, cfg, useMem, outputJSON)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "",
		"Path to YAML config file (flags override it)")
	flags.StringVar(&endpoint, "store", bench.DefaultConfig().Store,
		"Store endpoint directory")
	flags.StringVar(&inDir, "in-dir", "in",
		"Directory of input fixture files")
	flags.StringVar(&outDir, "out-dir", "out",
		"Directory for round-trip output files")
	flags.IntVar(&reps, "reps", 1000,
		"Timed repetitions per measurement")
	flags.IntVar(&warmups, "warmups", 100,
		"Untimed warmup repetitions per measurement")
	flags.BoolVarP(&omitHuge, "omit-huge", "o", false,
		"Skip huge_ fixture files to shorten the run")
	flags.BoolVar(&compress, "compress", false,
		"Include the lz4-compressed round-trip variant")
	flags.BoolVar(&useMem, "mem", false,
		"Use an in-process store instead of a store endpoint")
	flags.BoolVar(&outputJSON, "json", false,
		"Output results as JSON instead of tables")

	return cmd
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	cfg bench.Config,
	useMem, outputJSON bool,
) error {
	logger.InfoContext(ctx, "starting benchmark",
		slog.String("store", cfg.Store),
		slog.String("in_dir", cfg.InDir),
		slog.String("out_dir", cfg.OutDir),
		slog.Int("reps", cfg.Reps),
		slog.Int("warmups", cfg.Warmups),
		slog.Bool("omit_huge", cfg.OmitHuge),
	)

	// Step 1: Connect. An unreachable store is fatal for the run.
	var (
		client store.Client
		err    error
	)

	connectStart := time.Now()

	if useMem {
		client = store.NewMemStore()
	} else {
		client, err = store.Dial(cfg.Store)
		if err != nil {
			return err
		}
	}

	defer client.Disconnect()

	logger.InfoContext(ctx, "connected",
		slog.Duration("connect_time", time.Since(connectStart)),
	)

	b := bench.New(client, logger)

	if err := b.CheckConnection(); err != nil {
		return err
	}

	// Step 2: Build datasets from the input directory.
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("create out dir: %w", err)
	}

	datasets, err := dataset.LoadDir(logger, cfg.InDir, cfg.OutDir)
	if err != nil {
		return err
	}

	if len(datasets) == 0 {
		return fmt.Errorf("no supported input files in %s", cfg.InDir)
	}

	defer func() {
		for _, ds := range datasets {
			ds.Close()
		}
	}()

	// Step 3: Measure every variant for every dataset.
	results := b.Run(datasets, bench.Options{
		Reps:     cfg.Reps,
		Warmups:  cfg.Warmups,
		OmitHuge: cfg.OmitHuge,
		Compress: cfg.Compress,
	})

	// Step 4: Report. Per-dataset failures are part of the report, not
	// a fatal condition.
	if outputJSON {
		if err := report.GenerateJSON(os.Stdout, results); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}
	} else {
		if err := report.Generate(os.Stdout, results); err != nil {
			return fmt.Errorf("generate report: %w", err)
		}
	}

	if ids, err := client.List(); err == nil {
		logger.InfoContext(ctx, "objects in store at end",
			slog.Int("count", len(ids)),
		)
	}

	logger.InfoContext(ctx, "benchmark complete")

	return nil
}

func newGenCmd(logger *slog.Logger) *cobra.Command {
	var (
		rows     int
		hugeRows int
		seed     int64
		outDir   string
	)

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate deterministic benchmark fixture files",
		Long: `Generate the same seeded synthetic transaction table as CSV,
JSON-lines, and columnar stream files, optionally with huge_ variants.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if seed == 0 {
				seed = time.Now().UnixNano()
			}

			gen := datagen.NewGenerator(datagen.Config{
				Rows:     rows,
				HugeRows: hugeRows,
				Seed:     seed,
			})

			summary, err := gen.WriteFiles(outDir)
			if err != nil {
				return fmt.Errorf("generate fixtures: %w", err)
			}

			logger.InfoContext(cmd.Context(), "fixtures generated",
				slog.Int("rows", summary.Rows),
				slog.Int("huge_rows", summary.HugeRows),
				slog.Int("files", len(summary.Files)),
				slog.Int64("total_bytes", summary.TotalBytes),
				slog.Int64("seed", seed),
			)

			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&rows, "rows", 1000,
		"Rows in the regular fixture table")
	flags.IntVar(&hugeRows, "huge-rows", 0,
		"Rows in the huge_ fixture table (0 = skip)")
	flags.Int64Var(&seed, "seed", 0,
		"Random seed (0 = use current time)")
	flags.StringVar(&outDir, "out", "in",
		"Directory to write fixture files into")

	return cmd
}
