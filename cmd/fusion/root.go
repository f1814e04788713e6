package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/born-ml/fusion/internal/backend/cpu"
	"github.com/born-ml/fusion/internal/backend/gemm"
	"github.com/born-ml/fusion/internal/parallel"
	"github.com/born-ml/fusion/internal/primitive"
)

type globalFlags struct {
	verbose bool
	engine  string
	workers int
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "fusion",
		Short:         "Quantized conv + ReLU + max-pool fused operator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log plan and execute events")
	root.PersistentFlags().StringVar(&g.engine, "engine", "cpu", "compute engine: cpu or gemm")
	root.PersistentFlags().IntVar(&g.workers, "workers", 0, "worker goroutines (0 = one per CPU)")

	root.AddCommand(newVersionCmd(), newInfoCmd(), newRunCmd(g))
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fusion %s\n", version)
		},
	}
}

func (g *globalFlags) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if g.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (g *globalFlags) parallel() parallel.Config {
	cfg := parallel.DefaultConfig()
	if g.workers > 0 {
		cfg.NumWorkers = g.workers
		cfg.Enabled = g.workers > 1
	}
	return cfg
}

func (g *globalFlags) newEngine() (primitive.Engine, error) {
	switch g.engine {
	case "cpu":
		return cpu.NewWithConfig(g.parallel()), nil
	case "gemm":
		return gemm.NewWithConfig(g.parallel(), gemm.DefaultTileRows), nil
	default:
		return nil, fmt.Errorf("unknown engine %q (want cpu or gemm)", g.engine)
	}
}
