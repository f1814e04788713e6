package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/born-ml/fusion/internal/backend/cpu"
	"github.com/born-ml/fusion/internal/parallel"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show host features and engine defaults",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			backend := cpu.New()
			f := backend.Features()

			fmt.Fprintf(out, "GOOS/GOARCH:      %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(out, "NumCPU:           %d\n", runtime.NumCPU())
			fmt.Fprintf(out, "Features:         %s\n", f)
			fmt.Fprintf(out, "Int8 dot product: %v\n", f.Int8DotProduct())
			fmt.Fprintf(out, "Preferred layout: %s\n", backend.PreferredLayout())
			fmt.Fprintf(out, "Workers:          %d\n", parallel.DefaultConfig().NumWorkers)
			fmt.Fprintln(out, "Engines:          cpu, gemm")
		},
	}
}
