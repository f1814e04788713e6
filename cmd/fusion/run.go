package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/born-ml/fusion/internal/fixture"
	"github.com/born-ml/fusion/internal/pipeline"
	"github.com/born-ml/fusion/internal/tensor"
)

type runFlags struct {
	cases string
	dump  bool
	c     fixture.Case
}

func newRunCmd(g *globalFlags) *cobra.Command {
	f := &runFlags{c: fixture.ConvReluPool()}
	def := f.c

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build and execute fused cases",
		Long: `Build and execute one case given by flags, or every case in a YAML file.

A declared --dst that disagrees with the computed output shape fails the
case with a shape mismatch before any compute runs.`,
		Example: `  fusion run --src 1,16,4,4 --conv-kernel 3,3 --pool-kernel 2,2 --pool-stride 2,2 --dst 1,16,1,1
  fusion run --cases cases.yaml --engine gemm -v`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cases := []fixture.Case{f.c}
			if f.cases != "" {
				var err error
				if cases, err = loadCases(f.cases); err != nil {
					return err
				}
			}
			return runCases(cmd.OutOrStdout(), cmd.ErrOrStderr(), g, cases, f.dump)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.cases, "cases", "", "YAML case file (overrides the tuple flags)")
	fl.BoolVar(&f.dump, "dump", false, "print output values")
	fl.StringVar(&f.c.Name, "name", def.Name, "case name")
	fl.IntSliceVar(&f.c.SrcDims, "src", def.SrcDims, "src dims N,C,H,W")
	fl.IntSliceVar(&f.c.ConvKernel, "conv-kernel", def.ConvKernel, "conv kernel H,W")
	fl.IntSliceVar(&f.c.ConvPad, "conv-pad", def.ConvPad, "conv padding H,W")
	fl.IntSliceVar(&f.c.ConvStride, "conv-stride", def.ConvStride, "conv stride H,W")
	fl.IntSliceVar(&f.c.PoolKernel, "pool-kernel", def.PoolKernel, "pool kernel H,W")
	fl.IntSliceVar(&f.c.PoolPad, "pool-pad", def.PoolPad, "pool padding H,W")
	fl.IntSliceVar(&f.c.PoolStride, "pool-stride", def.PoolStride, "pool stride H,W")
	fl.IntSliceVar(&f.c.DstDims, "dst", def.DstDims, "declared dst dims N,C,H,W")
	fl.StringVar(&f.c.Types.Src, "src-type", def.Types.Src, "src type: u8 or s8")
	fl.StringVar(&f.c.Types.Weights, "weights-type", def.Types.Weights, "weights type: s8 or u8")
	fl.StringVar(&f.c.Types.Dst, "dst-type", def.Types.Dst, "dst type: s8, u8, s32 or f32")
	fl.StringVar(&f.c.Types.SrcLayout, "src-layout", def.Types.SrcLayout, "src layout: nchw, nhwc or nChw16c")
	fl.StringVar(&f.c.Types.WeightsLayout, "weights-layout", def.Types.WeightsLayout, "weights layout: oihw, ohwi or OIhw16i")
	fl.Float32Var(&f.c.Scale, "scale", def.Scale, "per-channel output scale")
	fl.StringVar(&f.c.Rounding, "rounding", "nearest", "rounding mode: nearest or truncate")
	fl.Float32Var(&f.c.NegativeSlope, "negative-slope", 0, "ReLU negative slope")
	fl.StringVar(&f.c.Reduction, "reduction", "max", "pooling reduction: max or avg")
	fl.Uint64Var(&f.c.Seed, "seed", 0, "operand fill seed")

	return cmd
}

func loadCases(path string) ([]fixture.Case, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return fixture.Load(file)
}

func runCases(out, logOut io.Writer, g *globalFlags, cases []fixture.Case, dump bool) error {
	engine, err := g.newEngine()
	if err != nil {
		return err
	}
	logger := g.logger(logOut)
	ctx := pipeline.NewContext(engine, pipeline.WithLogger(logger))
	defer ctx.Close()

	failed := 0
	for _, c := range cases {
		res, err := fixture.Run(ctx, c)
		if err != nil {
			failed++
			logger.Error("case failed", "case", c.Name, "err", err)
			fmt.Fprintf(out, "FAIL %s: %v\n", c.Name, err)
			continue
		}
		fmt.Fprintf(out, "ok   %s: %s\n", c.Name, res.Plan)
		if dump {
			fmt.Fprintln(out, formatValues(res.Output))
		}
		res.Output.Release()
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d cases failed", failed, len(cases))
	}
	return nil
}

// formatValues prints the buffer in logical NCHW order, one line per (n, c).
func formatValues(b *tensor.Buffer) string {
	d := b.Descriptor()
	var lines []string
	for n := 0; n < d.N(); n++ {
		for c := 0; c < d.C(); c++ {
			vals := lo.Times(d.H()*d.W(), func(i int) string {
				return strconv.FormatFloat(b.At(n, c, i/d.W(), i%d.W()), 'g', -1, 64)
			})
			lines = append(lines, fmt.Sprintf("  [%d,%d] %s", n, c, strings.Join(vals, " ")))
		}
	}
	return strings.Join(lines, "\n")
}
