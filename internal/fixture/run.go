package fixture

import (
	"fmt"
	"io"
	"math/rand/v2"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/fusion/internal/pipeline"
	"github.com/born-ml/fusion/internal/tensor"
)

// BiasRange bounds the magnitude of generated bias values.
const BiasRange = 1 << 10

// Fill writes deterministic pseudo-random values into b: the full range of
// 8-bit types, [-BiasRange, BiasRange] for int32 and [-1, 1) for float32.
// Panics on a sealed buffer.
func Fill(b *tensor.Buffer, rng *rand.Rand) {
	for i := 0; i < b.NumElements(); i++ {
		var v float64
		switch b.DType() {
		case tensor.Int8, tensor.Uint8:
			lo, hi := b.DType().Bounds()
			v = lo + float64(rng.IntN(int(hi-lo)+1))
		case tensor.Int32:
			v = float64(rng.IntN(2*BiasRange+1) - BiasRange)
		case tensor.Float32:
			v = 2*rng.Float64() - 1
		}
		b.Store(i, v)
	}
}

// Operands allocates and fills src, weights and bias for plan. The same
// seed always yields the same buffers.
func Operands(plan *pipeline.FusedPlan, seed uint64) (pipeline.Buffers, error) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	var bufs pipeline.Buffers
	for _, op := range []struct {
		dst  **tensor.Buffer
		desc tensor.Descriptor
	}{
		{&bufs.Src, plan.Conv.Src},
		{&bufs.Weights, plan.Conv.Weights},
		{&bufs.Bias, plan.Conv.Bias},
	} {
		b, err := tensor.NewBuffer(op.desc)
		if err != nil {
			return pipeline.Buffers{}, err
		}
		Fill(b, rng)
		*op.dst = b
	}
	return bufs, nil
}

// Result is the outcome of running one case.
type Result struct {
	Case   Case
	Plan   *pipeline.FusedPlan
	Output *tensor.Buffer
}

// Run builds the case on ctx, fills its operands from the case seed and
// executes it. A declared dst_dims that disagrees with the computed shape
// fails at build time with tensor.ErrShapeMismatch.
func Run(ctx *pipeline.Context, c Case) (*Result, error) {
	stages, err := c.Stages()
	if err != nil {
		return nil, err
	}
	plan, err := ctx.Build(stages)
	if err != nil {
		return nil, fmt.Errorf("case %q: %w", c.Name, err)
	}
	bufs, err := Operands(plan, c.Seed)
	if err != nil {
		return nil, fmt.Errorf("case %q: %w", c.Name, err)
	}
	defer func() {
		bufs.Src.Release()
		bufs.Weights.Release()
		bufs.Bias.Release()
	}()

	out, err := ctx.Execute(plan, bufs)
	if err != nil {
		return nil, fmt.Errorf("case %q: %w", c.Name, err)
	}
	return &Result{Case: c, Plan: plan, Output: out}, nil
}

// File is the YAML document layout of a case file:
//
//	cases:
//	  - name: conv_relu_pool
//	    src_dims: [1, 16, 4, 4]
//	    conv_kernel: [3, 3]
//	    ...
type File struct {
	Cases []Case `yaml:"cases"`
}

// Load decodes a YAML case file. Unknown fields are rejected.
func Load(r io.Reader) ([]Case, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode cases: %w", err)
	}
	if len(f.Cases) == 0 {
		return nil, fmt.Errorf("decode cases: no cases")
	}
	for i := range f.Cases {
		if f.Cases[i].Name == "" {
			f.Cases[i].Name = fmt.Sprintf("case_%d", i)
		}
	}
	return f.Cases, nil
}
