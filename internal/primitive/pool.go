package primitive

import "github.com/born-ml/fusion/internal/tensor"

// PoolPlan is a validated pooling primitive.
type PoolPlan struct {
	Src    tensor.Descriptor
	Dst    tensor.Descriptor
	Config PoolConfig
}

// PlanPool validates a pooling stage over src and computes its destination
// descriptor. The destination keeps src's layout and type.
//
// Padding must be smaller than the kernel on each axis: that is exactly the
// condition under which every window covers at least one real element, so
// padded positions can be excluded from the reduction without ever leaving
// a window empty.
func PlanPool(src tensor.Descriptor, cfg PoolConfig) (tensor.Descriptor, *PoolPlan, error) {
	const op = "pool"

	if src.IsZero() {
		return tensor.Descriptor{}, nil, tensor.Mismatch(op, "missing src descriptor")
	}
	if err := validateWindow(op, cfg.Kernel, cfg.Stride, cfg.Padding); err != nil {
		return tensor.Descriptor{}, nil, err
	}
	if cfg.Reduction != ReduceMax && cfg.Reduction != ReduceAverage {
		return tensor.Descriptor{}, nil, tensor.Mismatch(op, "unknown reduction %d", int(cfg.Reduction))
	}
	if cfg.Padding.H >= cfg.Kernel.H || cfg.Padding.W >= cfg.Kernel.W {
		return tensor.Descriptor{}, nil, tensor.Mismatch(op, "padding %s must be smaller than kernel %s", cfg.Padding, cfg.Kernel)
	}

	out := OutputSpatial(Spatial{H: src.H(), W: src.W()}, cfg.Kernel, cfg.Padding, cfg.Stride)
	if out.H < 1 || out.W < 1 {
		return tensor.Descriptor{}, nil, tensor.Mismatch(op, "output %s from input %dx%d, kernel %s, padding %s, stride %s",
			out, src.H(), src.W(), cfg.Kernel, cfg.Padding, cfg.Stride)
	}

	dst, err := src.WithDims(tensor.Shape{src.N(), src.C(), out.H, out.W})
	if err != nil {
		return tensor.Descriptor{}, nil, tensor.Mismatch(op, "destination: %v", err)
	}
	return dst, &PoolPlan{Src: src, Dst: dst, Config: cfg}, nil
}

// Window returns the in-bounds input range [h0, h1) x [w0, w1) covered by
// output position (oh, ow).
func (p *PoolPlan) Window(oh, ow int) (h0, h1, w0, w1 int) {
	cfg := p.Config
	hs := oh*cfg.Stride.H - cfg.Padding.H
	ws := ow*cfg.Stride.W - cfg.Padding.W
	h0, h1 = max(hs, 0), min(hs+cfg.Kernel.H, p.Src.H())
	w0, w1 = max(ws, 0), min(ws+cfg.Kernel.W, p.Src.W())
	return h0, h1, w0, w1
}
