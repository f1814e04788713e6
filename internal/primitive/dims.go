package primitive

// OutputDim returns floor((in + 2*pad - kernel) / stride) + 1.
// The result is < 1 when the padded input is smaller than the kernel.
func OutputDim(in, kernel, pad, stride int) int {
	span := in + 2*pad - kernel
	if span < 0 {
		// Floor division for negative spans.
		return -((-span + stride - 1) / stride) + 1
	}
	return span/stride + 1
}

// OutputSpatial applies OutputDim to both axes.
func OutputSpatial(in, kernel, pad, stride Spatial) Spatial {
	return Spatial{
		H: OutputDim(in.H, kernel.H, pad.H, stride.H),
		W: OutputDim(in.W, kernel.W, pad.W, stride.W),
	}
}
