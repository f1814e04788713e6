// Package quant converts wide integer accumulators into the narrow storage
// domain of a destination tensor using per-tensor or per-channel scales.
package quant

import (
	"errors"
	"fmt"
	"math"

	"github.com/samber/lo"

	"github.com/born-ml/fusion/internal/tensor"
)

// ErrInvalidScale is the sentinel wrapped by every InvalidScaleError.
var ErrInvalidScale = errors.New("invalid scale")

// InvalidScaleError reports a malformed quantization policy.
type InvalidScaleError struct {
	Index   int // Offending scale index, -1 for length errors
	Details string
}

// Error implements the error interface.
func (e *InvalidScaleError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid scale at index %d: %s", e.Index, e.Details)
	}
	return "invalid scale: " + e.Details
}

// Unwrap allows errors.Is(err, ErrInvalidScale).
func (e *InvalidScaleError) Unwrap() error { return ErrInvalidScale }

// RoundingMode selects how scaled accumulators become integers.
type RoundingMode int

// Supported rounding modes.
const (
	RoundNearest  RoundingMode = iota // half to even
	RoundTruncate                     // toward zero
)

// String returns a human-readable name for the rounding mode.
func (m RoundingMode) String() string {
	switch m {
	case RoundNearest:
		return "nearest"
	case RoundTruncate:
		return "truncate"
	default:
		return "unknown"
	}
}

// Round applies the rounding mode to v.
func (m RoundingMode) Round(v float64) float64 {
	if m == RoundTruncate {
		return math.Trunc(v)
	}
	return math.RoundToEven(v)
}

// Policy holds output scales and a rounding mode. It is read-only after
// construction and safe for concurrent use.
type Policy struct {
	scales []float32
	mode   RoundingMode
}

// NewPolicy validates and creates a policy. A single scale applies to every
// channel; otherwise there must be one scale per output channel, which is
// checked by Validate once the channel count is known.
func NewPolicy(scales []float32, mode RoundingMode) (*Policy, error) {
	if len(scales) == 0 {
		return nil, &InvalidScaleError{Index: -1, Details: "no scales"}
	}
	if mode != RoundNearest && mode != RoundTruncate {
		return nil, &InvalidScaleError{Index: -1, Details: fmt.Sprintf("unknown rounding mode %d", int(mode))}
	}
	_, bad, found := lo.FindIndexOf(scales, func(s float32) bool {
		f := float64(s)
		return !(f > 0) || math.IsInf(f, 0)
	})
	if found {
		return nil, &InvalidScaleError{Index: bad, Details: fmt.Sprintf("%v must be finite and > 0", scales[bad])}
	}
	return &Policy{scales: append([]float32(nil), scales...), mode: mode}, nil
}

// PerTensor creates a policy with a single scale.
func PerTensor(scale float32, mode RoundingMode) (*Policy, error) {
	return NewPolicy([]float32{scale}, mode)
}

// PerChannel creates a policy with the same scale repeated for every channel.
func PerChannel(scale float32, channels int, mode RoundingMode) (*Policy, error) {
	if channels <= 0 {
		return nil, &InvalidScaleError{Index: -1, Details: fmt.Sprintf("channel count %d must be > 0", channels)}
	}
	return NewPolicy(lo.Times(channels, func(int) float32 { return scale }), mode)
}

// Identity returns the per-tensor scale 1.0 policy with nearest rounding.
func Identity() *Policy {
	return &Policy{scales: []float32{1}, mode: RoundNearest}
}

// Scales returns a copy of the scale vector.
func (p *Policy) Scales() []float32 { return append([]float32(nil), p.scales...) }

// Mode returns the rounding mode.
func (p *Policy) Mode() RoundingMode { return p.mode }

// PerChannel reports whether the policy holds more than one scale.
func (p *Policy) PerChannel() bool { return len(p.scales) > 1 }

// Validate checks the scale count against the destination channel count.
func (p *Policy) Validate(channels int) error {
	if len(p.scales) != 1 && len(p.scales) != channels {
		return &InvalidScaleError{
			Index:   -1,
			Details: fmt.Sprintf("%d scales for %d output channels (want 1 or %d)", len(p.scales), channels, channels),
		}
	}
	return nil
}

// Scale returns the unrounded product of acc and the channel's scale.
func (p *Policy) Scale(acc int32, channel int) float64 {
	s := p.scales[0]
	if len(p.scales) > 1 {
		s = p.scales[channel]
	}
	return float64(acc) * float64(s)
}

// Narrow rounds v per the policy and saturates it to dst's range.
// Float32 destinations are not rounded.
//
// Saturation is lossy: values beyond the range of dst silently become
// its minimum or maximum.
func (p *Policy) Narrow(v float64, dst tensor.DataType) float64 {
	if dst.IsInteger() {
		v = p.mode.Round(v)
	}
	return dst.Saturate(v)
}

// Apply scales acc for the given channel, rounds and saturates to dst.
// For a fixed channel it is monotonic in acc.
func (p *Policy) Apply(acc int32, channel int, dst tensor.DataType) float64 {
	return p.Narrow(p.Scale(acc, channel), dst)
}

// String formats the policy for logs.
func (p *Policy) String() string {
	if p.PerChannel() {
		return fmt.Sprintf("per-channel[%d] %s", len(p.scales), p.mode)
	}
	return fmt.Sprintf("per-tensor(%g) %s", p.scales[0], p.mode)
}
