package cpu

import (
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// Features lists the host ISA extensions relevant to int8 convolution.
type Features struct {
	Arch       string
	AVX2       bool
	AVX512F    bool
	AVX512BW   bool
	AVX512VNNI bool // int8 dot products (vpdpbusd)
	ASIMD      bool
	ASIMDDP    bool // arm64 int8 dot products (sdot/udot)
}

// DetectFeatures queries golang.org/x/sys/cpu for the current host.
func DetectFeatures() Features {
	return Features{
		Arch:       runtime.GOARCH,
		AVX2:       cpu.X86.HasAVX2,
		AVX512F:    cpu.X86.HasAVX512F,
		AVX512BW:   cpu.X86.HasAVX512BW,
		AVX512VNNI: cpu.X86.HasAVX512VNNI,
		ASIMD:      cpu.ARM64.HasASIMD,
		ASIMDDP:    cpu.ARM64.HasASIMDDP,
	}
}

// Int8DotProduct reports whether the host has a native int8 dot-product instruction.
func (f Features) Int8DotProduct() bool {
	return f.AVX512VNNI || f.ASIMDDP
}

// String lists the detected features, e.g. "amd64[avx2 avx512f]".
func (f Features) String() string {
	var names []string
	for _, kv := range []struct {
		name string
		on   bool
	}{
		{"avx2", f.AVX2},
		{"avx512f", f.AVX512F},
		{"avx512bw", f.AVX512BW},
		{"avx512vnni", f.AVX512VNNI},
		{"asimd", f.ASIMD},
		{"asimddp", f.ASIMDDP},
	} {
		if kv.on {
			names = append(names, kv.name)
		}
	}
	return f.Arch + "[" + strings.Join(names, " ") + "]"
}
