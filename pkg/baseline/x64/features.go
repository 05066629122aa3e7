package x64

import "golang.org/x/sys/cpu"

// Features gates instruction selection. Anything absent compiles to a
// fallback sequence when one exists and trips a bailout when it does not.
type Features struct {
	SSE41  bool // roundss/roundsd
	POPCNT bool
}

// DetectFeatures probes the host CPU.
func DetectFeatures() Features {
	return Features{
		SSE41:  cpu.X86.HasSSE41,
		POPCNT: cpu.X86.HasPOPCNT,
	}
}

// Bits packs the flags into a stable integer for cache keying. Adding a
// flag appends a bit; existing bits never move.
func (f Features) Bits() uint64 {
	var b uint64
	if f.SSE41 {
		b |= 1 << 0
	}
	if f.POPCNT {
		b |= 1 << 1
	}
	return b
}
