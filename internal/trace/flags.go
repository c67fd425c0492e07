// flags.go — Capture flags as a closed set of named capabilities.
// The wire surface speaks a bitmask; internally the filter logic works on
// named booleans so it stays type-checked and exhaustive.
package trace

// Bitmask values recognized by the control plane.
const (
	// FlagAlwaysCapture records entries even when visible state is not
	// dirty (every buffer latch, not just dirty frames).
	FlagAlwaysCapture uint32 = 1 << 0
	// FlagIncludeHwcText attaches the hardware-composer text dump to each
	// captured entry.
	FlagIncludeHwcText uint32 = 1 << 1
	// FlagIncludeCompositionState captures full composition state; when
	// unset, entries are marked as excluding it.
	FlagIncludeCompositionState uint32 = 1 << 2
)

// Flags selects what Notify captures and how much of it.
type Flags struct {
	AlwaysCapture           bool
	IncludeHwcText          bool
	IncludeCompositionState bool
}

// FlagsFromMask decodes the control-plane bitmask. Unrecognized bits are
// ignored.
func FlagsFromMask(mask uint32) Flags {
	return Flags{
		AlwaysCapture:           mask&FlagAlwaysCapture != 0,
		IncludeHwcText:          mask&FlagIncludeHwcText != 0,
		IncludeCompositionState: mask&FlagIncludeCompositionState != 0,
	}
}

// Mask encodes the flags back into the control-plane bitmask.
func (f Flags) Mask() uint32 {
	var mask uint32
	if f.AlwaysCapture {
		mask |= FlagAlwaysCapture
	}
	if f.IncludeHwcText {
		mask |= FlagIncludeHwcText
	}
	if f.IncludeCompositionState {
		mask |= FlagIncludeCompositionState
	}
	return mask
}
