package bus

// Region selects the video timing standard the bus clocks the PPU at. NTSC
// is an exact 3 PPU cycles per CPU cycle; PAL and Dendy run the PPU at a
// fractional 3.2 cycles per CPU cycle, tracked with an accumulator rather
// than a running float to keep the ratio exact over arbitrarily long runs.
type Region int

const (
	RegionNTSC Region = iota
	RegionPAL
	RegionDendy
)

// ppuCyclesPerCpuCycleX10 is the PPU:CPU cycle ratio multiplied by 10 so it
// can be tracked with integer arithmetic (avoids float drift across a long
// run, per the spec's "fractional accumulator" requirement).
func (r Region) ppuCyclesPerCpuCycleX10() uint64 {
	switch r {
	case RegionPAL, RegionDendy:
		return 32
	default:
		return 30
	}
}

// ParseRegion maps a config string ("NTSC"/"PAL"/"Dendy") to a Region,
// defaulting to NTSC for anything unrecognized.
func ParseRegion(s string) Region {
	switch s {
	case "PAL":
		return RegionPAL
	case "Dendy":
		return RegionDendy
	default:
		return RegionNTSC
	}
}

func (r Region) String() string {
	switch r {
	case RegionPAL:
		return "PAL"
	case RegionDendy:
		return "Dendy"
	default:
		return "NTSC"
	}
}

// ResetKind distinguishes a soft reset (CPU reset-vector pulse only, as the
// NES reset button does) from a hard reset / power cycle (CPU, PPU, APU,
// input and bus timing state are re-initialized; work RAM is not cleared).
type ResetKind int

const (
	// SoftReset pulses the CPU's RESET line: PC loads from $FFFC, SP drops
	// by 3, I is set, and PPU/APU/mapper registers keep their prior values
	// the way they do on real hardware when only the reset button is hit.
	SoftReset ResetKind = iota
	// HardReset re-initializes the whole bus as if the console were just
	// switched on: all of Reset()'s effects, including PPU/APU/watchpoint
	// state clearing.
	HardReset
)

// ResetWithKind resets the system, distinguishing a reset-button pulse from
// a full power cycle. Reset() (no kind) behaves as HardReset for backward
// compatibility with existing callers.
func (b *Bus) ResetWithKind(kind ResetKind) {
	if kind == SoftReset {
		// Real hardware leaves PPU/APU/mapper register contents alone on a
		// soft reset; only the CPU's program counter and status are reloaded.
		c := b.CPU
		a, x, y, sp, status := c.A, c.X, c.Y, c.SP, c.GetStatusByte()
		c.Reset()
		c.A, c.X, c.Y = a, x, y
		c.SetStatusByte(status)
		c.I = true
		c.SP = sp - 3
		b.nmiPending = false
		return
	}
	b.Reset()
}

// SetRegion selects the video timing standard and resets the fractional PPU
// cycle accumulator so the new ratio starts clean.
func (b *Bus) SetRegion(r Region) {
	b.region = r
	b.ppuCycleRemainderX10 = 0
}

// Region reports the bus's current video timing standard.
func (b *Bus) Region() Region {
	return b.region
}
