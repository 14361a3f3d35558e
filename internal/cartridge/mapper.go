// Package cartridge implements iNES ROM loading and the cartridge-resident
// memory mappers that translate CPU/PPU addresses into PRG/CHR/RAM banks.
package cartridge

import (
	"bytes"
	"encoding/gob"
)

// Mirroring describes how the four logical 1KB nametables are mapped onto
// the console's 2KB of CIRAM, or onto cartridge-supplied nametable RAM.
type Mirroring uint8

const (
	MirrorHorizontal Mirroring = iota
	MirrorVertical
	MirrorSingleLower
	MirrorSingleUpper
	MirrorFourScreen
)

func (m Mirroring) String() string {
	switch m {
	case MirrorHorizontal:
		return "horizontal"
	case MirrorVertical:
		return "vertical"
	case MirrorSingleLower:
		return "single-lower"
	case MirrorSingleUpper:
		return "single-upper"
	case MirrorFourScreen:
		return "four-screen"
	default:
		return "unknown"
	}
}

// BusKind identifies which bus an address observed by a snoop hook came
// from. MMC3 clocks its IRQ counter from PPU address-bus A12 edges; MMC5
// watches both the CPU bus (for its own register writes) and the PPU bus
// (to detect the sprite/background fetch windows).
type BusKind uint8

const (
	BusCPU BusKind = iota
	BusPPU
)

// Mapper is the per-cartridge bank-switching contract every supported iNES
// mapper number implements. Methods operate on raw CPU/PPU addresses and
// return the byte the bus should see; mappers own their PRG-ROM, optional
// PRG-RAM, CHR-ROM/RAM and any internal registers.
type Mapper interface {
	// ReadPRG services a CPU read in $4020-$FFFF.
	ReadPRG(addr uint16) uint8
	// PeekPRG is the side-effect-free variant used by debug tooling and
	// save-state snapshotting; it must never mutate mapper state.
	PeekPRG(addr uint16) uint8
	// WritePRG services a CPU write in $4020-$FFFF (register writes,
	// PRG-RAM, or bank-select side effects).
	WritePRG(addr uint16, value uint8)

	// ReadCHR services a PPU read in $0000-$1FFF.
	ReadCHR(addr uint16) uint8
	// PeekCHR is the side-effect-free variant of ReadCHR.
	PeekCHR(addr uint16) uint8
	// WriteCHR services a PPU write in $0000-$1FFF (CHR-RAM only; CHR-ROM
	// writes are ignored by the mapper).
	WriteCHR(addr uint16, value uint8)

	// Mirroring reports the current nametable mirroring; mappers with
	// runtime-selectable mirroring (MMC1, MMC3, AxROM, ...) may change
	// the returned value between calls.
	Mirroring() Mirroring

	// OnCPUAccess/OnPPUAccess are passive snoop notifications fired after
	// every bus transaction, address and kind only. MMC3 uses PPU address
	// bit 12 (A12) rising edges to clock its scanline counter; MMC5
	// watches the PPU's 8x16 sprite pattern fetch window.
	OnCPUAccess(addr uint16, write bool)
	OnPPUAccess(addr uint16, write bool)

	// Clock advances any mapper-internal timer by one CPU cycle. Most
	// mappers are purely reactive and no-op here; MMC5's extra audio
	// channels and ExRAM-backed timers use it.
	Clock()

	// IRQPending reports whether the mapper is currently asserting its
	// cartridge IRQ line.
	IRQPending() bool
	// ClearIRQ acknowledges/clears the mapper's IRQ line. Real hardware
	// clears MMC3's counter IRQ on any read/write of $E000; callers
	// invoke this from that register's handler rather than here
	// implicitly, so ClearIRQ is exposed for that purpose too.
	ClearIRQ()

	// PRGRAM exposes the battery-backable PRG-RAM for host-side
	// persistence; returns nil when the mapper has none.
	PRGRAM() []uint8
}

// AudioMixer is implemented by mappers that generate their own audio
// (MMC5's extra pulse/PCM channels). The ControlDeck asks the cartridge for
// a sample contribution on every APU mix tick.
type AudioMixer interface {
	MixSample() float32
}

// NametableMapper is implemented by mappers that interpose on nametable
// fetches instead of letting the PPU bus resolve them from Mirroring()
// alone (MMC5 routes individual 1KB quadrants to CIRAM, its own ExRAM, or a
// constant fill tile/attribute pair).
type NametableMapper interface {
	Mapper
	ReadNametable(addr uint16, ciram []uint8) uint8
	WriteNametable(addr uint16, ciram []uint8, value uint8)
}

// SpriteWindowMapper is implemented by mappers whose CHR bank selection
// depends on whether the PPU is currently inside the 8x16 sprite pattern
// fetch window (cycles 64..81 of each scanline) — MMC5 swaps its entire
// CHR bankset there.
type SpriteWindowMapper interface {
	Mapper
	SetSpriteFetchWindow(active bool)
}

// StateMapper is implemented by mappers carrying bank-select, IRQ, ExRAM or
// other registers that must round-trip through a save state; every mapper
// but NROM has at least one such register. Snapshot returns nil when the
// mapper has nothing beyond what PRGRAM already exposes.
type StateMapper interface {
	Mapper
	Snapshot() []byte
	Restore(data []byte)
}

// encodeState gob-encodes v, returning nil on failure so callers can treat
// a failed encode the same as "nothing to save".
func encodeState(v interface{}) []byte {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil
	}
	return buf.Bytes()
}

// decodeState gob-decodes data into v, leaving v untouched on an empty or
// malformed payload.
func decodeState(data []byte, v interface{}) {
	if len(data) == 0 {
		return
	}
	_ = gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
