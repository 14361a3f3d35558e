package cartridge

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// Header sizing and flag layout constants from the iNES file format.
const (
	headerSize   = 16
	prgUnitSize  = 16 * 1024
	chrUnitSize  = 8 * 1024
	trainerSize  = 512
)

var iNESMagic = [4]byte{'N', 'E', 'S', 0x1A}

// Sentinel errors surfaced to the host when a ROM cannot be loaded. A
// load_rom failure never mutates any previously-loaded cartridge state;
// callers should check against these with errors.Is.
var (
	ErrInvalidROM = errors.New("cartridge: invalid iNES header")
	ErrTruncated  = errors.New("cartridge: truncated rom data")
)

// ErrUnsupportedMapper reports an iNES mapper number this build cannot
// play; the wrapped number is recoverable with errors.As.
type ErrUnsupportedMapper struct {
	Number uint8
}

func (e *ErrUnsupportedMapper) Error() string {
	return fmt.Sprintf("cartridge: unsupported mapper %d", e.Number)
}

type iNESHeader struct {
	Magic      [4]byte
	PRGROMSize uint8
	CHRROMSize uint8
	Flags6     uint8
	Flags7     uint8
	PRGRAMSize uint8
	Flags9     uint8
	Flags10    uint8
	Padding    [5]byte
}

// Cartridge owns the decoded PRG/CHR ROM and the mapper instance selected by
// the header's mapper number. It is the sole implementation of the bus-side
// contract both CpuBus and PpuBus hold a reference to.
type Cartridge struct {
	Mapper     Mapper
	MapperNum  uint8
	HasBattery bool
	PRGSize    int
	CHRSize    int
	chrIsRAM   bool
}

// Load parses an iNES image (header + PRG-ROM + optional CHR-ROM) and
// constructs the matching mapper. A trainer, if flagged, is skipped rather
// than rejected as UnsupportedFeature since it carries no gameplay-relevant
// state for any ROM this emulator targets.
func Load(data []byte) (*Cartridge, error) {
	if len(data) < headerSize {
		return nil, ErrInvalidROM
	}
	var header iNESHeader
	if err := binary.Read(bytes.NewReader(data[:headerSize]), binary.LittleEndian, &header); err != nil {
		return nil, ErrInvalidROM
	}
	if header.Magic != iNESMagic {
		return nil, ErrInvalidROM
	}

	mapperNum := (header.Flags7 & 0xF0) | (header.Flags6 >> 4)

	offset := headerSize
	if header.Flags6&0x04 != 0 {
		offset += trainerSize
	}

	prgSize := int(header.PRGROMSize) * prgUnitSize
	if prgSize == 0 {
		return nil, ErrInvalidROM
	}
	if offset+prgSize > len(data) {
		return nil, ErrTruncated
	}
	prg := data[offset : offset+prgSize]
	offset += prgSize

	chrSize := int(header.CHRROMSize) * chrUnitSize
	var chr []byte
	if chrSize > 0 {
		if offset+chrSize > len(data) {
			return nil, ErrTruncated
		}
		chr = data[offset : offset+chrSize]
	}

	mirror := MirrorHorizontal
	if header.Flags6&0x01 != 0 {
		mirror = MirrorVertical
	}
	if header.Flags6&0x08 != 0 {
		mirror = MirrorFourScreen
	}

	mapper, err := newMapper(mapperNum, prg, chr, mirror)
	if err != nil {
		return nil, err
	}

	return &Cartridge{
		Mapper:     mapper,
		MapperNum:  mapperNum,
		HasBattery: header.Flags6&0x02 != 0,
		PRGSize:    prgSize,
		CHRSize:    chrSize,
		chrIsRAM:   chrSize == 0,
	}, nil
}

// LoadFromBytes parses an in-memory iNES image; an alias of Load kept for
// callers that prefer the explicit name.
func LoadFromBytes(data []byte) (*Cartridge, error) {
	return Load(data)
}

// LoadFromFile reads an iNES ROM image from disk and parses it with Load.
func LoadFromFile(path string) (*Cartridge, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cartridge: %w", err)
	}
	return Load(data)
}

func newMapper(number uint8, prg, chr []byte, mirror Mirroring) (Mapper, error) {
	switch number {
	case 0:
		return newNROM(prg, chr, mirror), nil
	case 1:
		return newMMC1(prg, chr, mirror), nil
	case 2:
		return newUxROM(prg, chr, mirror), nil
	case 3:
		return newCNROM(prg, chr, mirror), nil
	case 4:
		return newMMC3(prg, chr, mirror), nil
	case 5:
		return newMMC5(prg, chr, mirror), nil
	case 7:
		return newAxROM(prg, chr, mirror), nil
	case 9:
		return newMMC2(prg, chr, mirror), nil
	default:
		return nil, &ErrUnsupportedMapper{Number: number}
	}
}

// ReadPRG, WritePRG, ReadCHR and WriteCHR let Cartridge itself satisfy the
// narrow CartridgeInterface the CPU/PPU memory layers depend on, without
// every caller needing to reach through to .Mapper.
func (c *Cartridge) ReadPRG(addr uint16) uint8          { return c.Mapper.ReadPRG(addr) }
func (c *Cartridge) PeekPRG(addr uint16) uint8          { return c.Mapper.PeekPRG(addr) }
func (c *Cartridge) WritePRG(addr uint16, value uint8)  { c.Mapper.WritePRG(addr, value) }
func (c *Cartridge) ReadCHR(addr uint16) uint8          { return c.Mapper.ReadCHR(addr) }
func (c *Cartridge) PeekCHR(addr uint16) uint8          { return c.Mapper.PeekCHR(addr) }
func (c *Cartridge) WriteCHR(addr uint16, value uint8)  { c.Mapper.WriteCHR(addr, value) }
func (c *Cartridge) Mirroring() Mirroring               { return c.Mapper.Mirroring() }
func (c *Cartridge) OnCPUAccess(addr uint16, w bool)    { c.Mapper.OnCPUAccess(addr, w) }
func (c *Cartridge) OnPPUAccess(addr uint16, w bool)    { c.Mapper.OnPPUAccess(addr, w) }
func (c *Cartridge) Clock()                             { c.Mapper.Clock() }
func (c *Cartridge) IRQPending() bool                   { return c.Mapper.IRQPending() }
func (c *Cartridge) ClearIRQ()                          { c.Mapper.ClearIRQ() }
func (c *Cartridge) PRGRAM() []uint8                    { return c.Mapper.PRGRAM() }

// AudioSample returns the cartridge's own audio contribution (MMC5's extra
// pulse/PCM channels); mappers that don't generate audio contribute 0.
func (c *Cartridge) AudioSample() float32 {
	if mixer, ok := c.Mapper.(AudioMixer); ok {
		return mixer.MixSample()
	}
	return 0
}

// ReadNametable and WriteNametable route a PPU nametable fetch through the
// mapper when it implements NametableMapper (MMC5's ExRAM/fill-mode
// nametable substitution); every other mapper falls back to the caller's
// own Mirroring()-driven CIRAM indexing.
func (c *Cartridge) ReadNametable(addr uint16, ciram []uint8, fallback func() uint8) uint8 {
	if nt, ok := c.Mapper.(NametableMapper); ok {
		return nt.ReadNametable(addr, ciram)
	}
	return fallback()
}

func (c *Cartridge) WriteNametable(addr uint16, ciram []uint8, value uint8, fallback func()) {
	if nt, ok := c.Mapper.(NametableMapper); ok {
		nt.WriteNametable(addr, ciram, value)
		return
	}
	fallback()
}

// SetSpriteFetchWindow forwards the PPU's 8x16 sprite pattern fetch window
// notification to mappers that care (MMC5); every other mapper ignores it.
func (c *Cartridge) SetSpriteFetchWindow(active bool) {
	if sw, ok := c.Mapper.(SpriteWindowMapper); ok {
		sw.SetSpriteFetchWindow(active)
	}
}

// EndFrame notifies mappers that track out-of-frame state (MMC5) that
// vblank has begun.
func (c *Cartridge) EndFrame() {
	if fe, ok := c.Mapper.(frameEnder); ok {
		fe.EndFrame()
	}
}

type frameEnder interface{ EndFrame() }

// Snapshot captures the installed mapper's bank-select, IRQ and ExRAM
// registers for save states; mappers without any such state (none, so far)
// would return nil.
func (c *Cartridge) Snapshot() []byte {
	if sm, ok := c.Mapper.(StateMapper); ok {
		return sm.Snapshot()
	}
	return nil
}

// Restore reinstates mapper register state captured by Snapshot. The
// caller must have already loaded the same ROM, so PRG/CHR-ROM contents and
// bank counts match what produced the snapshot.
func (c *Cartridge) Restore(data []byte) {
	if sm, ok := c.Mapper.(StateMapper); ok {
		sm.Restore(data)
	}
}

// MockCartridge implements the full CartridgeInterface surface for tests
// that want a bare PRG/CHR/RAM backing store without a real mapper.
type MockCartridge struct {
	prgROM    [0x8000]uint8
	chrROM    [0x2000]uint8
	prgRAM    [0x2000]uint8
	chrRAM    [0x2000]uint8
	mirroring Mirroring

	prgReads  []uint16
	prgWrites []uint16
	chrReads  []uint16
	chrWrites []uint16
}

// NewMockCartridge creates a mock cartridge with horizontal mirroring.
func NewMockCartridge() *MockCartridge {
	return &MockCartridge{
		mirroring: MirrorHorizontal,
		prgReads:  make([]uint16, 0),
		prgWrites: make([]uint16, 0),
		chrReads:  make([]uint16, 0),
		chrWrites: make([]uint16, 0),
	}
}

func (c *MockCartridge) ReadPRG(address uint16) uint8 {
	c.prgReads = append(c.prgReads, address)
	index := (address - 0x8000) % uint16(len(c.prgROM))
	if address >= 0x8000 {
		index = address - 0x8000
		if index >= 0x4000 && len(c.prgROM) == 0x4000 {
			index = index % 0x4000
		}
	}
	return c.prgROM[index]
}

func (c *MockCartridge) PeekPRG(address uint16) uint8 { return c.prgROM[address&0x7FFF] }

func (c *MockCartridge) WritePRG(address uint16, value uint8) {
	c.prgWrites = append(c.prgWrites, address)
	if address >= 0x6000 && address < 0x8000 {
		c.prgRAM[address-0x6000] = value
	}
}

func (c *MockCartridge) ReadCHR(address uint16) uint8 {
	c.chrReads = append(c.chrReads, address)
	if address < 0x2000 {
		return c.chrROM[address]
	}
	return 0
}

func (c *MockCartridge) PeekCHR(address uint16) uint8 {
	if address < 0x2000 {
		return c.chrROM[address]
	}
	return 0
}

func (c *MockCartridge) WriteCHR(address uint16, value uint8) {
	c.chrWrites = append(c.chrWrites, address)
	if address < 0x2000 {
		c.chrRAM[address] = value
	}
}

// LoadPRG loads data into PRG ROM.
func (c *MockCartridge) LoadPRG(data []uint8) { copy(c.prgROM[:], data) }

// LoadCHR loads data into CHR ROM.
func (c *MockCartridge) LoadCHR(data []uint8) { copy(c.chrROM[:], data) }

// SetMirroring sets the nametable mirroring mode.
func (c *MockCartridge) SetMirroring(mode Mirroring) { c.mirroring = mode }

// GetMirroring returns the current mirroring mode.
func (c *MockCartridge) GetMirroring() Mirroring { return c.mirroring }

func (c *MockCartridge) Mirroring() Mirroring { return c.mirroring }

func (c *MockCartridge) OnCPUAccess(addr uint16, write bool) {}
func (c *MockCartridge) OnPPUAccess(addr uint16, write bool) {}

func (c *MockCartridge) ReadNametable(addr uint16, ciram []uint8, fallback func() uint8) uint8 {
	return fallback()
}

func (c *MockCartridge) WriteNametable(addr uint16, ciram []uint8, value uint8, fallback func()) {
	fallback()
}

func (c *MockCartridge) SetSpriteFetchWindow(active bool) {}
func (c *MockCartridge) EndFrame()                        {}
func (c *MockCartridge) AudioSample() float32             { return 0 }
func (c *MockCartridge) Clock()                           {}
func (c *MockCartridge) IRQPending() bool                 { return false }
func (c *MockCartridge) ClearIRQ()                        {}
func (c *MockCartridge) PRGRAM() []uint8                  { return c.prgRAM[:] }
func (c *MockCartridge) Snapshot() []byte                 { return nil }
func (c *MockCartridge) Restore(data []byte)              {}

// ClearLogs clears all access logs.
func (c *MockCartridge) ClearLogs() {
	c.prgReads = c.prgReads[:0]
	c.prgWrites = c.prgWrites[:0]
	c.chrReads = c.chrReads[:0]
	c.chrWrites = c.chrWrites[:0]
}
