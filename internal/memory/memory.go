// Package memory implements the NES's two address buses: the CPU bus
// (work RAM, PPU/APU registers, controllers, cartridge domain) and the PPU
// bus (pattern tables, nametables, palette RAM), both routed through the
// cartridge's mapper.
package memory

import "nesdeck/internal/cartridge"

// Memory is the CPU-side address bus ($0000-$FFFF).
type Memory struct {
	ram [0x800]uint8

	ppuRegisters PPUInterface
	apuRegisters APUInterface
	inputSystem  InputInterface
	cartridge    CartridgeInterface

	dmaCallback func(uint8)

	// openBusValue is the last byte that crossed the bus; reads of
	// write-only or unmapped registers return this instead of zero.
	openBusValue uint8
}

// PPUMemory is the PPU-side address bus ($0000-$3FFF): pattern tables routed
// to the cartridge, 2KiB of CIRAM nametable RAM (mirrored per the
// cartridge's current Mirroring, or interposed by a NametableMapper), and 32
// bytes of palette RAM.
type PPUMemory struct {
	ciram      [0x800]uint8
	paletteRAM [32]uint8
	cartridge  CartridgeInterface
}

// PPUInterface defines the interface for PPU register access.
type PPUInterface interface {
	ReadRegister(address uint16) uint8
	WriteRegister(address uint16, value uint8)
}

// APUInterface defines the interface for APU register access.
type APUInterface interface {
	WriteRegister(address uint16, value uint8)
	ReadStatus() uint8
}

// InputInterface defines the interface for input system access.
type InputInterface interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// CartridgeInterface is the full surface both buses need from a loaded
// cartridge: PRG/CHR access, dynamic mirroring, bus-snoop notification, and
// the optional hooks MMC5 and MMC3 use (nametable interposition, sprite
// fetch window, audio mixing, mapper IRQ/clock). *cartridge.Cartridge
// satisfies this directly.
type CartridgeInterface interface {
	ReadPRG(address uint16) uint8
	PeekPRG(address uint16) uint8
	WritePRG(address uint16, value uint8)
	ReadCHR(address uint16) uint8
	PeekCHR(address uint16) uint8
	WriteCHR(address uint16, value uint8)
	Mirroring() cartridge.Mirroring
	OnCPUAccess(addr uint16, write bool)
	OnPPUAccess(addr uint16, write bool)
	ReadNametable(addr uint16, ciram []uint8, fallback func() uint8) uint8
	WriteNametable(addr uint16, ciram []uint8, value uint8, fallback func())
	SetSpriteFetchWindow(active bool)
	EndFrame()
	AudioSample() float32
	Clock()
	IRQPending() bool
	ClearIRQ()
	PRGRAM() []uint8
	Snapshot() []byte
	Restore(data []byte)
}

// New creates a new CPU-side Memory instance.
func New(ppu PPUInterface, apu APUInterface, cart CartridgeInterface) *Memory {
	return &Memory{
		ppuRegisters: ppu,
		apuRegisters: apu,
		cartridge:    cart,
	}
}

// SetInputSystem sets the input system for controller access.
func (m *Memory) SetInputSystem(input InputInterface) {
	m.inputSystem = input
}

// SetDMACallback sets the callback the bus uses to run a cycle-accurate OAM
// DMA; without one, Write falls back to an immediate (non-stalling) copy.
func (m *Memory) SetDMACallback(callback func(uint8)) {
	m.dmaCallback = callback
}

// Read reads a byte from the CPU address bus.
func (m *Memory) Read(address uint16) uint8 {
	var value uint8

	switch {
	case address < 0x2000:
		value = m.ram[address&0x07FF]

	case address < 0x4000:
		value = m.ppuRegisters.ReadRegister(0x2000 + (address & 0x0007))

	case address < 0x4020:
		switch {
		case address == 0x4015:
			value = m.apuRegisters.ReadStatus()
		case address == 0x4016 || address == 0x4017:
			if m.inputSystem != nil {
				value = m.inputSystem.Read(address)
			}
		default:
			value = m.openBusValue
		}

	default:
		if m.cartridge != nil {
			value = m.cartridge.ReadPRG(address)
			m.cartridge.OnCPUAccess(address, false)
		} else {
			value = m.openBusValue
		}
	}

	m.openBusValue = value
	return value
}

// Write writes a byte to the CPU address bus.
func (m *Memory) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.ram[address&0x07FF] = value

	case address < 0x4000:
		m.ppuRegisters.WriteRegister(0x2000+(address&0x0007), value)

	case address < 0x4020:
		switch {
		case address == 0x4014:
			if m.dmaCallback != nil {
				m.dmaCallback(value)
			} else {
				m.performOAMDMA(value)
			}
		case address == 0x4016:
			if m.inputSystem != nil {
				m.inputSystem.Write(address, value)
			}
		case address >= 0x4000 && address <= 0x4013, address == 0x4015, address == 0x4017:
			m.apuRegisters.WriteRegister(address, value)
		}
		// $4018-$401F (APU/IO test mode) are unimplemented and ignored.

	default:
		if m.cartridge != nil {
			m.cartridge.WritePRG(address, value)
			m.cartridge.OnCPUAccess(address, true)
		}
	}
}

// performOAMDMA is the non-stalling fallback path used only when no DMA
// callback is installed (e.g. bare unit tests of Memory in isolation); the
// cycle-accurate 513/514-cycle stall lives on Bus, which drives the real
// DMA callback.
func (m *Memory) performOAMDMA(page uint8) {
	base := uint16(page) << 8
	for i := uint16(0); i < 256; i++ {
		m.ppuRegisters.WriteRegister(0x2004, m.Read(base+i))
	}
}

// MirrorMode and its constants are kept as aliases of cartridge.Mirroring
// for callers that still name a mirror mode explicitly; PPUMemory itself
// never stores one; mirroredIndex queries the cartridge's current
// Mirroring() on every access, since mappers like MMC1/MMC3/AxROM/MMC2 can
// change mirroring at runtime.
type MirrorMode = cartridge.Mirroring

const (
	MirrorHorizontal    = cartridge.MirrorHorizontal
	MirrorVertical      = cartridge.MirrorVertical
	MirrorSingleScreen0 = cartridge.MirrorSingleLower
	MirrorSingleScreen1 = cartridge.MirrorSingleUpper
	MirrorFourScreen    = cartridge.MirrorFourScreen
)

// NewPPUMemory creates a new PPU-side bus over the given cartridge. The
// variadic mirror argument is accepted for source compatibility with
// callers that still pass one explicitly; it is ignored since mirroring is
// always resolved dynamically from cart.Mirroring().
func NewPPUMemory(cart CartridgeInterface, _ ...MirrorMode) *PPUMemory {
	pm := &PPUMemory{cartridge: cart}
	for i := 0; i < 32; i += 4 {
		pm.paletteRAM[i] = 0x0F
	}
	return pm
}

// Read reads from the PPU's 14-bit address space ($0000-$3FFF).
func (pm *PPUMemory) Read(address uint16) uint8 {
	address &= 0x3FFF

	switch {
	case address < 0x2000:
		v := pm.cartridge.ReadCHR(address)
		pm.cartridge.OnPPUAccess(address, false)
		return v

	case address < 0x3000:
		v := pm.readNametable(address)
		pm.cartridge.OnPPUAccess(address, false)
		return v

	case address < 0x3F00:
		v := pm.readNametable(address - 0x1000)
		pm.cartridge.OnPPUAccess(address, false)
		return v

	default:
		return pm.readPalette(address)
	}
}

// Write writes to the PPU's 14-bit address space ($0000-$3FFF).
func (pm *PPUMemory) Write(address uint16, value uint8) {
	address &= 0x3FFF

	switch {
	case address < 0x2000:
		pm.cartridge.WriteCHR(address, value)
		pm.cartridge.OnPPUAccess(address, true)

	case address < 0x3000:
		pm.writeNametable(address, value)
		pm.cartridge.OnPPUAccess(address, true)

	case address < 0x3F00:
		pm.writeNametable(address-0x1000, value)
		pm.cartridge.OnPPUAccess(address, true)

	default:
		pm.writePalette(address, value)
	}
}

// readNametable resolves a nametable fetch through the cartridge, which may
// interpose on it directly (MMC5's ExRAM/fill modes) and otherwise falls
// back to CIRAM indexed by the cartridge's current Mirroring.
func (pm *PPUMemory) readNametable(address uint16) uint8 {
	return pm.cartridge.ReadNametable(address, pm.ciram[:], func() uint8 {
		return pm.ciram[pm.mirroredIndex(address)]
	})
}

func (pm *PPUMemory) writeNametable(address uint16, value uint8) {
	pm.cartridge.WriteNametable(address, pm.ciram[:], value, func() {
		pm.ciram[pm.mirroredIndex(address)] = value
	})
}

// mirroredIndex maps a nametable address onto the 2KiB of physical CIRAM per
// the cartridge's current mirroring mode. Mirroring can change at runtime
// (MMC1, MMC3, AxROM, MMC2) so it is queried on every access rather than
// cached.
func (pm *PPUMemory) mirroredIndex(address uint16) uint16 {
	address &= 0x0FFF
	nametable := (address >> 10) & 3
	offset := address & 0x3FF

	switch pm.cartridge.Mirroring() {
	case cartridge.MirrorHorizontal:
		if nametable >= 2 {
			return 0x400 + offset
		}
		return offset

	case cartridge.MirrorVertical:
		if nametable == 1 || nametable == 3 {
			return 0x400 + offset
		}
		return offset

	case cartridge.MirrorSingleLower:
		return offset

	case cartridge.MirrorSingleUpper:
		return 0x400 + offset

	case cartridge.MirrorFourScreen:
		// Four-screen carts supply their own extra nametable RAM; lacking
		// that here, fold onto the 2KiB of CIRAM we actually have.
		return (uint16(nametable) * 0x400 + offset) & 0x7FF

	default:
		return offset
	}
}

func (pm *PPUMemory) readPalette(address uint16) uint8 {
	index := paletteIndex(address)
	return pm.paletteRAM[index]
}

func (pm *PPUMemory) writePalette(address uint16, value uint8) {
	index := paletteIndex(address)
	pm.paletteRAM[index] = value
}

func paletteIndex(address uint16) uint16 {
	index := (address - 0x3F00) & 0x1F
	if index == 0x10 || index == 0x14 || index == 0x18 || index == 0x1C {
		index &= 0x0F
	}
	return index
}

// RAM returns the 2KiB CPU work RAM array by value, for the save-state
// subsystem.
func (m *Memory) RAM() [0x800]uint8 {
	return m.ram
}

// SetRAM replaces the 2KiB CPU work RAM contents.
func (m *Memory) SetRAM(ram [0x800]uint8) {
	m.ram = ram
}

// OpenBus returns the last byte that crossed the CPU bus.
func (m *Memory) OpenBus() uint8 {
	return m.openBusValue
}

// SetOpenBus restores the CPU bus's open-bus latch.
func (m *Memory) SetOpenBus(value uint8) {
	m.openBusValue = value
}

// CIRAM returns the 2KiB nametable RAM array by value, for the save-state
// subsystem.
func (pm *PPUMemory) CIRAM() [0x800]uint8 {
	return pm.ciram
}

// SetCIRAM replaces the 2KiB nametable RAM contents.
func (pm *PPUMemory) SetCIRAM(ciram [0x800]uint8) {
	pm.ciram = ciram
}

// PaletteRAM returns the 32-byte palette RAM array by value.
func (pm *PPUMemory) PaletteRAM() [32]uint8 {
	return pm.paletteRAM
}

// SetPaletteRAM replaces the 32-byte palette RAM contents.
func (pm *PPUMemory) SetPaletteRAM(pal [32]uint8) {
	pm.paletteRAM = pal
}
