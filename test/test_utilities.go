package test

import "nesdeck/internal/cartridge"

// MockCartridge provides a simple cartridge implementation for testing. It
// satisfies memory.CartridgeInterface with inert defaults for every hook
// beyond plain PRG/CHR storage, so tests that only care about memory-map
// behavior don't need a real iNES image.
type MockCartridge struct {
	chrData   [0x2000]uint8
	mirroring cartridge.Mirroring
}

func (m *MockCartridge) ReadPRG(address uint16) uint8          { return 0 }
func (m *MockCartridge) PeekPRG(address uint16) uint8          { return 0 }
func (m *MockCartridge) WritePRG(address uint16, value uint8)  {}
func (m *MockCartridge) ReadCHR(address uint16) uint8          { return m.chrData[address&0x1FFF] }
func (m *MockCartridge) PeekCHR(address uint16) uint8          { return m.chrData[address&0x1FFF] }
func (m *MockCartridge) WriteCHR(address uint16, value uint8)  { m.chrData[address&0x1FFF] = value }

func (m *MockCartridge) Mirroring() cartridge.Mirroring        { return m.mirroring }
func (m *MockCartridge) SetMirroring(mode cartridge.Mirroring) { m.mirroring = mode }

func (m *MockCartridge) OnCPUAccess(addr uint16, write bool) {}
func (m *MockCartridge) OnPPUAccess(addr uint16, write bool) {}

func (m *MockCartridge) ReadNametable(addr uint16, ciram []uint8, fallback func() uint8) uint8 {
	return fallback()
}

func (m *MockCartridge) WriteNametable(addr uint16, ciram []uint8, value uint8, fallback func()) {
	fallback()
}

func (m *MockCartridge) SetSpriteFetchWindow(active bool) {}
func (m *MockCartridge) EndFrame()                        {}
func (m *MockCartridge) AudioSample() float32             { return 0 }
func (m *MockCartridge) Clock()                           {}
func (m *MockCartridge) IRQPending() bool                 { return false }
func (m *MockCartridge) ClearIRQ()                        {}
func (m *MockCartridge) PRGRAM() []uint8                  { return nil }
func (m *MockCartridge) Snapshot() []byte                 { return nil }
func (m *MockCartridge) Restore(data []byte)              {}
