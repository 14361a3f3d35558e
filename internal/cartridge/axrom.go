package cartridge

// AxROM implements iNES mapper 7. A single 32KB PRG bank is switched in one
// unit at $8000-$FFFF; mirroring is single-screen, selected by bit 4 of the
// bank register rather than by the cartridge header.
type AxROM struct {
	prg      []uint8
	chr      []uint8
	prgBanks uint8
	bank     uint8
	screen   Mirroring
}

func newAxROM(prg, chr []uint8, _ Mirroring) *AxROM {
	m := &AxROM{prg: prg, prgBanks: uint8(len(prg) / 0x8000), screen: MirrorSingleLower}
	if len(chr) == 0 {
		chr = make([]uint8, 0x2000)
	}
	m.chr = chr
	return m
}

func (m *AxROM) ReadPRG(addr uint16) uint8 {
	if addr < 0x8000 {
		return 0
	}
	off := uint32(m.bank)*0x8000 + uint32(addr-0x8000)
	if int(off) < len(m.prg) {
		return m.prg[off]
	}
	return 0
}
func (m *AxROM) PeekPRG(addr uint16) uint8 { return m.ReadPRG(addr) }

func (m *AxROM) WritePRG(addr uint16, value uint8) {
	if addr < 0x8000 {
		return
	}
	m.bank = value & 0x07
	if value&0x10 != 0 {
		m.screen = MirrorSingleUpper
	} else {
		m.screen = MirrorSingleLower
	}
}

func (m *AxROM) ReadCHR(addr uint16) uint8 {
	if int(addr) < len(m.chr) {
		return m.chr[addr]
	}
	return 0
}
func (m *AxROM) PeekCHR(addr uint16) uint8 { return m.ReadCHR(addr) }
func (m *AxROM) WriteCHR(addr uint16, value uint8) {
	if int(addr) < len(m.chr) {
		m.chr[addr] = value
	}
}

func (m *AxROM) Mirroring() Mirroring           { return m.screen }
func (m *AxROM) OnCPUAccess(addr uint16, w bool) {}
func (m *AxROM) OnPPUAccess(addr uint16, w bool) {}
func (m *AxROM) Clock()                          {}
func (m *AxROM) IRQPending() bool                { return false }
func (m *AxROM) ClearIRQ()                        {}
func (m *AxROM) PRGRAM() []uint8                 { return nil }

type axromState struct {
	Bank   uint8
	Screen Mirroring
	CHR    []uint8
}

func (m *AxROM) Snapshot() []byte {
	return encodeState(axromState{Bank: m.bank, Screen: m.screen, CHR: m.chr})
}

func (m *AxROM) Restore(data []byte) {
	if len(data) == 0 {
		return
	}
	var s axromState
	decodeState(data, &s)
	m.bank = s.Bank
	m.screen = s.Screen
	copy(m.chr, s.CHR)
}
