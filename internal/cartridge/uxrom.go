package cartridge

// UxROM implements iNES mapper 2. $8000-$BFFF switches in 16KB PRG banks;
// $C000-$FFFF is fixed to the last bank. CHR is always 8KB of RAM.
type UxROM struct {
	prg      []uint8
	chr      []uint8
	prgBanks uint8
	bank     uint8
	mirror   Mirroring
}

func newUxROM(prg, chr []uint8, mirror Mirroring) *UxROM {
	m := &UxROM{
		prg:      prg,
		prgBanks: uint8(len(prg) / 0x4000),
		mirror:   mirror,
	}
	if len(chr) == 0 {
		chr = make([]uint8, 0x2000)
	}
	m.chr = chr
	return m
}

func (m *UxROM) ReadPRG(addr uint16) uint8 {
	if addr < 0x8000 {
		return 0
	}
	if addr < 0xC000 {
		off := uint32(m.bank)*0x4000 + uint32(addr-0x8000)
		if int(off) < len(m.prg) {
			return m.prg[off]
		}
		return 0
	}
	off := uint32(m.prgBanks-1)*0x4000 + uint32(addr-0xC000)
	if int(off) < len(m.prg) {
		return m.prg[off]
	}
	return 0
}

func (m *UxROM) PeekPRG(addr uint16) uint8 { return m.ReadPRG(addr) }

func (m *UxROM) WritePRG(addr uint16, value uint8) {
	if addr >= 0x8000 {
		m.bank = value & 0x0F
	}
}

func (m *UxROM) ReadCHR(addr uint16) uint8 {
	if int(addr) < len(m.chr) {
		return m.chr[addr]
	}
	return 0
}
func (m *UxROM) PeekCHR(addr uint16) uint8 { return m.ReadCHR(addr) }
func (m *UxROM) WriteCHR(addr uint16, value uint8) {
	if int(addr) < len(m.chr) {
		m.chr[addr] = value
	}
}

func (m *UxROM) Mirroring() Mirroring           { return m.mirror }
func (m *UxROM) OnCPUAccess(addr uint16, w bool) {}
func (m *UxROM) OnPPUAccess(addr uint16, w bool) {}
func (m *UxROM) Clock()                          {}
func (m *UxROM) IRQPending() bool                { return false }
func (m *UxROM) ClearIRQ()                        {}
func (m *UxROM) PRGRAM() []uint8                 { return nil }

type uxromState struct {
	Bank uint8
	CHR  []uint8
}

func (m *UxROM) Snapshot() []byte {
	return encodeState(uxromState{Bank: m.bank, CHR: m.chr})
}

func (m *UxROM) Restore(data []byte) {
	if len(data) == 0 {
		return
	}
	var s uxromState
	decodeState(data, &s)
	m.bank = s.Bank
	copy(m.chr, s.CHR)
}
