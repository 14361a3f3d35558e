package cartridge

// NROM implements iNES mapper 0. It has no bank switching: 16KB PRG-ROM is
// mirrored across the 32KB CPU window, CHR is a single fixed 8KB bank.
type NROM struct {
	prg     []uint8
	chr     []uint8
	prgRAM  []uint8
	chrIsRAM bool
	mirror  Mirroring
}

func newNROM(prg, chr []uint8, mirror Mirroring) *NROM {
	m := &NROM{prg: prg, mirror: mirror, prgRAM: make([]uint8, 0x2000)}
	if len(chr) == 0 {
		m.chr = make([]uint8, 0x2000)
		m.chrIsRAM = true
	} else {
		m.chr = chr
	}
	return m
}

func (m *NROM) prgOffset(addr uint16) (int, bool) {
	if addr < 0x8000 {
		return 0, false
	}
	off := int(addr-0x8000) % len(m.prg)
	return off, true
}

func (m *NROM) ReadPRG(addr uint16) uint8 {
	if addr >= 0x6000 && addr < 0x8000 {
		return m.prgRAM[addr-0x6000]
	}
	if off, ok := m.prgOffset(addr); ok {
		return m.prg[off]
	}
	return 0
}

func (m *NROM) PeekPRG(addr uint16) uint8 { return m.ReadPRG(addr) }

func (m *NROM) WritePRG(addr uint16, value uint8) {
	if addr >= 0x6000 && addr < 0x8000 {
		m.prgRAM[addr-0x6000] = value
	}
	// NROM has no registers; writes to ROM are ignored.
}

func (m *NROM) ReadCHR(addr uint16) uint8 {
	if int(addr) < len(m.chr) {
		return m.chr[addr]
	}
	return 0
}

func (m *NROM) PeekCHR(addr uint16) uint8 { return m.ReadCHR(addr) }

func (m *NROM) WriteCHR(addr uint16, value uint8) {
	if m.chrIsRAM && int(addr) < len(m.chr) {
		m.chr[addr] = value
	}
}

func (m *NROM) Mirroring() Mirroring              { return m.mirror }
func (m *NROM) OnCPUAccess(addr uint16, w bool)    {}
func (m *NROM) OnPPUAccess(addr uint16, w bool)    {}
func (m *NROM) Clock()                             {}
func (m *NROM) IRQPending() bool                   { return false }
func (m *NROM) ClearIRQ()                          {}
func (m *NROM) PRGRAM() []uint8                    { return m.prgRAM }

type nromState struct {
	CHR []uint8
}

// Snapshot captures CHR-RAM contents; NROM has no bank-select registers.
func (m *NROM) Snapshot() []byte {
	if !m.chrIsRAM {
		return nil
	}
	return encodeState(nromState{CHR: m.chr})
}

func (m *NROM) Restore(data []byte) {
	if !m.chrIsRAM {
		return
	}
	var s nromState
	decodeState(data, &s)
	copy(m.chr, s.CHR)
}
