package cartridge

// CNROM implements iNES mapper 3. PRG-ROM is fixed (16KB mirrored or 32KB
// direct, same as NROM); CHR-ROM is bank switched in 8KB windows, commonly
// used only to swap a handful of static graphics pages.
type CNROM struct {
	prg      []uint8
	chr      []uint8
	chrBanks uint8
	bank     uint8
	mirror   Mirroring
}

func newCNROM(prg, chr []uint8, mirror Mirroring) *CNROM {
	return &CNROM{
		prg:      prg,
		chr:      chr,
		chrBanks: uint8(len(chr) / 0x2000),
		mirror:   mirror,
	}
}

func (m *CNROM) ReadPRG(addr uint16) uint8 {
	if addr < 0x8000 {
		return 0
	}
	off := int(addr-0x8000) % len(m.prg)
	return m.prg[off]
}
func (m *CNROM) PeekPRG(addr uint16) uint8    { return m.ReadPRG(addr) }
func (m *CNROM) WritePRG(addr uint16, v uint8) {
	if addr >= 0x8000 {
		m.bank = v & 0x03
	}
}

func (m *CNROM) ReadCHR(addr uint16) uint8 {
	off := uint32(m.bank)*0x2000 + uint32(addr)
	if int(off) < len(m.chr) {
		return m.chr[off]
	}
	return 0
}
func (m *CNROM) PeekCHR(addr uint16) uint8    { return m.ReadCHR(addr) }
func (m *CNROM) WriteCHR(addr uint16, v uint8) {}

func (m *CNROM) Mirroring() Mirroring           { return m.mirror }
func (m *CNROM) OnCPUAccess(addr uint16, w bool) {}
func (m *CNROM) OnPPUAccess(addr uint16, w bool) {}
func (m *CNROM) Clock()                          {}
func (m *CNROM) IRQPending() bool                { return false }
func (m *CNROM) ClearIRQ()                        {}
func (m *CNROM) PRGRAM() []uint8                 { return nil }

type cnromState struct {
	Bank uint8
}

func (m *CNROM) Snapshot() []byte {
	return encodeState(cnromState{Bank: m.bank})
}

func (m *CNROM) Restore(data []byte) {
	if len(data) == 0 {
		return
	}
	var s cnromState
	decodeState(data, &s)
	m.bank = s.Bank
}
