package cartridge

// MMC2 implements iNES mapper 9 (PxROM), used solely by Punch-Out!!. A
// single switchable 8KB PRG window sits at $8000-$9FFF; the remaining three
// 8KB PRG windows are fixed to the cartridge's last three banks. CHR is
// split into two 4KB regions, each with two selectable 4KB banks; the
// active bank flips automatically whenever the PPU fetches one of four
// "latch" tile addresses ($0FD8, $0FE8, $1FD8-$1FDF, $1FE8-$1FEF) used by
// the game to animate oversized sprites via background tile tricks.
type MMC2 struct {
	prg    []uint8
	chr    []uint8
	prgRAM []uint8

	prgBanks uint8
	prgBank  uint8

	chrBank0FD, chrBank0FE uint8
	chrBank1FD, chrBank1FE uint8
	latch0, latch1         uint8 // 0 selects the "FD" bank, 1 the "FE" bank

	mirror Mirroring
}

func newMMC2(prg, chr []uint8, mirror Mirroring) *MMC2 {
	return &MMC2{
		prg:      prg,
		chr:      chr,
		prgRAM:   make([]uint8, 0x2000),
		prgBanks: uint8(len(prg) / 0x2000),
		mirror:   mirror,
		latch0:   1,
		latch1:   1,
	}
}

func (m *MMC2) ReadPRG(addr uint16) uint8 {
	if addr >= 0x6000 && addr < 0x8000 {
		return m.prgRAM[addr-0x6000]
	}
	if addr < 0x8000 {
		return 0
	}
	var off uint32
	switch {
	case addr < 0xA000:
		off = uint32(m.prgBank)*0x2000 + uint32(addr-0x8000)
	case addr < 0xC000:
		off = uint32(m.prgBanks-3)*0x2000 + uint32(addr-0xA000)
	case addr < 0xE000:
		off = uint32(m.prgBanks-2)*0x2000 + uint32(addr-0xC000)
	default:
		off = uint32(m.prgBanks-1)*0x2000 + uint32(addr-0xE000)
	}
	if int(off) < len(m.prg) {
		return m.prg[off]
	}
	return 0
}
func (m *MMC2) PeekPRG(addr uint16) uint8 { return m.ReadPRG(addr) }

func (m *MMC2) WritePRG(addr uint16, value uint8) {
	if addr >= 0x6000 && addr < 0x8000 {
		m.prgRAM[addr-0x6000] = value
		return
	}
	switch {
	case addr >= 0xA000 && addr < 0xB000:
		m.prgBank = value & 0x0F
	case addr >= 0xB000 && addr < 0xC000:
		m.chrBank0FD = value & 0x1F
	case addr >= 0xC000 && addr < 0xD000:
		m.chrBank0FE = value & 0x1F
	case addr >= 0xD000 && addr < 0xE000:
		m.chrBank1FD = value & 0x1F
	case addr >= 0xE000 && addr < 0xF000:
		m.chrBank1FE = value & 0x1F
	case addr >= 0xF000:
		if value&0x01 == 0 {
			m.mirror = MirrorVertical
		} else {
			m.mirror = MirrorHorizontal
		}
	}
}

func (m *MMC2) chrOffset(addr uint16) uint32 {
	if addr < 0x1000 {
		bank := m.chrBank0FE
		if m.latch0 == 0 {
			bank = m.chrBank0FD
		}
		return uint32(bank)*0x1000 + uint32(addr)
	}
	bank := m.chrBank1FE
	if m.latch1 == 0 {
		bank = m.chrBank1FD
	}
	return uint32(bank)*0x1000 + uint32(addr-0x1000)
}

func (m *MMC2) ReadCHR(addr uint16) uint8 {
	off := m.chrOffset(addr)
	value := uint8(0)
	if int(off) < len(m.chr) {
		value = m.chr[off]
	}
	m.latchFor(addr)
	return value
}

// PeekCHR reads without updating the latches, so debugger/save-state
// inspection cannot itself desync the next frame's sprite animation.
func (m *MMC2) PeekCHR(addr uint16) uint8 {
	off := m.chrOffset(addr)
	if int(off) < len(m.chr) {
		return m.chr[off]
	}
	return 0
}

func (m *MMC2) latchFor(addr uint16) {
	switch addr {
	case 0x0FD8:
		m.latch0 = 0
	case 0x0FE8:
		m.latch0 = 1
	}
	if addr >= 0x1FD8 && addr <= 0x1FDF {
		m.latch1 = 0
	} else if addr >= 0x1FE8 && addr <= 0x1FEF {
		m.latch1 = 1
	}
}

func (m *MMC2) WriteCHR(addr uint16, value uint8) {}

func (m *MMC2) Mirroring() Mirroring            { return m.mirror }
func (m *MMC2) OnCPUAccess(addr uint16, w bool)  {}
func (m *MMC2) OnPPUAccess(addr uint16, w bool)  {}
func (m *MMC2) Clock()                           {}
func (m *MMC2) IRQPending() bool                 { return false }
func (m *MMC2) ClearIRQ()                         {}
func (m *MMC2) PRGRAM() []uint8                  { return m.prgRAM }

type mmc2State struct {
	PrgBank    uint8
	ChrBank0FD uint8
	ChrBank0FE uint8
	ChrBank1FD uint8
	ChrBank1FE uint8
	Latch0     uint8
	Latch1     uint8
	Mirror     Mirroring
}

func (m *MMC2) Snapshot() []byte {
	return encodeState(mmc2State{
		PrgBank:    m.prgBank,
		ChrBank0FD: m.chrBank0FD,
		ChrBank0FE: m.chrBank0FE,
		ChrBank1FD: m.chrBank1FD,
		ChrBank1FE: m.chrBank1FE,
		Latch0:     m.latch0,
		Latch1:     m.latch1,
		Mirror:     m.mirror,
	})
}

func (m *MMC2) Restore(data []byte) {
	if len(data) == 0 {
		return
	}
	var s mmc2State
	decodeState(data, &s)
	m.prgBank = s.PrgBank
	m.chrBank0FD = s.ChrBank0FD
	m.chrBank0FE = s.ChrBank0FE
	m.chrBank1FD = s.ChrBank1FD
	m.chrBank1FE = s.ChrBank1FE
	m.latch0 = s.Latch0
	m.latch1 = s.Latch1
	m.mirror = s.Mirror
}
