package cartridge

// mmc3Revision selects how the scanline IRQ counter behaves when it reloads
// from zero. Revision A/B additionally fire on that reload; revision C only
// fires when the counter naturally decrements to zero. Real cartridges
// don't self-report a revision, so the default here is the commonly
// observed "reload fires too" behaviour most test ROMs assume.
type mmc3Revision uint8

const (
	MMC3RevisionBC mmc3Revision = iota
	MMC3RevisionA
)

// MMC3 implements iNES mapper 4 (TxROM). Eight 1KB/2KB/8KB bank registers
// selected by a 3-bit index, a PRG layout bit, a CHR-inversion bit, and a
// scanline IRQ counter clocked from PPU address bus A12 rising edges.
type MMC3 struct {
	prg []uint8
	chr []uint8

	prgRAM             []uint8
	ramEnabled         bool
	ramWriteProtected  bool

	prgBanks uint8
	chrIsRAM bool

	bankSelect uint8
	prgMode    uint8
	chrMode    uint8
	regs       [8]uint8

	mirror Mirroring

	irqLatch   uint8
	irqCounter uint8
	irqEnabled bool
	irqPending bool
	irqReload  bool
	revision   mmc3Revision

	a12Low    bool
	lowStreak int
}

func newMMC3(prg, chr []uint8, mirror Mirroring) *MMC3 {
	m := &MMC3{
		prg:        prg,
		prgRAM:     make([]uint8, 0x2000),
		prgBanks:   uint8(len(prg) / 0x2000),
		mirror:     mirror,
		ramEnabled: true,
		a12Low:     true,
	}
	if len(chr) == 0 {
		m.chr = make([]uint8, 0x2000)
		m.chrIsRAM = true
	} else {
		m.chr = chr
	}
	return m
}

func (m *MMC3) prgBankOffset(bank uint8) uint32 {
	n := int(bank) % int(m.prgBanks)
	if n < 0 {
		n += int(m.prgBanks)
	}
	return uint32(n) * 0x2000
}

func (m *MMC3) ReadPRG(addr uint16) uint8 {
	if addr >= 0x6000 && addr < 0x8000 {
		if !m.ramEnabled {
			return 0
		}
		return m.prgRAM[addr-0x6000]
	}
	if addr < 0x8000 {
		return 0
	}

	var off uint32
	switch {
	case addr < 0xA000:
		if m.prgMode == 0 {
			off = m.prgBankOffset(m.regs[6]) + uint32(addr-0x8000)
		} else {
			off = m.prgBankOffset(m.prgBanks-2) + uint32(addr-0x8000)
		}
	case addr < 0xC000:
		off = m.prgBankOffset(m.regs[7]) + uint32(addr-0xA000)
	case addr < 0xE000:
		if m.prgMode == 0 {
			off = m.prgBankOffset(m.prgBanks-2) + uint32(addr-0xC000)
		} else {
			off = m.prgBankOffset(m.regs[6]) + uint32(addr-0xC000)
		}
	default:
		off = m.prgBankOffset(m.prgBanks-1) + uint32(addr-0xE000)
	}
	if int(off) < len(m.prg) {
		return m.prg[off]
	}
	return 0
}

func (m *MMC3) PeekPRG(addr uint16) uint8 { return m.ReadPRG(addr) }

func (m *MMC3) WritePRG(addr uint16, value uint8) {
	if addr >= 0x6000 && addr < 0x8000 {
		if m.ramEnabled && !m.ramWriteProtected {
			m.prgRAM[addr-0x6000] = value
		}
		return
	}
	if addr < 0x8000 {
		return
	}

	even := addr&1 == 0
	switch {
	case addr < 0xA000:
		if even {
			m.bankSelect = value & 0x07
			m.prgMode = (value >> 6) & 0x01
			m.chrMode = (value >> 7) & 0x01
		} else {
			m.regs[m.bankSelect] = value
		}
	case addr < 0xC000:
		if even {
			if value&0x01 == 0 {
				m.mirror = MirrorVertical
			} else {
				m.mirror = MirrorHorizontal
			}
		} else {
			m.ramWriteProtected = value&0x40 != 0
			m.ramEnabled = value&0x80 != 0
		}
	case addr < 0xE000:
		if even {
			m.irqLatch = value
		} else {
			m.irqCounter = 0
			m.irqReload = true
		}
	default:
		if even {
			m.irqEnabled = false
			m.irqPending = false
		} else {
			m.irqEnabled = true
		}
	}
}

func (m *MMC3) chrOffset(addr uint16) uint32 {
	// chrMode 0: two 2KB banks then four 1KB banks at $0000; inverted at $1000.
	bank2k := func(reg uint8, low uint16) uint32 {
		return uint32(m.regs[reg]&0xFE)*0x400 + uint32(low)
	}
	bank1k := func(reg uint8, low uint16) uint32 {
		return uint32(m.regs[reg])*0x400 + uint32(low)
	}

	a := addr
	if m.chrMode == 1 {
		a ^= 0x1000
	}
	switch {
	case a < 0x0800:
		return bank2k(0, a)
	case a < 0x1000:
		return bank2k(1, a-0x0800)
	case a < 0x1400:
		return bank1k(2, a-0x1000)
	case a < 0x1800:
		return bank1k(3, a-0x1400)
	case a < 0x1C00:
		return bank1k(4, a-0x1800)
	default:
		return bank1k(5, a-0x1C00)
	}
}

func (m *MMC3) ReadCHR(addr uint16) uint8 {
	off := m.chrOffset(addr)
	if int(off) < len(m.chr) {
		return m.chr[off]
	}
	return 0
}
func (m *MMC3) PeekCHR(addr uint16) uint8 { return m.ReadCHR(addr) }

func (m *MMC3) WriteCHR(addr uint16, value uint8) {
	if !m.chrIsRAM {
		return
	}
	off := m.chrOffset(addr)
	if int(off) < len(m.chr) {
		m.chr[off] = value
	}
}

func (m *MMC3) Mirroring() Mirroring { return m.mirror }

// OnPPUAccess implements the A12-edge scanline counter clock. A rising edge
// only clocks the counter if A12 has been low for at least three M2 (CPU)
// cycles' worth of PPU accesses beforehand, matching the documented
// debounce filter real MMC3 boards implement in hardware.
func (m *MMC3) OnPPUAccess(addr uint16, write bool) {
	a12 := addr&0x1000 != 0
	if !a12 {
		m.a12Low = true
		if m.lowStreak < 1<<20 {
			m.lowStreak++
		}
		return
	}
	if m.a12Low && m.lowStreak >= 8 {
		m.clockIRQCounter()
	}
	m.a12Low = false
	m.lowStreak = 0
}

func (m *MMC3) clockIRQCounter() {
	counterWasZero := m.irqCounter == 0
	if m.irqCounter == 0 || m.irqReload {
		m.irqCounter = m.irqLatch
		m.irqReload = false
	} else {
		m.irqCounter--
	}
	if m.irqCounter == 0 && m.irqEnabled {
		if m.revision == MMC3RevisionA || !counterWasZero {
			m.irqPending = true
		}
	}
}

func (m *MMC3) OnCPUAccess(addr uint16, write bool) {}
func (m *MMC3) Clock()                              {}
func (m *MMC3) IRQPending() bool                    { return m.irqPending }
func (m *MMC3) ClearIRQ()                           { m.irqPending = false }
func (m *MMC3) PRGRAM() []uint8                     { return m.prgRAM }

type mmc3State struct {
	RAMEnabled        bool
	RAMWriteProtected bool
	BankSelect        uint8
	PrgMode           uint8
	ChrMode           uint8
	Regs              [8]uint8
	Mirror            Mirroring
	IRQLatch          uint8
	IRQCounter        uint8
	IRQEnabled        bool
	IRQPending        bool
	IRQReload         bool
	Revision          mmc3Revision
	A12Low            bool
	LowStreak         int
	CHR               []uint8
}

func (m *MMC3) Snapshot() []byte {
	s := mmc3State{
		RAMEnabled:        m.ramEnabled,
		RAMWriteProtected: m.ramWriteProtected,
		BankSelect:        m.bankSelect,
		PrgMode:           m.prgMode,
		ChrMode:           m.chrMode,
		Regs:              m.regs,
		Mirror:            m.mirror,
		IRQLatch:          m.irqLatch,
		IRQCounter:        m.irqCounter,
		IRQEnabled:        m.irqEnabled,
		IRQPending:        m.irqPending,
		IRQReload:         m.irqReload,
		Revision:          m.revision,
		A12Low:            m.a12Low,
		LowStreak:         m.lowStreak,
	}
	if m.chrIsRAM {
		s.CHR = m.chr
	}
	return encodeState(s)
}

func (m *MMC3) Restore(data []byte) {
	if len(data) == 0 {
		return
	}
	var s mmc3State
	decodeState(data, &s)
	m.ramEnabled = s.RAMEnabled
	m.ramWriteProtected = s.RAMWriteProtected
	m.bankSelect = s.BankSelect
	m.prgMode = s.PrgMode
	m.chrMode = s.ChrMode
	m.regs = s.Regs
	m.mirror = s.Mirror
	m.irqLatch = s.IRQLatch
	m.irqCounter = s.IRQCounter
	m.irqEnabled = s.IRQEnabled
	m.irqPending = s.IRQPending
	m.irqReload = s.IRQReload
	m.revision = s.Revision
	m.a12Low = s.A12Low
	m.lowStreak = s.LowStreak
	if m.chrIsRAM {
		copy(m.chr, s.CHR)
	}
}
