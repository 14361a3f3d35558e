package cartridge

// MMC1 implements iNES mapper 1 (SxROM). Every write to $8000-$FFFF shifts
// one bit into a 5-bit serial register; the fifth write commits the
// accumulated value into one of four internal registers chosen by address
// bits 13-14. Writing with bit 7 set resets the shift register instead and
// forces the control register into 16KB-fixed-last mode.
type MMC1 struct {
	prg    []uint8
	chr    []uint8
	prgRAM []uint8

	chrIsRAM bool
	prgBanks uint8

	shift      uint8
	shiftCount uint8

	control uint8 // mirroring(1:0) | prgMode(3:2) | chrMode(4)
	chr0    uint8
	chr1    uint8
	prg_    uint8

	ramEnabled bool

	// cyclesSinceWrite debounces the documented hardware quirk where two
	// consecutive-cycle writes (as produced by read-modify-write opcodes)
	// collapse into a single shift. It is driven by Clock(), called once
	// per CPU cycle by the bus.
	cyclesSinceWrite uint8
}

func newMMC1(prg, chr []uint8, _ Mirroring) *MMC1 {
	m := &MMC1{
		prg:              prg,
		prgBanks:         uint8(len(prg) / 0x4000),
		prgRAM:           make([]uint8, 0x2000),
		shift:            0x10,
		control:          0x0C, // power-on: PRG mode 3 (fix last bank)
		ramEnabled:       true,
		cyclesSinceWrite: 1,
	}
	if len(chr) == 0 {
		m.chr = make([]uint8, 0x2000)
		m.chrIsRAM = true
	} else {
		m.chr = chr
	}
	return m
}

func (m *MMC1) Clock() {
	if m.cyclesSinceWrite < 0xFF {
		m.cyclesSinceWrite++
	}
}

func (m *MMC1) prgMode() uint8 { return (m.control >> 2) & 0x03 }
func (m *MMC1) chrMode() uint8 { return (m.control >> 4) & 0x01 }

func (m *MMC1) ReadPRG(addr uint16) uint8 {
	if addr >= 0x6000 && addr < 0x8000 {
		if !m.ramEnabled {
			return 0
		}
		return m.prgRAM[addr-0x6000]
	}
	if addr < 0x8000 {
		return 0
	}

	var bank uint8
	var base uint16
	switch m.prgMode() {
	case 0, 1: // 32KB switchable, ignore low bit of bank
		bank = (m.prg_ & 0x0E) | boolBit(addr >= 0xC000)
		base = addr & 0x3FFF
	case 2: // fix first bank at $8000, switch $C000
		if addr < 0xC000 {
			bank = 0
			base = addr - 0x8000
		} else {
			bank = m.prg_ & 0x0F
			base = addr - 0xC000
		}
	default: // 3: switch $8000, fix last bank at $C000
		if addr < 0xC000 {
			bank = m.prg_ & 0x0F
			base = addr - 0x8000
		} else {
			bank = m.prgBanks - 1
			base = addr - 0xC000
		}
	}
	off := uint32(bank)*0x4000 + uint32(base)
	if int(off) < len(m.prg) {
		return m.prg[off]
	}
	return 0
}

func boolBit(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func (m *MMC1) PeekPRG(addr uint16) uint8 { return m.ReadPRG(addr) }

func (m *MMC1) WritePRG(addr uint16, value uint8) {
	if addr >= 0x6000 && addr < 0x8000 {
		if m.ramEnabled {
			m.prgRAM[addr-0x6000] = value
		}
		return
	}
	if addr < 0x8000 {
		return
	}

	if value&0x80 != 0 {
		m.shift = 0x10
		m.shiftCount = 0
		m.control |= 0x0C
		return
	}

	// Back-to-back writes on consecutive CPU cycles (as issued by RMW
	// instructions targeting $8000-$FFFF) are collapsed into one.
	if m.cyclesSinceWrite == 0 {
		return
	}
	m.cyclesSinceWrite = 0

	complete := m.shift&0x01 != 0
	m.shift = (m.shift >> 1) | ((value & 0x01) << 4)
	m.shiftCount++
	if !complete && m.shiftCount < 5 {
		return
	}

	result := m.shift
	m.shift = 0x10
	m.shiftCount = 0

	switch {
	case addr < 0xA000:
		m.control = result & 0x1F
	case addr < 0xC000:
		m.chr0 = result & 0x1F
	case addr < 0xE000:
		m.chr1 = result & 0x1F
	default:
		m.prg_ = result & 0x0F
		m.ramEnabled = result&0x10 == 0
	}
}

func (m *MMC1) chrOffset(addr uint16) uint32 {
	if m.chrMode() == 0 {
		bank := m.chr0 & 0x1E
		return uint32(bank)*0x1000 + uint32(addr&0x1FFF)
	}
	if addr < 0x1000 {
		return uint32(m.chr0)*0x1000 + uint32(addr)
	}
	return uint32(m.chr1)*0x1000 + uint32(addr-0x1000)
}

func (m *MMC1) ReadCHR(addr uint16) uint8 {
	off := m.chrOffset(addr)
	if int(off) < len(m.chr) {
		return m.chr[off]
	}
	return 0
}

func (m *MMC1) PeekCHR(addr uint16) uint8 { return m.ReadCHR(addr) }

func (m *MMC1) WriteCHR(addr uint16, value uint8) {
	if !m.chrIsRAM {
		return
	}
	off := m.chrOffset(addr)
	if int(off) < len(m.chr) {
		m.chr[off] = value
	}
}

func (m *MMC1) Mirroring() Mirroring {
	switch m.control & 0x03 {
	case 0:
		return MirrorSingleLower
	case 1:
		return MirrorSingleUpper
	case 2:
		return MirrorVertical
	default:
		return MirrorHorizontal
	}
}

func (m *MMC1) OnCPUAccess(addr uint16, write bool) {}
func (m *MMC1) OnPPUAccess(addr uint16, write bool) {}
func (m *MMC1) IRQPending() bool                    { return false }
func (m *MMC1) ClearIRQ()                           {}
func (m *MMC1) PRGRAM() []uint8                     { return m.prgRAM }

type mmc1State struct {
	Shift            uint8
	ShiftCount       uint8
	Control          uint8
	Chr0             uint8
	Chr1             uint8
	Prg              uint8
	RAMEnabled       bool
	CyclesSinceWrite uint8
	CHR              []uint8
}

func (m *MMC1) Snapshot() []byte {
	s := mmc1State{
		Shift:            m.shift,
		ShiftCount:       m.shiftCount,
		Control:          m.control,
		Chr0:             m.chr0,
		Chr1:             m.chr1,
		Prg:              m.prg_,
		RAMEnabled:       m.ramEnabled,
		CyclesSinceWrite: m.cyclesSinceWrite,
	}
	if m.chrIsRAM {
		s.CHR = m.chr
	}
	return encodeState(s)
}

func (m *MMC1) Restore(data []byte) {
	if len(data) == 0 {
		return
	}
	var s mmc1State
	decodeState(data, &s)
	m.shift = s.Shift
	m.shiftCount = s.ShiftCount
	m.control = s.Control
	m.chr0 = s.Chr0
	m.chr1 = s.Chr1
	m.prg_ = s.Prg
	m.ramEnabled = s.RAMEnabled
	m.cyclesSinceWrite = s.CyclesSinceWrite
	if m.chrIsRAM {
		copy(m.chr, s.CHR)
	}
}
