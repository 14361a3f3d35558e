package cartridge

// MMC5 implements (a useful subset of) iNES mapper 5 (ExROM), the most
// elaborate mapper this emulator supports. Real MMC5 boards add: PRG/CHR
// bank selectors with four independently sized PRG windows, two CHR
// banksets that swap depending on whether the PPU is inside the 8x16
// sprite pattern fetch window, a 1KB "ExRAM" usable as extra nametable
// storage, per-tile extended attributes, a fill-mode nametable, a
// scanline IRQ derived from repeated nametable fetch addresses, and two
// extra pulse channels plus a raw PCM channel mixed into APU output.
type MMC5 struct {
	prg    []uint8
	chr    []uint8
	prgRAM []uint8
	exRAM  [1024]uint8

	prgMode uint8 // $5100
	chrMode uint8 // $5101

	prgRAMProtect1, prgRAMProtect2 uint8
	prgBanks                       [5]uint8 // $5113-$5117, bank 0 unused for ROM-only boards
	prgBankIsRAM                    [5]bool

	chrBanksSprite [8]uint8 // $5120-$5127
	chrBanksBG     [8]uint8 // $5128-$512B, applied to all four 2KB quadrants
	lastChrWriteWasBG bool
	inSpriteWindow bool

	exRAMMode uint8 // $5104: 0=NT extra, 1=NT extra+attr, 2=RAM, 3=RAM protected

	ntMapping  [4]uint8 // $5105: 2 bits per quadrant -> ScreenA/ScreenB/ExRAM/Fill
	fillTile   uint8    // $5106
	fillAttr   uint8    // $5107

	irqScanlineTarget uint8 // $5203
	irqEnabled        bool  // $5204 bit7 on write
	irqPending        bool
	inFrame           bool
	scanlineCount     uint8
	lastNTAddr        uint16
	lastNTValid       bool

	multiplicandLo, multiplierLo uint8 // $5205/$5206 unsigned 8x8 multiply

	pulse1, pulse2 mmc5Pulse
	pcmValue       uint8
	pcmReadMode    bool

	mirror Mirroring
}

type mmc5Pulse struct {
	enabled  bool
	duty     uint8
	volume   uint8
	constant bool
	timer    uint16
	period   uint16
	sequence uint8
}

func newMMC5(prg, chr []uint8, mirror Mirroring) *MMC5 {
	m := &MMC5{
		prg:    prg,
		prgRAM: make([]uint8, 0x10000),
		mirror: mirror,
	}
	if len(chr) == 0 {
		m.chr = make([]uint8, 0x40000)
	} else {
		m.chr = chr
	}
	for i := range m.prgBanks {
		m.prgBanks[i] = 0xFF
	}
	return m
}

func (m *MMC5) prg8kBanks() int { return len(m.prg) / 0x2000 }

// ReadPRG implements the four PRG windows selected by $5113-$5117 and
// $5100's mode bits. Window 0 ($6000-$7FFF) is always PRG-RAM.
func (m *MMC5) ReadPRG(addr uint16) uint8 {
	if addr < 0x5C00 && addr >= 0x5000 {
		return m.readRegister(addr)
	}
	if addr >= 0x5C00 && addr < 0x6000 {
		return m.exRAM[addr-0x5C00]
	}
	if addr >= 0x6000 && addr < 0x8000 {
		bank := m.prgBanks[0] & 0x0F
		off := uint32(bank)*0x2000 + uint32(addr-0x6000)
		if int(off) < len(m.prgRAM) {
			return m.prgRAM[off]
		}
		return 0
	}
	if addr < 0x8000 {
		return 0
	}

	winIdx, isRAM, bank, base := m.prgWindow(addr)
	if isRAM {
		off := uint32(bank)*0x2000 + uint32(base)
		if int(off) < len(m.prgRAM) {
			return m.prgRAM[off]
		}
		return 0
	}
	_ = winIdx
	off := (uint32(bank) % uint32(m.prg8kBanks())) * 0x2000 + uint32(base)
	if int(off) < len(m.prg) {
		return m.prg[off]
	}
	return 0
}

func (m *MMC5) PeekPRG(addr uint16) uint8 { return m.ReadPRG(addr) }

// prgWindow resolves addr into (window index 1-4, isRAM, bank number, offset
// within the 8KB window) according to the current PRG mode.
func (m *MMC5) prgWindow(addr uint16) (int, bool, uint8, uint16) {
	switch m.prgMode {
	case 0: // single 32KB ROM bank, register 4 bits 1-7
		bank := (m.prgBanks[4] & 0x7F) &^ 0x03
		return 4, false, bank + uint8((addr-0x8000)/0x2000), (addr - 0x8000) % 0x2000
	case 1:
		if addr < 0xC000 {
			reg := m.prgBanks[2]
			return 2, reg&0x80 == 0, reg & 0x7F, (addr - 0x8000) % 0x4000
		}
		reg := m.prgBanks[4]
		return 4, false, (reg & 0x7F) &^ 0x01, (addr - 0xC000) % 0x2000
	case 2:
		switch {
		case addr < 0xC000:
			reg := m.prgBanks[2]
			return 2, reg&0x80 == 0, reg & 0x7F, (addr - 0x8000) % 0x4000
		case addr < 0xE000:
			reg := m.prgBanks[3]
			return 3, reg&0x80 == 0, reg & 0x7F, addr - 0xC000
		default:
			reg := m.prgBanks[4]
			return 4, false, reg & 0x7F, addr - 0xE000
		}
	default: // 3: four independent 8KB windows
		var reg uint8
		var idx int
		switch {
		case addr < 0xA000:
			reg, idx = m.prgBanks[1], 1
		case addr < 0xC000:
			reg, idx = m.prgBanks[2], 2
		case addr < 0xE000:
			reg, idx = m.prgBanks[3], 3
		default:
			reg, idx = m.prgBanks[4], 4
		}
		base := addr & 0x1FFF
		if idx == 4 {
			return idx, false, reg & 0x7F, base
		}
		return idx, reg&0x80 == 0, reg & 0x7F, base
	}
}

func (m *MMC5) readRegister(addr uint16) uint8 {
	switch addr {
	case 0x5204:
		v := uint8(0)
		if m.irqPending {
			v |= 0x80
		}
		if m.inFrame {
			v |= 0x40
		}
		m.irqPending = false
		return v
	case 0x5205:
		return uint8((uint16(m.multiplicandLo) * uint16(m.multiplierLo)) & 0xFF)
	case 0x5206:
		return uint8((uint16(m.multiplicandLo) * uint16(m.multiplierLo)) >> 8)
	default:
		return 0
	}
}

func (m *MMC5) WritePRG(addr uint16, value uint8) {
	switch {
	case addr == 0x5100:
		m.prgMode = value & 0x03
	case addr == 0x5101:
		m.chrMode = value & 0x03
	case addr == 0x5102:
		m.prgRAMProtect1 = value & 0x03
	case addr == 0x5103:
		m.prgRAMProtect2 = value & 0x03
	case addr == 0x5104:
		m.exRAMMode = value & 0x03
	case addr == 0x5105:
		for i := 0; i < 4; i++ {
			m.ntMapping[i] = (value >> (uint(i) * 2)) & 0x03
		}
	case addr == 0x5106:
		m.fillTile = value
	case addr == 0x5107:
		m.fillAttr = value & 0x03
	case addr >= 0x5113 && addr <= 0x5117:
		m.prgBanks[addr-0x5113] = value
	case addr >= 0x5120 && addr <= 0x5127:
		m.chrBanksSprite[addr-0x5120] = value
		m.lastChrWriteWasBG = false
	case addr >= 0x5128 && addr <= 0x512B:
		m.chrBanksBG[addr-0x5128] = value
		m.chrBanksBG[addr-0x5128+4] = value
		m.lastChrWriteWasBG = true
	case addr == 0x5203:
		m.irqScanlineTarget = value
	case addr == 0x5204:
		m.irqEnabled = value&0x80 != 0
	case addr == 0x5205:
		m.multiplicandLo = value
	case addr == 0x5206:
		m.multiplierLo = value
	case addr >= 0x5C00 && addr < 0x6000:
		m.exRAM[addr-0x5C00] = value
	case addr >= 0x6000 && addr < 0x8000:
		bank := m.prgBanks[0] & 0x0F
		off := uint32(bank)*0x2000 + uint32(addr-0x6000)
		if int(off) < len(m.prgRAM) {
			m.prgRAM[off] = value
		}
	case addr >= 0x8000:
		_, isRAM, bank, base := m.prgWindow(addr)
		if isRAM {
			off := uint32(bank)*0x2000 + uint32(base)
			if int(off) < len(m.prgRAM) {
				m.prgRAM[off] = value
			}
		}
	}
}

// SetSpriteFetchWindow is called by the PPU while it is fetching the 8x16
// sprite pattern tiles for the next scanline (cycles 64..81), switching the
// active CHR bankset as the hardware's window-compare logic does.
func (m *MMC5) SetSpriteFetchWindow(active bool) {
	m.inSpriteWindow = active
}

func (m *MMC5) chrOffset(addr uint16) uint32 {
	banks := m.chrBanksBG
	if m.inSpriteWindow {
		banks = m.chrBanksSprite
	}
	switch m.chrMode {
	case 0:
		bank := uint32(banks[7]) * 8
		return bank*0x400 + uint32(addr)
	case 1:
		idx := 3
		if addr >= 0x1000 {
			idx = 7
		}
		bank := uint32(banks[idx]) * 4
		return bank*0x400 + uint32(addr&0x0FFF)
	case 2:
		idx := int(addr / 0x800)
		bank := uint32(banks[idx*2+1]) * 2
		return bank*0x400 + uint32(addr%0x800)
	default:
		idx := int(addr / 0x400)
		return uint32(banks[idx])*0x400 + uint32(addr%0x400)
	}
}

func (m *MMC5) ReadCHR(addr uint16) uint8 {
	off := m.chrOffset(addr)
	if int(off) < len(m.chr) {
		return m.chr[off]
	}
	return 0
}
func (m *MMC5) PeekCHR(addr uint16) uint8 { return m.ReadCHR(addr) }
func (m *MMC5) WriteCHR(addr uint16, value uint8) {}

func (m *MMC5) Mirroring() Mirroring { return m.mirror }

// ReadNametable and WriteNametable implement MMC5's nametable fetch
// interposition: each of the four logical nametable quadrants is routed
// independently to CIRAM bank 0, CIRAM bank 1, ExRAM, or a constant
// fill-mode tile/attribute pair.
func (m *MMC5) ReadNametable(addr uint16, ciram []uint8) uint8 {
	quadrant := (addr >> 10) & 0x03
	offset := addr & 0x3FF
	switch m.ntMapping[quadrant] {
	case 0:
		return ciram[offset]
	case 1:
		return ciram[0x400+offset]
	case 2:
		return m.exRAM[offset]
	default:
		if offset >= 0x3C0 {
			return m.fillAttr | m.fillAttr<<2 | m.fillAttr<<4 | m.fillAttr<<6
		}
		return m.fillTile
	}
}

func (m *MMC5) WriteNametable(addr uint16, ciram []uint8, value uint8) {
	quadrant := (addr >> 10) & 0x03
	offset := addr & 0x3FF
	switch m.ntMapping[quadrant] {
	case 0:
		ciram[offset] = value
	case 1:
		ciram[0x400+offset] = value
	case 2:
		m.exRAM[offset] = value
	}
}

// OnPPUAccess detects the start of a new scanline from the repeated
// nametable-fetch address signature the real PPU produces, and maintains
// the in-frame/out-of-frame state MMC5's IRQ logic depends on.
func (m *MMC5) OnPPUAccess(addr uint16, write bool) {
	if write || addr < 0x2000 || addr >= 0x3000 {
		return
	}
	if m.lastNTValid && addr == m.lastNTAddr {
		m.advanceScanline()
	} else {
		m.lastNTAddr = addr
		m.lastNTValid = true
	}
}

func (m *MMC5) advanceScanline() {
	if !m.inFrame {
		m.inFrame = true
		m.scanlineCount = 0
		return
	}
	m.scanlineCount++
	if m.scanlineCount == m.irqScanlineTarget {
		m.irqPending = true
	}
}

// EndFrame resets MMC5's in-frame IRQ state; the PPU bus calls this once
// per vblank since MMC5 has no other reliable out-of-frame signal.
func (m *MMC5) EndFrame() {
	m.inFrame = false
	m.lastNTValid = false
}

func (m *MMC5) OnCPUAccess(addr uint16, write bool) {}
func (m *MMC5) Clock()                              {}
func (m *MMC5) IRQPending() bool                    { return m.irqPending && m.irqEnabled }
func (m *MMC5) ClearIRQ()                           { m.irqPending = false }
func (m *MMC5) PRGRAM() []uint8                     { return m.prgRAM }

// MixSample returns MMC5's two extra pulse channels and raw PCM output as
// one sample, scaled down to sit alongside the console APU's own non-linear
// pulse/tnd mix. The APU does not add it to its output samples.
func (m *MMC5) MixSample() float32 {
	p1 := m.pulse1.sample()
	p2 := m.pulse2.sample()
	pcm := float32(m.pcmValue) / 127.5
	return (p1+p2)*0.02 + pcm*0.05
}

func (p *mmc5Pulse) sample() float32 {
	if !p.enabled || p.period == 0 {
		return 0
	}
	return float32(p.volume) / 15.0
}

type mmc5PulseState struct {
	Enabled  bool
	Duty     uint8
	Volume   uint8
	Constant bool
	Timer    uint16
	Period   uint16
	Sequence uint8
}

type mmc5State struct {
	ExRAM [1024]uint8

	PrgMode uint8
	ChrMode uint8

	PrgRAMProtect1, PrgRAMProtect2 uint8
	PrgBanks                       [5]uint8

	ChrBanksSprite    [8]uint8
	ChrBanksBG        [8]uint8
	LastChrWriteWasBG bool
	InSpriteWindow    bool

	ExRAMMode uint8

	NTMapping [4]uint8
	FillTile  uint8
	FillAttr  uint8

	IRQScanlineTarget uint8
	IRQEnabled        bool
	IRQPending        bool
	InFrame           bool
	ScanlineCount     uint8
	LastNTAddr        uint16
	LastNTValid       bool

	MultiplicandLo, MultiplierLo uint8

	Pulse1, Pulse2 mmc5PulseState
	PCMValue       uint8
	PCMReadMode    bool

	Mirror Mirroring
}

func (m *MMC5) Snapshot() []byte {
	toState := func(p mmc5Pulse) mmc5PulseState {
		return mmc5PulseState{
			Enabled:  p.enabled,
			Duty:     p.duty,
			Volume:   p.volume,
			Constant: p.constant,
			Timer:    p.timer,
			Period:   p.period,
			Sequence: p.sequence,
		}
	}
	s := mmc5State{
		ExRAM:             m.exRAM,
		PrgMode:           m.prgMode,
		ChrMode:           m.chrMode,
		PrgRAMProtect1:    m.prgRAMProtect1,
		PrgRAMProtect2:    m.prgRAMProtect2,
		PrgBanks:          m.prgBanks,
		ChrBanksSprite:    m.chrBanksSprite,
		ChrBanksBG:        m.chrBanksBG,
		LastChrWriteWasBG: m.lastChrWriteWasBG,
		InSpriteWindow:    m.inSpriteWindow,
		ExRAMMode:         m.exRAMMode,
		NTMapping:         m.ntMapping,
		FillTile:          m.fillTile,
		FillAttr:          m.fillAttr,
		IRQScanlineTarget: m.irqScanlineTarget,
		IRQEnabled:        m.irqEnabled,
		IRQPending:        m.irqPending,
		InFrame:           m.inFrame,
		ScanlineCount:     m.scanlineCount,
		LastNTAddr:        m.lastNTAddr,
		LastNTValid:       m.lastNTValid,
		MultiplicandLo:    m.multiplicandLo,
		MultiplierLo:      m.multiplierLo,
		Pulse1:            toState(m.pulse1),
		Pulse2:            toState(m.pulse2),
		PCMValue:          m.pcmValue,
		PCMReadMode:       m.pcmReadMode,
		Mirror:            m.mirror,
	}
	return encodeState(s)
}

func (m *MMC5) Restore(data []byte) {
	if len(data) == 0 {
		return
	}
	var s mmc5State
	decodeState(data, &s)
	fromState := func(ps mmc5PulseState) mmc5Pulse {
		return mmc5Pulse{
			enabled:  ps.Enabled,
			duty:     ps.Duty,
			volume:   ps.Volume,
			constant: ps.Constant,
			timer:    ps.Timer,
			period:   ps.Period,
			sequence: ps.Sequence,
		}
	}
	m.exRAM = s.ExRAM
	m.prgMode = s.PrgMode
	m.chrMode = s.ChrMode
	m.prgRAMProtect1 = s.PrgRAMProtect1
	m.prgRAMProtect2 = s.PrgRAMProtect2
	m.prgBanks = s.PrgBanks
	m.chrBanksSprite = s.ChrBanksSprite
	m.chrBanksBG = s.ChrBanksBG
	m.lastChrWriteWasBG = s.LastChrWriteWasBG
	m.inSpriteWindow = s.InSpriteWindow
	m.exRAMMode = s.ExRAMMode
	m.ntMapping = s.NTMapping
	m.fillTile = s.FillTile
	m.fillAttr = s.FillAttr
	m.irqScanlineTarget = s.IRQScanlineTarget
	m.irqEnabled = s.IRQEnabled
	m.irqPending = s.IRQPending
	m.inFrame = s.InFrame
	m.scanlineCount = s.ScanlineCount
	m.lastNTAddr = s.LastNTAddr
	m.lastNTValid = s.LastNTValid
	m.multiplicandLo = s.MultiplicandLo
	m.multiplierLo = s.MultiplierLo
	m.pulse1 = fromState(s.Pulse1)
	m.pulse2 = fromState(s.Pulse2)
	m.pcmValue = s.PCMValue
	m.pcmReadMode = s.PCMReadMode
	m.mirror = s.Mirror
}
