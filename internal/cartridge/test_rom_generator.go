package cartridge

import (
	"bytes"
	"fmt"
	"io"
)

// TestROMConfig describes a synthetic iNES image for exercising the loader
// and mappers without a real game ROM on disk.
type TestROMConfig struct {
	PRGSize      uint8
	CHRSize      uint8
	MapperID     uint8
	Mirroring    Mirroring
	HasBattery   bool
	HasTrainer   bool
	Instructions []uint8
	InitialData  map[uint16]uint8
	ResetVector  uint16
	IRQVector    uint16
	NMIVector    uint16
	CHRData      []uint8
	TrainerData  []uint8
	Description  string
}

// TestROMBuilder provides a fluent interface for building test ROMs.
type TestROMBuilder struct {
	config TestROMConfig
}

// NewTestROMBuilder creates a new test ROM builder with default configuration.
func NewTestROMBuilder() *TestROMBuilder {
	return &TestROMBuilder{
		config: TestROMConfig{
			PRGSize:     1,
			CHRSize:     1,
			MapperID:    0,
			Mirroring:   MirrorHorizontal,
			InitialData: make(map[uint16]uint8),
			ResetVector: 0x8000,
			IRQVector:   0x8000,
			NMIVector:   0x8000,
			Description: "Generated test ROM",
		},
	}
}

func (b *TestROMBuilder) WithPRGSize(size uint8) *TestROMBuilder {
	b.config.PRGSize = size
	return b
}

func (b *TestROMBuilder) WithCHRSize(size uint8) *TestROMBuilder {
	b.config.CHRSize = size
	return b
}

// WithCHRRAM configures the ROM to use CHR RAM instead of CHR ROM.
func (b *TestROMBuilder) WithCHRRAM() *TestROMBuilder {
	b.config.CHRSize = 0
	return b
}

func (b *TestROMBuilder) WithMapper(mapperID uint8) *TestROMBuilder {
	b.config.MapperID = mapperID
	return b
}

func (b *TestROMBuilder) WithMirroring(mirroring Mirroring) *TestROMBuilder {
	b.config.Mirroring = mirroring
	return b
}

func (b *TestROMBuilder) WithBattery() *TestROMBuilder {
	b.config.HasBattery = true
	return b
}

func (b *TestROMBuilder) WithTrainer(data []uint8) *TestROMBuilder {
	b.config.HasTrainer = true
	if len(data) > 512 {
		data = data[:512]
	}
	b.config.TrainerData = make([]uint8, 512)
	copy(b.config.TrainerData, data)
	return b
}

func (b *TestROMBuilder) WithInstructions(instructions []uint8) *TestROMBuilder {
	b.config.Instructions = append([]uint8(nil), instructions...)
	return b
}

func (b *TestROMBuilder) WithData(address uint16, data []uint8) *TestROMBuilder {
	for i, value := range data {
		b.config.InitialData[address+uint16(i)] = value
	}
	return b
}

func (b *TestROMBuilder) WithResetVector(address uint16) *TestROMBuilder {
	b.config.ResetVector = address
	return b
}

func (b *TestROMBuilder) WithIRQVector(address uint16) *TestROMBuilder {
	b.config.IRQVector = address
	return b
}

func (b *TestROMBuilder) WithNMIVector(address uint16) *TestROMBuilder {
	b.config.NMIVector = address
	return b
}

func (b *TestROMBuilder) WithCHRData(data []uint8) *TestROMBuilder {
	b.config.CHRData = append([]uint8(nil), data...)
	return b
}

func (b *TestROMBuilder) WithDescription(description string) *TestROMBuilder {
	b.config.Description = description
	return b
}

// Build generates the iNES image bytes for the current configuration.
func (b *TestROMBuilder) Build() ([]byte, error) {
	return GenerateTestROM(b.config)
}

// BuildCartridge generates the ROM and loads it as a Cartridge.
func (b *TestROMBuilder) BuildCartridge() (*Cartridge, error) {
	romData, err := b.Build()
	if err != nil {
		return nil, err
	}
	return LoadFromReader(bytes.NewReader(romData))
}

// GenerateTestROM creates an iNES image from the given configuration.
func GenerateTestROM(config TestROMConfig) ([]byte, error) {
	header, err := createINESHeader(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create iNES header: %w", err)
	}

	result := append([]byte{}, header...)

	if config.HasTrainer {
		trainer := make([]uint8, 512)
		copy(trainer, config.TrainerData)
		result = append(result, trainer...)
	}

	prgROM, err := createPRGROM(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create PRG ROM: %w", err)
	}
	result = append(result, prgROM...)

	if config.CHRSize > 0 {
		result = append(result, createCHRROM(config)...)
	}

	return result, nil
}

func createINESHeader(config TestROMConfig) ([]byte, error) {
	if config.PRGSize == 0 {
		return nil, fmt.Errorf("PRG ROM size cannot be zero")
	}

	header := make([]byte, 16)
	copy(header[0:4], "NES\x1A")
	header[4] = config.PRGSize
	header[5] = config.CHRSize

	flags6 := uint8(0)
	if config.Mirroring == MirrorVertical {
		flags6 |= 0x01
	}
	if config.HasBattery {
		flags6 |= 0x02
	}
	if config.HasTrainer {
		flags6 |= 0x04
	}
	if config.Mirroring == MirrorFourScreen {
		flags6 |= 0x08
	}
	flags6 |= (config.MapperID & 0x0F) << 4
	header[6] = flags6
	header[7] = config.MapperID & 0xF0

	return header, nil
}

func createPRGROM(config TestROMConfig) ([]byte, error) {
	size := int(config.PRGSize) * prgUnitSize
	prgROM := make([]byte, size)

	if len(config.Instructions) > 0 {
		if len(config.Instructions) > size {
			return nil, fmt.Errorf("instructions too large for PRG ROM")
		}
		copy(prgROM, config.Instructions)
	}

	for address, value := range config.InitialData {
		if int(address) < size {
			prgROM[address] = value
		}
	}

	vectorOffset := size - 6
	prgROM[vectorOffset] = uint8(config.NMIVector & 0xFF)
	prgROM[vectorOffset+1] = uint8(config.NMIVector >> 8)
	prgROM[vectorOffset+2] = uint8(config.ResetVector & 0xFF)
	prgROM[vectorOffset+3] = uint8(config.ResetVector >> 8)
	prgROM[vectorOffset+4] = uint8(config.IRQVector & 0xFF)
	prgROM[vectorOffset+5] = uint8(config.IRQVector >> 8)

	return prgROM, nil
}

func createCHRROM(config TestROMConfig) []byte {
	size := int(config.CHRSize) * chrUnitSize
	chrROM := make([]byte, size)
	copySize := len(config.CHRData)
	if copySize > size {
		copySize = size
	}
	copy(chrROM, config.CHRData[:copySize])
	return chrROM
}

// LoadFromReader reads an entire iNES image from r and parses it with Load.
func LoadFromReader(r io.Reader) (*Cartridge, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("cartridge: %w", err)
	}
	return Load(data)
}

// CreateMinimalTestROM builds a minimal NROM image with an infinite-loop
// reset handler, useful as a cheap cartridge fixture.
func CreateMinimalTestROM() ([]byte, error) {
	return GenerateTestROM(TestROMConfig{
		PRGSize:  1,
		CHRSize:  1,
		MapperID: 0,
		Instructions: []uint8{
			0x4C, 0x00, 0x80, // JMP $8000
		},
		ResetVector: 0x8000,
		Description: "Minimal NROM ROM with infinite loop",
	})
}
