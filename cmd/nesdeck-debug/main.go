// Package main implements nesdeck-debug, a terminal front-end for stepping
// through an emulation: a disassembly strip, register/flag panel, and
// breakpoint list driven by the same bus.Bus the graphical front-ends use.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/davecgh/go-spew/spew"

	"nesdeck/internal/bus"
	"nesdeck/internal/cartridge"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	pcStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type model struct {
	bus         *bus.Bus
	breakpoints map[uint16]bool
	lastErr     error
	running     bool
	stepCount   uint64
}

func newModel(b *bus.Bus) model {
	return model{bus: b, breakpoints: make(map[uint16]bool)}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ", "s":
		m.bus.Step()
		m.stepCount++
	case "f":
		// Run until a frame completes or a breakpoint is hit.
		startFrame := m.bus.GetFrameCount()
		for m.bus.GetFrameCount() == startFrame {
			m.bus.Step()
			m.stepCount++
			if m.atBreakpoint() {
				break
			}
		}
	case "r":
		// Run freely until a breakpoint is hit (bounded to avoid a runaway
		// TUI if no breakpoint is ever reached).
		for i := 0; i < 5_000_000; i++ {
			m.bus.Step()
			m.stepCount++
			if m.atBreakpoint() {
				break
			}
		}
	case "b":
		pc := m.bus.GetCPUState().PC
		if m.breakpoints[pc] {
			delete(m.breakpoints, pc)
		} else {
			m.breakpoints[pc] = true
		}
	}
	return m, nil
}

func (m model) atBreakpoint() bool {
	return m.breakpoints[m.bus.GetCPUState().PC]
}

func (m model) registerPanel() string {
	cpu := m.bus.GetCPUState()
	flags := cpu.Flags
	flagChar := func(set bool, ch string) string {
		if set {
			return ch
		}
		return "-"
	}
	flagLine := strings.Join([]string{
		flagChar(flags.N, "N"), flagChar(flags.V, "V"), flagChar(flags.B, "B"),
		flagChar(flags.D, "D"), flagChar(flags.I, "I"), flagChar(flags.Z, "Z"),
		flagChar(flags.C, "C"),
	}, " ")

	body := fmt.Sprintf(
		"PC: $%04X\nA:  $%02X\nX:  $%02X\nY:  $%02X\nSP: $%02X\nCycles: %d\nFlags: %s\nSteps:  %d\nFrame:  %d",
		cpu.PC, cpu.A, cpu.X, cpu.Y, cpu.SP, cpu.Cycles, flagLine, m.stepCount, m.bus.GetFrameCount(),
	)
	return panelStyle.Render(headerStyle.Render("Registers") + "\n" + body)
}

func (m model) breakpointPanel() string {
	if len(m.breakpoints) == 0 {
		return panelStyle.Render(headerStyle.Render("Breakpoints") + "\n" + dimStyle.Render("(none, press b to set one at PC)"))
	}
	addrs := make([]uint16, 0, len(m.breakpoints))
	for addr := range m.breakpoints {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	lines := make([]string, len(addrs))
	for i, addr := range addrs {
		lines[i] = fmt.Sprintf("$%04X", addr)
	}
	return panelStyle.Render(headerStyle.Render("Breakpoints") + "\n" + strings.Join(lines, "\n"))
}

// disassemblyStrip renders the bytes around PC, highlighting PC itself; a
// full 6502 disassembler is out of scope for the debugger front-end.
func (m model) disassemblyStrip() string {
	pc := m.bus.GetCPUState().PC
	start := pc - 8
	var b strings.Builder
	b.WriteString(headerStyle.Render("Memory near PC") + "\n")
	for row := uint16(0); row < 2; row++ {
		rowStart := start + row*16
		b.WriteString(fmt.Sprintf("$%04X | ", rowStart))
		for i := uint16(0); i < 16; i++ {
			addr := rowStart + i
			value := m.bus.Memory.Read(addr)
			if addr == pc {
				b.WriteString(pcStyle.Render(fmt.Sprintf("[%02X]", value)))
			} else {
				b.WriteString(fmt.Sprintf(" %02X ", value))
			}
		}
		b.WriteString("\n")
	}
	return panelStyle.Render(b.String())
}

func (m model) View() string {
	top := lipgloss.JoinHorizontal(lipgloss.Top, m.registerPanel(), m.breakpointPanel())
	help := dimStyle.Render("space/s: step  f: run to next frame  r: run to breakpoint  b: toggle breakpoint at PC  q: quit")
	return lipgloss.JoinVertical(lipgloss.Left, top, m.disassemblyStrip(), help)
}

func main() {
	romFile := flag.String("rom", "", "Path to NES ROM file")
	startPC := flag.String("pc", "", "Override the initial program counter (hex, e.g. C000)")
	flag.Parse()

	if *romFile == "" {
		fmt.Println("usage: nesdeck-debug -rom <file> [-pc C000]")
		os.Exit(1)
	}

	cart, err := cartridge.LoadFromFile(*romFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load ROM: %v\n", err)
		os.Exit(1)
	}

	b := bus.New()
	b.LoadCartridge(cart)
	b.Reset()

	if *startPC != "" {
		pc, err := strconv.ParseUint(*startPC, 16, 16)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -pc value %q: %v\n", *startPC, err)
			os.Exit(1)
		}
		b.CPU.PC = uint16(pc)
	}

	m := newModel(b)
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "debugger error: %v\n", err)
		os.Exit(1)
	}

	fm := final.(model)
	if fm.lastErr != nil {
		fmt.Println("exited with error:", fm.lastErr)
	}
	fmt.Println(spew.Sdump(fm.bus.GetCPUState()))
}
