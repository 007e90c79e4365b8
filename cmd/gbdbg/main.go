// Command gbdbg is an interactive microcycle-stepping debugger for the
// lr35902 core. It is development tooling: it sits outside the core's scope
// and is not exercised by anything in cpu/, interrupt/, mem/, or timer/.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/davecgh/go-spew/spew"

	"lr35902/cpu"
	"lr35902/interrupt"
	"lr35902/mem"
)

type model struct {
	cp  *cpu.CPU
	ram *mem.Ram
	ic  *interrupt.Controller

	offset uint16
	prevPC uint16
	err    error
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ", "j":
			if m.cp.AtFetch() {
				m.prevPC = m.cp.PC()
			}
			if err := m.cp.Step(); err != nil {
				m.err = err
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

// renderPage renders one 16-byte row of memory, highlighting PC.
func (m model) renderPage(start uint16) string {
	s := fmt.Sprintf("%04x | ", start)
	for i := 0; i < 16; i++ {
		addr := start + uint16(i)
		b := m.ram.Read(addr)
		if addr == m.cp.PC() {
			s += fmt.Sprintf("[%02x] ", b)
		} else {
			s += fmt.Sprintf(" %02x  ", b)
		}
	}
	return s
}

func (m model) pageTable() string {
	base := m.offset &^ 0xFF
	lines := []string{"page  |  0    1    2    3    4    5    6    7    8    9    a    b    c    d    e    f"}
	for row := uint16(0); row < 8; row++ {
		lines = append(lines, m.renderPage(base+row*16))
	}
	out := lines[0]
	for _, l := range lines[1:] {
		out += "\n" + l
	}
	return out
}

func (m model) status() string {
	var flagLine string
	for _, name := range []string{"Z", "N", "H", "C"} {
		flagLine += name + " "
	}
	f := m.cp.Reg8(cpu.RegF)
	return fmt.Sprintf(`
PC: %04x (%04x)
SP: %04x
 A: %02x   BC: %04x
 F: %02x   DE: %04x
IME: %v   HL: %04x
%s
%04b
`,
		m.cp.PC(), m.prevPC,
		m.cp.SP(),
		m.cp.Reg8(cpu.RegA), m.cp.BC(),
		f, m.cp.DE(),
		m.cp.IME(), m.cp.HL(),
		flagLine, f>>4,
	)
}

func (m model) View() string {
	// Register introspection panics outside a fetch word, so the memory
	// and register panes are only drawn at instruction boundaries.
	top := "(mid-instruction: memory and registers are shown at fetch words only)"
	if m.cp.AtFetch() {
		top = lipgloss.JoinHorizontal(lipgloss.Top, m.pageTable(), m.status())
	}
	body := lipgloss.JoinVertical(
		lipgloss.Left,
		top,
		"",
		spew.Sdump(m.cp.CurrentWord()),
	)
	if m.err != nil {
		body += "\nerror: " + m.err.Error()
	}
	return body
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: gbdbg <rom-file>")
		os.Exit(1)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "gbdbg:", err)
		os.Exit(1)
	}

	table, err := cpu.NewTable()
	if err != nil {
		fmt.Fprintln(os.Stderr, "gbdbg: building instruction table:", err)
		os.Exit(1)
	}
	ram := mem.NewRam()
	ram.Load(data, 0x0000)
	ic := &interrupt.Controller{}
	cp := cpu.New(ram, ic, table)

	m, err := tea.NewProgram(model{cp: cp, ram: ram, ic: ic, offset: 0x0100}).Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "gbdbg:", err)
		os.Exit(1)
	}
	if fin := m.(model); fin.err != nil {
		fmt.Println("error:", fin.err)
	}
}
