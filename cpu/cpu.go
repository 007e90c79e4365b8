// Package cpu implements a sub-instruction-accurate emulator of the Sharp
// LR35902 CPU. Every architectural instruction is pre-compiled, once, into
// a Program of microcycle ControlWords (see NewTable); CPU.Step then
// advances exactly one microcycle (one machine cycle, four master clocks)
// per call, driving a host-provided mem.Bus.
package cpu

import (
	"fmt"

	"lr35902/interrupt"
	"lr35902/mem"
)

// CPU is the LR35902 stepper: architectural register state plus a cursor
// into the microcycle program currently executing.
//
// A CPU is not safe for concurrent use; per spec.md §5 the whole core is
// single-threaded and cooperatively stepped by the caller.
type CPU struct {
	Bus mem.Bus
	IC  *interrupt.Controller

	table *Table

	a, b, c, d, e, h, l uint8
	flags               Flags
	pc, sp              uint16

	ime      bool
	halting  bool
	haltBug  bool

	prog Program
	ip   int

	data     uint8  // the DATA slot: byte just read, or about to be written
	t        uint16 // 16-bit scratch temporary (T)
	condFlag bool   // the single stored branch condition, latched by Cond
}

// New returns a CPU wired to bus and ic, built from table, and performs a
// Reset.
func New(bus mem.Bus, ic *interrupt.Controller, table *Table) *CPU {
	cp := &CPU{Bus: bus, IC: ic, table: table}
	cp.Reset()
	return cp
}

// Reset re-establishes the documented post-boot state: all registers zero
// except PC=0x0100, and the program cursor parked on the fetch word of NOP,
// so the first Step call fetches the real first instruction from 0x0100.
func (cp *CPU) Reset() {
	cp.a, cp.b, cp.c, cp.d, cp.e, cp.h, cp.l = 0, 0, 0, 0, 0, 0, 0
	cp.flags = Flags{}
	cp.pc = 0x0100
	cp.sp = 0
	cp.ime = false
	cp.halting = false
	cp.haltBug = false
	cp.data = 0
	cp.t = 0
	cp.condFlag = false
	cp.prog = cp.table.Primary[0x00]
	cp.ip = 0
}

// atFetch reports whether the CPU's program cursor is currently at a
// terminal fetch word. Register introspection is only valid in this window.
func (cp *CPU) atFetch() bool {
	w := cp.prog[cp.ip]
	return w.Decode || w.DecodeCB
}

func (cp *CPU) requireFetch(what string) {
	if !cp.atFetch() {
		panic(fmt.Sprintf("cpu: %s called outside a fetch-word window", what))
	}
}

// Step executes exactly one microcycle. An error is returned only when the
// decoded opcode has no compiled program (one of the eleven undefined
// primary opcodes); no further stepping is possible once that happens.
func (cp *CPU) Step() error {
	if cp.halting {
		if !cp.IC.Pending() {
			return nil
		}
		cp.halting = false
	}

	// Resolve the condition-skip mechanism: a `check` word is invisible
	// while the stored condition is false, so the landed-on word may be
	// several program slots ahead of cp.ip.
	for cp.prog[cp.ip].Check && !cp.condFlag {
		cp.ip = cp.nextNonCheck(cp.ip)
	}
	w := cp.prog[cp.ip]

	if w.isFetch() && cp.ime && cp.IC.Pending() {
		vec := cp.IC.Accept()
		cp.t = vec
		cp.prog = cp.table.Interrupt
		cp.ip = 0
		w = cp.prog[cp.ip]
	}

	if w.Read {
		addr := cp.readAddr(w.Addr)
		v := cp.Bus.Read(addr)
		cp.data = v
		if w.MemReg != regNone && w.MemReg != regData {
			cp.setReg8(w.MemReg, v)
		}
		cp.afterRead(w.Addr, addr)
	}

	if w.Write {
		if w.Addr == addrSP {
			cp.sp--
		}
		addr := cp.writeAddr(w.Addr)
		var v uint8
		if w.MemReg == regData {
			v = cp.data
		} else {
			v = cp.reg8(w.MemReg)
		}
		cp.Bus.Write(addr, v)
		cp.afterWrite(w.Addr)
	}

	switch {
	case w.Decode:
		op := cp.data
		next := cp.table.Primary[op]
		if next == nil {
			return fmt.Errorf("cpu: unimplemented opcode 0x%02X", op)
		}
		cp.prog = next
		cp.ip = 0
	case w.DecodeCB:
		op := cp.data
		next := cp.table.CB[op]
		cp.prog = next
		cp.ip = 0
	default:
		cp.ip++
	}

	if w.Cond != condNone && w.Cond != condCheck {
		cp.condFlag = cp.evalCond(w.Cond)
	}

	if w.LdSrc != regNone || w.LdDst != regNone {
		cp.setReg8(w.LdDst, cp.reg8(w.LdSrc))
	}

	if w.AluOp != aluNone {
		cp.doAlu(w)
	}

	switch w.Sys {
	case sysEI:
		cp.ime = true
	case sysDI:
		cp.ime = false
	case sysHalt:
		if cp.IC.Pending() {
			cp.haltBug = true
		} else {
			cp.halting = true
		}
	case sysStop:
		// Acknowledged but not further emulated; see spec.md §9.
	}

	return nil
}

// nextNonCheck returns the index of the first word at or after from+1 that
// is not itself a check word.
func (cp *CPU) nextNonCheck(from int) int {
	i := from + 1
	for i < len(cp.prog) && cp.prog[i].Check {
		i++
	}
	return i
}

func (cp *CPU) evalCond(op condOp) bool {
	switch op {
	case condZ:
		return cp.flags.Z
	case condNZ:
		return !cp.flags.Z
	case condC:
		return cp.flags.C
	case condNC:
		return !cp.flags.C
	case condAlways:
		return true
	}
	panic("cpu: unreachable cond")
}

// readAddr resolves the bus address for a read, before any post-effect.
func (cp *CPU) readAddr(a addrSrc) uint16 {
	switch a {
	case addrPC:
		return cp.pc
	case addrSP:
		return cp.sp
	case addrHL, addrHLInc, addrHLDec, addrHL1:
		return cp.hl()
	case addrBC:
		return cp.bc()
	case addrDE:
		return cp.de()
	case addrT:
		return cp.t
	case addrTPlus1:
		return cp.t + 1
	case addrHighTlo:
		return 0xFF00 | uint16(uint8(cp.t))
	case addrHighC:
		return 0xFF00 | uint16(cp.c)
	}
	panic("cpu: read control word without an address source")
}

// afterRead applies the post-transaction side effect a read's address
// source carries (PC/HL+/HL-/SP auto-increment, the halt bug, JP HL).
func (cp *CPU) afterRead(a addrSrc, addr uint16) {
	switch a {
	case addrPC:
		if cp.haltBug {
			cp.haltBug = false
		} else {
			cp.pc++
		}
	case addrSP:
		cp.sp++
	case addrHLInc:
		cp.setHL(cp.hl() + 1)
	case addrHLDec:
		cp.setHL(cp.hl() - 1)
	case addrHL1:
		cp.pc = addr + 1
	}
}

// writeAddr resolves the bus address for a write. Unlike readAddr, SP's
// pre-decrement has already been applied by the caller.
func (cp *CPU) writeAddr(a addrSrc) uint16 {
	switch a {
	case addrSP:
		return cp.sp
	case addrHL, addrHLInc, addrHLDec:
		return cp.hl()
	case addrBC:
		return cp.bc()
	case addrDE:
		return cp.de()
	case addrT:
		return cp.t
	case addrTPlus1:
		return cp.t + 1
	case addrHighTlo:
		return 0xFF00 | uint16(uint8(cp.t))
	case addrHighC:
		return 0xFF00 | uint16(cp.c)
	}
	panic("cpu: write control word without an address source")
}

func (cp *CPU) afterWrite(a addrSrc) {
	switch a {
	case addrHLInc:
		cp.setHL(cp.hl() + 1)
	case addrHLDec:
		cp.setHL(cp.hl() - 1)
	}
}

// --- 8-bit register access ---

func (cp *CPU) reg8(r Reg8) uint8 {
	switch r {
	case RegA:
		return cp.a
	case RegF:
		return cp.flags.pack()
	case RegB:
		return cp.b
	case RegC:
		return cp.c
	case RegD:
		return cp.d
	case RegE:
		return cp.e
	case RegH:
		return cp.h
	case RegL:
		return cp.l
	case regData:
		return cp.data
	case regSPLow:
		return uint8(cp.sp)
	case regSPHigh:
		return uint8(cp.sp >> 8)
	case regPCLow:
		return uint8(cp.pc)
	case regPCHigh:
		return uint8(cp.pc >> 8)
	}
	panic("cpu: reg8 of an unnamed register")
}

func (cp *CPU) setReg8(r Reg8, v uint8) {
	switch r {
	case RegA:
		cp.a = v
	case RegF:
		cp.flags = unpackFlags(v)
	case RegB:
		cp.b = v
	case RegC:
		cp.c = v
	case RegD:
		cp.d = v
	case RegE:
		cp.e = v
	case RegH:
		cp.h = v
	case RegL:
		cp.l = v
	case regData:
		cp.data = v
	default:
		panic("cpu: setReg8 of an unnamed register")
	}
}

// --- 16-bit register pairs ---

func (cp *CPU) bc() uint16 { return uint16(cp.b)<<8 | uint16(cp.c) }
func (cp *CPU) de() uint16 { return uint16(cp.d)<<8 | uint16(cp.e) }
func (cp *CPU) hl() uint16 { return uint16(cp.h)<<8 | uint16(cp.l) }
func (cp *CPU) af() uint16 { return uint16(cp.a)<<8 | uint16(cp.flags.pack()) }

func (cp *CPU) setBC(v uint16) { cp.b, cp.c = uint8(v>>8), uint8(v) }
func (cp *CPU) setDE(v uint16) { cp.d, cp.e = uint8(v>>8), uint8(v) }
func (cp *CPU) setHL(v uint16) { cp.h, cp.l = uint8(v>>8), uint8(v) }
func (cp *CPU) setAF(v uint16) {
	cp.a = uint8(v >> 8)
	cp.flags = unpackFlags(uint8(v))
}

func (cp *CPU) reg16Value(r Reg16) uint16 {
	switch r {
	case Reg16AF:
		return cp.af()
	case Reg16BC:
		return cp.bc()
	case Reg16DE:
		return cp.de()
	case Reg16HL:
		return cp.hl()
	case Reg16SP:
		return cp.sp
	case Reg16PC:
		return cp.pc
	case reg16T:
		return cp.t
	}
	panic("cpu: reg16Value of an unnamed register")
}

func (cp *CPU) setReg16(r Reg16, v uint16) {
	switch r {
	case Reg16AF:
		cp.setAF(v)
	case Reg16BC:
		cp.setBC(v)
	case Reg16DE:
		cp.setDE(v)
	case Reg16HL:
		cp.setHL(v)
	case Reg16SP:
		cp.sp = v
	case Reg16PC:
		cp.pc = v
	case reg16T:
		cp.t = v
	default:
		panic("cpu: setReg16 of an unnamed register")
	}
}

// --- introspection (exposed only while parked at a fetch word) ---

// Reg8 reads one of A,F,B,C,D,E,H,L.
func (cp *CPU) Reg8(r Reg8) uint8 {
	cp.requireFetch("Reg8")
	return cp.reg8(r)
}

// SetReg8 writes one of A,F,B,C,D,E,H,L. Writes to F are masked to the top
// nibble, same as the packed representation always enforces.
func (cp *CPU) SetReg8(r Reg8, v uint8) {
	cp.requireFetch("SetReg8")
	cp.setReg8(r, v)
}

// PC returns the program counter.
func (cp *CPU) PC() uint16 {
	cp.requireFetch("PC")
	return cp.pc
}

// SetPC writes the program counter.
func (cp *CPU) SetPC(v uint16) {
	cp.requireFetch("SetPC")
	cp.pc = v
}

// SP returns the stack pointer.
func (cp *CPU) SP() uint16 {
	cp.requireFetch("SP")
	return cp.sp
}

// SetSP writes the stack pointer.
func (cp *CPU) SetSP(v uint16) {
	cp.requireFetch("SetSP")
	cp.sp = v
}

// BC, DE, HL, AF return the named register pair.
func (cp *CPU) BC() uint16 { cp.requireFetch("BC"); return cp.bc() }
func (cp *CPU) DE() uint16 { cp.requireFetch("DE"); return cp.de() }
func (cp *CPU) HL() uint16 { cp.requireFetch("HL"); return cp.hl() }
func (cp *CPU) AF() uint16 { cp.requireFetch("AF"); return cp.af() }

// SetBC, SetDE, SetHL, SetAF write the named register pair.
func (cp *CPU) SetBC(v uint16) { cp.requireFetch("SetBC"); cp.setBC(v) }
func (cp *CPU) SetDE(v uint16) { cp.requireFetch("SetDE"); cp.setDE(v) }
func (cp *CPU) SetHL(v uint16) { cp.requireFetch("SetHL"); cp.setHL(v) }
func (cp *CPU) SetAF(v uint16) { cp.requireFetch("SetAF"); cp.setAF(v) }

// IME returns the master interrupt enable bit.
func (cp *CPU) IME() bool {
	cp.requireFetch("IME")
	return cp.ime
}

// SetIME writes the master interrupt enable bit.
func (cp *CPU) SetIME(v bool) {
	cp.requireFetch("SetIME")
	cp.ime = v
}

// AtFetch reports whether the program cursor currently sits on a terminal
// fetch word, the only window in which register introspection is valid.
func (cp *CPU) AtFetch() bool { return cp.atFetch() }

// CurrentWord returns the control word the next Step call will execute, for
// debugger display.
func (cp *CPU) CurrentWord() ControlWord { return cp.prog[cp.ip] }

// Halted reports whether the CPU is parked waiting for any interrupt.
func (cp *CPU) Halted() bool { return cp.halting }

// HaltBug reports whether the next PC-addressed read will fail to advance
// PC, reproducing the post-HALT opcode duplication.
func (cp *CPU) HaltBug() bool { return cp.haltBug }
