package cpu

import "fmt"

// Table holds every pre-compiled Program: 256 primary opcodes, 256
// CB-prefixed opcodes, and the interrupt-dispatch sequence. It is built once
// at startup by NewTable and then shared, read-only, by every CPU stepping
// against it.
type Table struct {
	Primary   [256]Program
	CB        [256]Program
	Interrupt Program
}

// regNames maps a 3-bit register-field encoding (the GB's canonical r8
// ordering) to its Reg8 constant. Index 6 is the (HL) slot and is always
// special-cased by callers; its entry is never read.
var regNames = [8]Reg8{RegB, RegC, RegD, RegE, RegH, RegL, regNone, RegA}

// fetch returns the terminal control word common to almost every program:
// read the next opcode byte from PC and decode it.
func fetch() ControlWord {
	return ControlWord{Read: true, Addr: addrPC, Decode: true}
}

// NewTable synthesizes the full instruction set once and validates every
// compiled program against the invariants of spec.md §4.2 before returning
// it. A non-nil error aggregates every violation found.
func NewTable() (*Table, error) {
	t := &Table{}
	buildLoadsAndMisc(t)
	buildIncDec(t)
	buildRotateA(t)
	buildALU(t)
	buildControlFlow(t)
	buildStackOps(t)
	buildCB(t)
	buildInterruptProgram(t)

	if err := validate(t); err != nil {
		return nil, err
	}
	return t, nil
}

// --- loads, (HL)-indirect moves, and the handful of standalone opcodes ---

func buildLoadsAndMisc(t *Table) {
	t.Primary[0x00] = Program{fetch()} // NOP

	t.Primary[0x10] = Program{withSys(fetch(), sysStop)} // STOP

	t.Primary[0x76] = Program{withSys(fetch(), sysHalt)} // HALT
	t.Primary[0xF3] = Program{withSys(fetch(), sysDI)}    // DI
	t.Primary[0xFB] = Program{withSys(fetch(), sysEI)}    // EI
	t.Primary[0xCB] = Program{{Read: true, Addr: addrPC, DecodeCB: true}}

	// LD r,r' (0x40-0x7F), less 0x76 which is HALT above.
	for dst := 0; dst < 8; dst++ {
		for src := 0; src < 8; src++ {
			op := byte(0x40 + dst*8 + src)
			if op == 0x76 {
				continue
			}
			switch {
			case dst == 6:
				t.Primary[op] = Program{
					{Write: true, Addr: addrHL, MemReg: regNames[src]},
					fetch(),
				}
			case src == 6:
				t.Primary[op] = Program{
					{Read: true, Addr: addrHL, MemReg: regNames[dst]},
					fetch(),
				}
			default:
				w := fetch()
				w.LdDst, w.LdSrc = regNames[dst], regNames[src]
				t.Primary[op] = Program{w}
			}
		}
	}

	// LD r,d8 / LD (HL),d8, at op = 0x06 + row*8.
	for row := 0; row < 8; row++ {
		op := byte(0x06 + row*8)
		if row == 6 {
			t.Primary[op] = Program{
				{Read: true, Addr: addrPC, MemReg: regData},
				{Write: true, Addr: addrHL, MemReg: regData},
				fetch(),
			}
			continue
		}
		t.Primary[op] = Program{
			{Read: true, Addr: addrPC, MemReg: regNames[row]},
			fetch(),
		}
	}

	// LD A,(BC)/(DE)/(HL+)/(HL-) and LD (BC)/(DE)/(HL+)/(HL-),A.
	indirect := []struct {
		loadOp, storeOp byte
		addr            addrSrc
	}{
		{0x0A, 0x02, addrBC},
		{0x1A, 0x12, addrDE},
		{0x2A, 0x22, addrHLInc},
		{0x3A, 0x32, addrHLDec},
	}
	for _, e := range indirect {
		t.Primary[e.loadOp] = Program{{Read: true, Addr: e.addr, MemReg: RegA}, fetch()}
		t.Primary[e.storeOp] = Program{{Write: true, Addr: e.addr, MemReg: RegA}, fetch()}
	}

	// LD (a16),SP
	t.Primary[0x08] = Program{
		{Read: true, Addr: addrPC, MemReg: regData, AluOp: aluLatchTLow},
		{Read: true, Addr: addrPC, MemReg: regData, AluOp: aluLatchTHigh},
		{Write: true, Addr: addrT, MemReg: regSPLow},
		{Write: true, Addr: addrTPlus1, MemReg: regSPHigh},
		fetch(),
	}

	// LD (a16),A / LD A,(a16)
	t.Primary[0xFA] = Program{
		{Read: true, Addr: addrPC, MemReg: regData, AluOp: aluLatchTLow},
		{Read: true, Addr: addrPC, MemReg: regData, AluOp: aluLatchTHigh},
		{Read: true, Addr: addrT, MemReg: RegA},
		fetch(),
	}
	t.Primary[0xEA] = Program{
		{Read: true, Addr: addrPC, MemReg: regData, AluOp: aluLatchTLow},
		{Read: true, Addr: addrPC, MemReg: regData, AluOp: aluLatchTHigh},
		{Write: true, Addr: addrT, MemReg: RegA},
		fetch(),
	}

	// LDH (a8),A / LDH A,(a8)
	t.Primary[0xF0] = Program{
		{Read: true, Addr: addrPC, MemReg: regData, AluOp: aluLatchTLow},
		{Read: true, Addr: addrHighTlo, MemReg: RegA},
		fetch(),
	}
	t.Primary[0xE0] = Program{
		{Read: true, Addr: addrPC, MemReg: regData, AluOp: aluLatchTLow},
		{Write: true, Addr: addrHighTlo, MemReg: RegA},
		fetch(),
	}

	// LD (C),A / LD A,(C)
	t.Primary[0xF2] = Program{{Read: true, Addr: addrHighC, MemReg: RegA}, fetch()}
	t.Primary[0xE2] = Program{{Write: true, Addr: addrHighC, MemReg: RegA}, fetch()}

	// LD rr,d16
	type wide struct {
		op     byte
		lo, hi Reg8
		r16    Reg16
	}
	for _, w := range []wide{
		{0x01, RegC, RegB, reg16None},
		{0x11, RegE, RegD, reg16None},
		{0x21, RegL, RegH, reg16None},
	} {
		t.Primary[w.op] = Program{
			{Read: true, Addr: addrPC, MemReg: w.lo},
			{Read: true, Addr: addrPC, MemReg: w.hi},
			fetch(),
		}
	}
	t.Primary[0x31] = Program{
		{Read: true, Addr: addrPC, MemReg: regData, AluOp: aluLatchTLow},
		{Read: true, Addr: addrPC, MemReg: regData, AluOp: aluLatchTHigh},
		withAluR16(fetch(), aluSpSet, reg16T),
	}

	// LD HL,SP+r8
	t.Primary[0xF8] = Program{
		{Read: true, Addr: addrPC, MemReg: regData, AluOp: aluLatchTLow},
		{AluOp: aluSpAdjust, AluR16: Reg16HL},
		fetch(),
	}
	// LD SP,HL
	t.Primary[0xF9] = Program{
		{AluOp: aluSpSet, AluR16: Reg16HL},
		fetch(),
	}
}

func withSys(w ControlWord, s sysOp) ControlWord { w.Sys = s; return w }
func withAluR16(w ControlWord, op aluOp, r Reg16) ControlWord {
	w.AluOp, w.AluR16 = op, r
	return w
}

// --- INC/DEC r8, INC/DEC rr, ADD HL,rr, ADD SP,r8 ---

func buildIncDec(t *Table) {
	for col := 0; col < 8; col++ {
		incOp := byte(0x04 + col*8)
		decOp := byte(0x05 + col*8)
		if col == 6 {
			t.Primary[incOp] = Program{
				{Read: true, Addr: addrHL, MemReg: regData, AluOp: aluInc, AluR8: regData},
				{Write: true, Addr: addrHL, MemReg: regData},
				fetch(),
			}
			t.Primary[decOp] = Program{
				{Read: true, Addr: addrHL, MemReg: regData, AluOp: aluDec, AluR8: regData},
				{Write: true, Addr: addrHL, MemReg: regData},
				fetch(),
			}
			continue
		}
		wi := fetch()
		wi.AluOp, wi.AluR8 = aluInc, regNames[col]
		t.Primary[incOp] = Program{wi}

		wd := fetch()
		wd.AluOp, wd.AluR8 = aluDec, regNames[col]
		t.Primary[decOp] = Program{wd}
	}

	rr := []struct {
		incOp, decOp byte
		r16          Reg16
	}{
		{0x03, 0x0B, Reg16BC},
		{0x13, 0x1B, Reg16DE},
		{0x23, 0x2B, Reg16HL},
		{0x33, 0x3B, Reg16SP},
	}
	for _, e := range rr {
		t.Primary[e.incOp] = Program{{AluOp: aluInc16, AluR16: e.r16}, fetch()}
		t.Primary[e.decOp] = Program{{AluOp: aluDec16, AluR16: e.r16}, fetch()}
	}

	addHL := []struct {
		op  byte
		r16 Reg16
	}{
		{0x09, Reg16BC}, {0x19, Reg16DE}, {0x29, Reg16HL}, {0x39, Reg16SP},
	}
	for _, e := range addHL {
		t.Primary[e.op] = Program{{AluOp: aluAddHL16, AluR16: e.r16}, fetch()}
	}

	t.Primary[0xE8] = Program{
		{Read: true, Addr: addrPC, MemReg: regData, AluOp: aluLatchTLow},
		{AluOp: aluSpAdjust, AluR16: Reg16SP},
		{},
		fetch(),
	}
}

// --- RLCA/RRCA/RLA/RRA, DAA/CPL/SCF/CCF ---

func buildRotateA(t *Table) {
	rotA := []struct {
		op        byte
		rot       aluOp
		withCarry bool
	}{
		{0x07, aluRotLeft, false},
		{0x0F, aluRotRight, false},
		{0x17, aluRotLeft, true},
		{0x1F, aluRotRight, true},
	}
	for _, e := range rotA {
		w := fetch()
		w.AluOp, w.AluR8, w.WithCarry, w.IgnoreZero = e.rot, RegA, e.withCarry, true
		t.Primary[e.op] = Program{w}
	}

	single := []struct {
		op byte
		kd aluOp
	}{
		{0x27, aluDaa}, {0x2F, aluCpl}, {0x37, aluScf}, {0x3F, aluCcf},
	}
	for _, e := range single {
		w := fetch()
		w.AluOp = e.kd
		t.Primary[e.op] = Program{w}
	}
}

// --- ALU A,r8 / ALU A,d8 grids (0x80-0xBF, 0xC6-0xFE) ---

var aluRowOps = [8]aluOp{aluAdd, aluAdd, aluSub, aluSub, aluAnd, aluXor, aluOr, aluCp}
var aluRowCarry = [8]bool{false, true, false, true, false, false, false, false}

func buildALU(t *Table) {
	for row := 0; row < 8; row++ {
		base := byte(0x80 + row*8)
		op, wc := aluRowOps[row], aluRowCarry[row]
		for col := 0; col < 8; col++ {
			opcode := base + byte(col)
			if col == 6 {
				t.Primary[opcode] = Program{
					{Read: true, Addr: addrHL, MemReg: regData},
					withAluR8(fetch(), op, regData, wc),
				}
				continue
			}
			t.Primary[opcode] = Program{withAluR8(fetch(), op, regNames[col], wc)}
		}
	}

	imm := []byte{0xC6, 0xCE, 0xD6, 0xDE, 0xE6, 0xEE, 0xF6, 0xFE}
	for row, opcode := range imm {
		t.Primary[opcode] = Program{
			{Read: true, Addr: addrPC, MemReg: regData},
			withAluR8(fetch(), aluRowOps[row], regData, aluRowCarry[row]),
		}
	}
}

func withAluR8(w ControlWord, op aluOp, r Reg8, wc bool) ControlWord {
	w.AluOp, w.AluR8, w.WithCarry = op, r, wc
	return w
}

// --- JR, JP, CALL, RET/RETI, RST ---

func buildControlFlow(t *Table) {
	jr := []struct {
		op   byte
		cond condOp
	}{
		{0x18, condAlways}, {0x20, condNZ}, {0x28, condZ}, {0x30, condNC}, {0x38, condC},
	}
	for _, e := range jr {
		t.Primary[e.op] = Program{
			{Read: true, Addr: addrPC, MemReg: regData, AluOp: aluLatchTLow, Cond: e.cond},
			{Check: true, AluOp: aluPcAdjust},
			fetch(),
		}
	}

	jp := []struct {
		op   byte
		cond condOp
	}{
		{0xC3, condAlways}, {0xC2, condNZ}, {0xCA, condZ}, {0xD2, condNC}, {0xDA, condC},
	}
	for _, e := range jp {
		t.Primary[e.op] = Program{
			{Read: true, Addr: addrPC, MemReg: regData, AluOp: aluLatchTLow, Cond: e.cond},
			{Read: true, Addr: addrPC, MemReg: regData, AluOp: aluLatchTHigh},
			{Check: true, AluOp: aluPcSet, AluR16: reg16T},
			fetch(),
		}
	}
	t.Primary[0xE9] = Program{{Read: true, Addr: addrHL1, Decode: true}}

	call := []struct {
		op   byte
		cond condOp
	}{
		{0xCD, condAlways}, {0xC4, condNZ}, {0xCC, condZ}, {0xD4, condNC}, {0xDC, condC},
	}
	for _, e := range call {
		t.Primary[e.op] = Program{
			{Read: true, Addr: addrPC, MemReg: regData, AluOp: aluLatchTLow, Cond: e.cond},
			{Read: true, Addr: addrPC, MemReg: regData, AluOp: aluLatchTHigh},
			{Check: true},
			{Check: true, Write: true, Addr: addrSP, MemReg: regPCHigh},
			{Check: true, Write: true, Addr: addrSP, MemReg: regPCLow, AluOp: aluPcSet, AluR16: reg16T},
			fetch(),
		}
	}

	retCC := []struct {
		op   byte
		cond condOp
	}{
		{0xC0, condNZ}, {0xC8, condZ}, {0xD0, condNC}, {0xD8, condC},
	}
	for _, e := range retCC {
		t.Primary[e.op] = Program{
			{Cond: e.cond},
			{Check: true, Read: true, Addr: addrSP, MemReg: regData, AluOp: aluLatchTLow},
			{Check: true, Read: true, Addr: addrSP, MemReg: regData, AluOp: aluLatchTHigh},
			{Check: true, AluOp: aluPcSet, AluR16: reg16T},
			fetch(),
		}
	}

	t.Primary[0xC9] = Program{ // RET
		{Read: true, Addr: addrSP, MemReg: regData, AluOp: aluLatchTLow},
		{Read: true, Addr: addrSP, MemReg: regData, AluOp: aluLatchTHigh},
		{AluOp: aluPcSet, AluR16: reg16T},
		fetch(),
	}
	t.Primary[0xD9] = Program{ // RETI
		{Read: true, Addr: addrSP, MemReg: regData, AluOp: aluLatchTLow},
		{Read: true, Addr: addrSP, MemReg: regData, AluOp: aluLatchTHigh},
		{AluOp: aluPcSet, AluR16: reg16T},
		withSys(fetch(), sysEI),
	}

	rst := []struct {
		op   byte
		mask uint8
	}{
		{0xC7, 0x00}, {0xCF, 0x08}, {0xD7, 0x10}, {0xDF, 0x18},
		{0xE7, 0x20}, {0xEF, 0x28}, {0xF7, 0x30}, {0xFF, 0x38},
	}
	for _, e := range rst {
		t.Primary[e.op] = Program{
			{},
			{Write: true, Addr: addrSP, MemReg: regPCHigh},
			{Write: true, Addr: addrSP, MemReg: regPCLow, AluOp: aluPcReset, Mask: e.mask},
			fetch(),
		}
	}
}

// --- PUSH/POP ---

func buildStackOps(t *Table) {
	pairs := []struct {
		popOp, pushOp byte
		lo, hi        Reg8
	}{
		{0xC1, 0xC5, RegC, RegB},
		{0xD1, 0xD5, RegE, RegD},
		{0xE1, 0xE5, RegL, RegH},
		{0xF1, 0xF5, RegF, RegA},
	}
	for _, e := range pairs {
		t.Primary[e.popOp] = Program{
			{Read: true, Addr: addrSP, MemReg: e.lo},
			{Read: true, Addr: addrSP, MemReg: e.hi},
			fetch(),
		}
		t.Primary[e.pushOp] = Program{
			{},
			{Write: true, Addr: addrSP, MemReg: e.hi},
			{Write: true, Addr: addrSP, MemReg: e.lo},
			fetch(),
		}
	}
}

// --- CB-prefixed subtable ---

var cbRotOps = [8]aluOp{aluRotLeft, aluRotRight, aluRotLeft, aluRotRight, aluSla, aluSra, aluSwap, aluSrl}
var cbRotCarry = [8]bool{false, false, true, true, false, false, false, false}

func buildCB(t *Table) {
	for group := 0; group < 8; group++ {
		op, wc := cbRotOps[group], cbRotCarry[group]
		for col := 0; col < 8; col++ {
			opcode := byte(group*8 + col)
			if col == 6 {
				t.CB[opcode] = Program{
					{Read: true, Addr: addrHL, MemReg: regData, AluOp: op, AluR8: regData, WithCarry: wc},
					{Write: true, Addr: addrHL, MemReg: regData},
					fetch(),
				}
				continue
			}
			t.CB[opcode] = Program{withAluR8(fetch(), op, regNames[col], wc)}
		}
	}

	for n := 0; n < 8; n++ {
		mask := uint8(1) << n
		for col := 0; col < 8; col++ {
			opcode := byte(0x40 + n*8 + col)
			if col == 6 {
				t.CB[opcode] = Program{
					{Read: true, Addr: addrHL, MemReg: regData, AluOp: aluBit, AluR8: regData, Mask: mask},
					{},
					fetch(),
				}
				continue
			}
			w := fetch()
			w.AluOp, w.AluR8, w.Mask = aluBit, regNames[col], mask
			t.CB[opcode] = Program{w}
		}
	}

	resSet := []struct {
		base byte
		op   aluOp
	}{
		{0x80, aluRes}, {0xC0, aluSet},
	}
	for _, rs := range resSet {
		for n := 0; n < 8; n++ {
			mask := uint8(1) << n
			for col := 0; col < 8; col++ {
				opcode := rs.base + byte(n*8+col)
				if col == 6 {
					t.CB[opcode] = Program{
						{Read: true, Addr: addrHL, MemReg: regData, AluOp: rs.op, AluR8: regData, Mask: mask},
						{Write: true, Addr: addrHL, MemReg: regData},
						fetch(),
					}
					continue
				}
				w := fetch()
				w.AluOp, w.AluR8, w.Mask = rs.op, regNames[col], mask
				t.CB[opcode] = Program{w}
			}
		}
	}
}

// --- interrupt dispatch ---

func buildInterruptProgram(t *Table) {
	t.Interrupt = Program{
		withSys(ControlWord{}, sysDI),
		{},
		{Write: true, Addr: addrSP, MemReg: regPCHigh},
		{Write: true, Addr: addrSP, MemReg: regPCLow, AluOp: aluPcSet, AluR16: reg16T},
		fetch(),
	}
}

// --- invariant validation ---

// validate checks every defined program (primary, CB, interrupt) against the
// structural invariants of spec.md §4.2, returning a single aggregate error
// naming every violation found.
func validate(t *Table) error {
	var errs []string
	check := func(name string, p Program) {
		if msg := validateProgram(p); msg != "" {
			errs = append(errs, fmt.Sprintf("%s: %s", name, msg))
		}
	}
	for op := 0; op < 256; op++ {
		if t.Primary[op] != nil {
			check(fmt.Sprintf("primary 0x%02X", op), t.Primary[op])
		}
	}
	for op := 0; op < 256; op++ {
		check(fmt.Sprintf("cb 0x%02X", op), t.CB[op])
	}
	check("interrupt", t.Interrupt)

	if len(errs) > 0 {
		msg := "cpu: invalid instruction table:"
		for _, e := range errs {
			msg += "\n  " + e
		}
		return fmt.Errorf("%s", msg)
	}
	return nil
}

// validateProgram returns a non-empty diagnostic if p violates any of the
// eight program-level invariants; otherwise "".
func validateProgram(p Program) string {
	if len(p) == 0 {
		return "empty program"
	}

	setters := 0
	lastSetterIdx := -1
	for i, w := range p {
		if w.Read && w.Write {
			return fmt.Sprintf("word %d: read and write both set", i)
		}
		if w.Read && w.Addr == addrNone {
			return fmt.Sprintf("word %d: read without an address source", i)
		}
		if w.Write && w.Addr == addrNone {
			return fmt.Sprintf("word %d: write without an address source", i)
		}
		if (w.Decode || w.DecodeCB) && !w.Read {
			return fmt.Sprintf("word %d: decode without a read", i)
		}
		if w.Decode && w.DecodeCB {
			return fmt.Sprintf("word %d: decode and decode_cb both set", i)
		}
		if (w.LdSrc != regNone || w.LdDst != regNone) && w.AluOp != aluNone {
			return fmt.Sprintf("word %d: ld and alu_op both set", i)
		}
		if (w.LdSrc == regNone) != (w.LdDst == regNone) {
			return fmt.Sprintf("word %d: ld_src/ld_dst not paired", i)
		}
		if w.Cond != condNone && w.Cond != condCheck {
			setters++
			lastSetterIdx = i
		}
		if (w.AluOp == aluBit || w.AluOp == aluRes || w.AluOp == aluSet) && !isSingleBit(w.Mask) {
			return fmt.Sprintf("word %d: BIT/RES/SET mask is not a single bit", i)
		}
	}
	if setters > 1 {
		return fmt.Sprintf("%d condition setters, want at most 1", setters)
	}
	for i, w := range p {
		if w.Check && i <= lastSetterIdx {
			return fmt.Sprintf("word %d: check word at or before its condition setter", i)
		}
	}

	last := p[len(p)-1]
	if !last.isFetch() {
		return "last word is not a terminal decode word"
	}
	for i, w := range p[:len(p)-1] {
		if w.isFetch() {
			return fmt.Sprintf("word %d: non-terminal decode word", i)
		}
	}
	return ""
}

func isSingleBit(m uint8) bool {
	return m != 0 && m&(m-1) == 0
}
