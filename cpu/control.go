package cpu

// Reg8 names an 8-bit architectural register, or one of the sentinels used
// by control words: regNone (field unused), regData (the byte just read
// or about to be written, decoupled from any named register), and the four
// write-only SP/PC byte sources below.
type Reg8 uint8

const (
	regNone Reg8 = iota
	RegA
	RegF
	RegB
	RegC
	RegD
	RegE
	RegH
	RegL
	regData
	regSPLow  // write-only source: low byte of SP (LD (a16),SP)
	regSPHigh // write-only source: high byte of SP
	regPCLow  // write-only source: low byte of PC (RST, CALL, interrupt dispatch)
	regPCHigh // write-only source: high byte of PC
)

// Reg16 names a 16-bit register pair, used by ld/alu_r16/pc_set sources.
type Reg16 uint8

const (
	reg16None Reg16 = iota
	Reg16AF
	Reg16BC
	Reg16DE
	Reg16HL
	Reg16SP
	Reg16PC
	reg16T // 16-bit scratch temporary, latched during multi-cycle loads
)

// addrSrc names the source of a microcycle's 16-bit bus address.
type addrSrc uint8

const (
	addrNone addrSrc = iota
	addrPC
	addrSP
	addrHL
	addrHLInc // read/write (HL), then HL++
	addrHLDec // read/write (HL), then HL--
	addrBC
	addrDE
	addrT     // 16-bit temporary
	addrTPlus1
	addrHighTlo // 0xFF00 | T-low (LDH)
	addrHighC   // 0xFF00 | C     (LD (C),A / LD A,(C))
	addrHL1     // JP HL: PC is set from HL on the very fetch microcycle
)

// aluOp names the ALU operation, if any, a control word performs.
type aluOp uint8

// aluOp values realize the spec's "standard 8-way grouping" of
// ADD/ADC/SUB/SBC/AND/XOR/OR/CP as 6 op kinds x WithCarry (meaningful only
// for Add/Sub), and likewise fold RLC/RL and RRC/RR into RotLeft/RotRight x
// WithCarry (WithCarry selects the stored-flag carry-in of RL/RR over the
// ejected-bit carry-in of RLC/RRC).
const (
	aluNone aluOp = iota
	aluAdd         // ADD, or ADC when WithCarry
	aluSub         // SUB, or SBC when WithCarry
	aluAnd
	aluXor
	aluOr
	aluCp
	aluInc
	aluDec
	aluDaa
	aluCpl
	aluScf
	aluCcf
	aluRotLeft  // RLC, or RL when WithCarry
	aluRotRight // RRC, or RR when WithCarry
	aluSla
	aluSra
	aluSwap
	aluSrl
	aluBit
	aluRes
	aluSet
	aluAddHL16  // ADD HL,rr
	aluSpAdjust // LD HL,SP+r8 / ADD SP,r8
	aluPcAdjust // JR: PC += signext(T-low)
	aluPcSet    // RET / RETI: PC <- named 16-bit source (T)
	aluPcReset  // RST n: PC <- mask (zero-extended)
	aluSpSet    // LD SP,HL: SP <- named 16-bit source (HL)

	// aluLatchTLow/High assemble the 16-bit scratch temporary T from bytes
	// latched into the DATA slot by a read earlier in the same microcycle,
	// low byte first, matching the little-endian two-byte immediates/
	// addresses of LD rr,d16 / LD (a16),.. / CALL / JP a16.
	aluLatchTLow
	aluLatchTHigh

	aluInc16 // INC rr: no flags affected
	aluDec16 // DEC rr: no flags affected
)

// condOp names a condition-related effect a control word has: it either
// latches a new stored condition (cz/cnz/cc/cnc/always), or it is a "check"
// word that is skipped, along with every following check word, while the
// stored condition is false.
type condOp uint8

const (
	condNone condOp = iota
	condZ
	condNZ
	condC
	condNC
	condAlways
	condCheck
)

// sysOp names a system-level side effect a control word performs.
type sysOp uint8

const (
	sysNone sysOp = iota
	sysEI
	sysDI
	sysHalt
	sysStop
)

// ControlWord is one immutable microcycle: at most one bus transaction, an
// optional 8-bit register transfer, an optional ALU operation, an optional
// condition evaluation, and an optional system side effect. It corresponds
// to exactly one machine cycle (four master clocks).
type ControlWord struct {
	Read, Write bool
	Addr        addrSrc
	MemReg      Reg8 // sink of a read, or source of a write; regData decouples it from a named register

	Decode   bool // at end of cycle, the byte just read selects the next primary opcode program
	DecodeCB bool // ...or the next CB-prefixed opcode program

	LdSrc, LdDst Reg8 // 8-bit register-to-register transfer, applied before the ALU stage

	AluOp      aluOp
	AluR8      Reg8  // 8-bit ALU operand register (regData for immediate/(HL)-sourced operands)
	AluR16     Reg16 // 16-bit ALU operand / pc_set source
	WithCarry  bool  // ADC/SBC vs ADD/SUB; RLCA-vs-RLA-style carry-in selection
	IgnoreZero bool  // the A-rotate forms (RLCA/RRCA/RLA/RRA) never set Z
	Mask       uint8 // single-bit mask for BIT/RES/SET; target vector for RST

	Cond  condOp
	Check bool // skip this word (and run its ALU/ld effects never) while the stored condition is false

	Sys sysOp
}

// Program is a non-empty, ordered sequence of control words realizing one
// architectural instruction. Its final word always sets Decode or DecodeCB
// and reads the next opcode (from PC, or from HL for JP HL), overlapping the next opcode's fetch with the current
// instruction's last machine cycle.
type Program []ControlWord

// isFetch reports whether w is a terminal fetch word.
func (w ControlWord) isFetch() bool {
	return w.Decode || w.DecodeCB
}
