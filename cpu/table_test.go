package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// undefinedOpcodes lists the eleven primary opcodes with no compiled
// program, per spec.md §4.2.
var undefinedOpcodes = []byte{
	0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD,
}

func isUndefined(op byte) bool {
	for _, u := range undefinedOpcodes {
		if u == op {
			return true
		}
	}
	return false
}

func TestNewTableBuildsWithoutError(t *testing.T) {
	table, err := NewTable()
	assert.NoError(t, err)
	assert.NotNil(t, table)
}

func TestUndefinedOpcodesHaveNoProgram(t *testing.T) {
	table, err := NewTable()
	assert.NoError(t, err)
	for op := 0; op < 256; op++ {
		if isUndefined(byte(op)) {
			assert.Nil(t, table.Primary[op], "opcode 0x%02X should be undefined", op)
		} else {
			assert.NotNil(t, table.Primary[op], "opcode 0x%02X should be defined", op)
		}
	}
}

func TestEveryDefinedProgramIsWellFormed(t *testing.T) {
	table, err := NewTable()
	assert.NoError(t, err)

	for op := 0; op < 256; op++ {
		if p := table.Primary[op]; p != nil {
			assert.Emptyf(t, validateProgram(p), "primary 0x%02X", op)
		}
	}
	for op := 0; op < 256; op++ {
		assert.Emptyf(t, validateProgram(table.CB[op]), "cb 0x%02X", op)
	}
	assert.Empty(t, validateProgram(table.Interrupt))
}

func TestEveryProgramEndsInExactlyOneDecodeWord(t *testing.T) {
	table, err := NewTable()
	assert.NoError(t, err)

	checkTerminal := func(name string, p Program) {
		assert.True(t, p[len(p)-1].isFetch(), "%s: last word must decode", name)
		for i, w := range p[:len(p)-1] {
			assert.False(t, w.isFetch(), "%s: word %d decodes early", name, i)
		}
	}
	for op := 0; op < 256; op++ {
		if p := table.Primary[op]; p != nil {
			checkTerminal("primary", p)
		}
		checkTerminal("cb", table.CB[op])
	}
	checkTerminal("interrupt", table.Interrupt)
}

func TestStopIsOneCycle(t *testing.T) {
	table, err := NewTable()
	assert.NoError(t, err)
	assert.Len(t, table.Primary[0x10], 1, "STOP must be a single machine cycle, like HALT/DI/EI")
	assert.Equal(t, sysStop, table.Primary[0x10][0].Sys)
}

func TestValidateProgramCatchesViolations(t *testing.T) {
	cases := []struct {
		name string
		prog Program
	}{
		{"empty", Program{}},
		{"read and write", Program{{Read: true, Write: true, Addr: addrHL}, fetch()}},
		{"read without address", Program{{Read: true}, fetch()}},
		{"decode without read", Program{{Decode: true}}},
		{"ld and alu together", Program{func() ControlWord {
			w := fetch()
			w.LdSrc, w.LdDst = RegA, RegB
			w.AluOp = aluInc
			return w
		}()}},
		{"unpaired ld", Program{func() ControlWord {
			w := fetch()
			w.LdSrc = RegA
			return w
		}()}},
		{"two setters", Program{
			{Cond: condZ},
			{Cond: condNZ},
			fetch(),
		}},
		{"check before setter", Program{
			{Check: true},
			{Cond: condZ},
			fetch(),
		}},
		{"multi-bit mask", Program{func() ControlWord {
			w := fetch()
			w.AluOp, w.AluR8, w.Mask = aluBit, RegA, 0x03
			return w
		}()}},
		{"no terminal decode", Program{{Read: true, Addr: addrHL}}},
		{"decode and decode_cb together", Program{{Read: true, Addr: addrPC, Decode: true, DecodeCB: true}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.NotEmpty(t, validateProgram(c.prog))
		})
	}
}
