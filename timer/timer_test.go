package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lr35902/interrupt"
)

func TestDivIncrementsEvery64Ticks(t *testing.T) {
	ic := &interrupt.Controller{}
	tm := New(ic)
	for i := 0; i < 63; i++ {
		tm.Step()
	}
	assert.Equal(t, uint8(0), tm.DIV())
	tm.Step()
	assert.Equal(t, uint8(1), tm.DIV())
}

func TestDivWrapsAfter16384Ticks(t *testing.T) {
	ic := &interrupt.Controller{}
	tm := New(ic)
	for i := 0; i < 16384; i++ {
		tm.Step()
	}
	assert.Equal(t, uint8(0), tm.DIV())
}

func TestSetDivAlwaysResetsToZero(t *testing.T) {
	ic := &interrupt.Controller{}
	tm := New(ic)
	for i := 0; i < 100; i++ {
		tm.Step()
	}
	assert.NotEqual(t, uint8(0), tm.DIV())
	tm.SetDIV(0x77)
	assert.Equal(t, uint8(0), tm.DIV())
}

func TestTimaIncrementsAtConfiguredRate(t *testing.T) {
	ic := &interrupt.Controller{}
	tm := New(ic)
	tm.SetTAC(0x05) // enabled, rate = every 4 ticks
	for i := 0; i < 3; i++ {
		tm.Step()
	}
	assert.Equal(t, uint8(0), tm.TIMA())
	tm.Step()
	assert.Equal(t, uint8(1), tm.TIMA())
}

func TestTimaOverflowReloadsFromTmaAndSignalsInterrupt(t *testing.T) {
	ic := &interrupt.Controller{}
	tm := New(ic)
	tm.SetTMA(0x42)
	tm.SetTAC(0x05) // enabled, rate = every 4 ticks
	tm.SetTIMA(0xFF)

	for i := 0; i < 4; i++ {
		tm.Step()
	}
	assert.Equal(t, uint8(0x42), tm.TIMA())
	assert.True(t, ic.Pending() == false) // IE not set, so not yet "pending"
	ic.SetIE(interrupt.Timer)
	assert.Equal(t, interrupt.Timer, ic.IF()&0x1F)
}

func TestTimerDisabledByTacNeverIncrementsTima(t *testing.T) {
	ic := &interrupt.Controller{}
	tm := New(ic)
	tm.SetTAC(0x00) // disabled
	for i := 0; i < 1000; i++ {
		tm.Step()
	}
	assert.Equal(t, uint8(0), tm.TIMA())
}

func TestTacReadBackMasksAndForcesUnusedBits(t *testing.T) {
	ic := &interrupt.Controller{}
	tm := New(ic)
	tm.SetTAC(0xFF)
	assert.Equal(t, uint8(0xFF), tm.TAC())
	tm.SetTAC(0x00)
	assert.Equal(t, uint8(0xF8), tm.TAC())
}
