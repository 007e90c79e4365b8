// Package timer implements the LR35902 free-running divider and
// programmable timer (DIV/TIMA/TMA/TAC).
package timer

import "lr35902/interrupt"

// tickMasks is indexed by TAC bits 1..0 and gives the cycle-counter mask
// that selects the TIMA increment rate (4096, 262144, 65536, 16384 Hz).
var tickMasks = [4]uint8{0xFF, 0x03, 0x0F, 0x3F}

const tacEnable uint8 = 0x04
const tacRateMask uint8 = 0x03

// Timer owns DIV/TIMA/TMA/TAC and a free-running internal cycle counter. It
// holds a non-owning reference to an interrupt.Controller so it can signal
// the timer interrupt on TIMA overflow; the system is responsible for
// constructing the Controller and keeping it alive.
type Timer struct {
	ic *interrupt.Controller

	cycle uint8
	div   uint8
	tima  uint8
	tma   uint8
	tac   uint8
}

// New returns a Timer wired to the given interrupt controller.
func New(ic *interrupt.Controller) *Timer {
	return &Timer{ic: ic}
}

// Reset zeros DIV, TIMA, TMA, TAC and the internal cycle counter.
func (t *Timer) Reset() {
	t.cycle = 0
	t.div = 0
	t.tima = 0
	t.tma = 0
	t.tac = 0
}

// Step advances the internal cycle counter by one. The owning
// system calls it once per machine cycle (once per cpu.CPU.Step call),
// before stepping the CPU.
func (t *Timer) Step() {
	t.cycle++
	if t.cycle&0x3F == 0 {
		t.div++
	}
	if t.tac&tacEnable == 0 {
		return
	}
	m := tickMasks[t.tac&tacRateMask]
	if uint8(t.cycle)&m != 0 {
		return
	}
	t.tima++
	if t.tima == 0 {
		t.tima = t.tma
		t.ic.SignalTimer()
	}
}

// DIV returns the free-running divider register.
func (t *Timer) DIV() uint8 { return t.div }

// SetDIV zeros the divider, regardless of the value written, matching
// hardware behaviour where any write to DIV resets it.
func (t *Timer) SetDIV(uint8) { t.div = 0 }

// TIMA returns the programmable counter.
func (t *Timer) TIMA() uint8 { return t.tima }

// SetTIMA writes the programmable counter directly.
func (t *Timer) SetTIMA(v uint8) { t.tima = v }

// TMA returns the reload value used on TIMA overflow.
func (t *Timer) TMA() uint8 { return t.tma }

// SetTMA writes the reload value.
func (t *Timer) SetTMA(v uint8) { t.tma = v }

// TAC returns the control register, with the five unused upper bits forced
// to 1.
func (t *Timer) TAC() uint8 { return t.tac | 0xF8 }

// SetTAC writes the control register, masking to the three meaningful bits.
func (t *Timer) SetTAC(v uint8) { t.tac = v & 0x07 }
