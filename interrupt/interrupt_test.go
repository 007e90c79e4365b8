package interrupt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIERoundTrip(t *testing.T) {
	var c Controller
	for _, v := range []uint8{0x00, 0xFF, 0x15, 0xE0} {
		c.SetIE(v)
		assert.Equal(t, v&0x1F, c.IE())
	}
}

func TestIFRoundTrip(t *testing.T) {
	var c Controller
	for _, v := range []uint8{0x00, 0xFF, 0x15, 0xE0} {
		c.SetIF(v)
		assert.Equal(t, (v&0x1F)|0xE0, c.IF())
	}
}

func TestPendingRequiresBothIEAndIF(t *testing.T) {
	var c Controller
	assert.False(t, c.Pending())
	c.SetIF(VBlank)
	assert.False(t, c.Pending())
	c.SetIE(VBlank)
	assert.True(t, c.Pending())
}

func TestAcceptClearsLowestPendingBitAndReturnsItsVector(t *testing.T) {
	var c Controller
	c.SetIE(Timer | Joypad)
	c.SetIF(Timer | Joypad)

	vec := c.Accept()
	assert.Equal(t, uint16(0x50), vec) // Timer is bit 2
	assert.Equal(t, Joypad, c.IF()&0x1F)

	vec = c.Accept()
	assert.Equal(t, uint16(0x60), vec) // Joypad is bit 4
	assert.False(t, c.Pending())
}

func TestAcceptPicksLowestBitAmongAllFive(t *testing.T) {
	cases := []struct {
		bit uint8
		vec uint16
	}{
		{VBlank, 0x40},
		{LCD, 0x48},
		{Timer, 0x50},
		{Serial, 0x58},
		{Joypad, 0x60},
	}
	for _, c := range cases {
		var ctrl Controller
		ctrl.SetIE(0x1F)
		ctrl.SetIF(0x1F &^ (c.bit - 1)) // c.bit and every higher bit
		assert.Equal(t, c.vec, ctrl.Accept())
	}
}

func TestAcceptPanicsWhenNothingPending(t *testing.T) {
	var c Controller
	assert.Panics(t, func() { c.Accept() })
}

func TestSignalHelpersSetTheirBit(t *testing.T) {
	var c Controller
	c.SignalVBlank()
	c.SignalLCD()
	c.SignalTimer()
	c.SignalSerial()
	c.SignalJoypad()
	assert.Equal(t, uint8(0x1F), c.IF()&0x1F)
}
