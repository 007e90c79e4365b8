package cpu

// Bit positions of the F register. Only the top nibble is ever non-zero; the
// bottom nibble always reads back as zero.
const (
	flagZ uint8 = 1 << 7
	flagN uint8 = 1 << 6
	flagH uint8 = 1 << 5
	flagC uint8 = 1 << 4
)

// Flags mirrors the F register as named booleans, the same shape gone's
// Cpu.Flags takes for the 6502 status byte, packed/unpacked through F
// instead of read directly off a bitfield.
type Flags struct {
	Z bool
	N bool
	H bool
	C bool
}

// pack collapses f into the byte representation stored in the F register.
func (f Flags) pack() uint8 {
	var b uint8
	if f.Z {
		b |= flagZ
	}
	if f.N {
		b |= flagN
	}
	if f.H {
		b |= flagH
	}
	if f.C {
		b |= flagC
	}
	return b
}

// unpackFlags recovers a Flags from a raw F register value, ignoring the
// always-zero low nibble.
func unpackFlags(b uint8) Flags {
	return Flags{
		Z: b&flagZ != 0,
		N: b&flagN != 0,
		H: b&flagH != 0,
		C: b&flagC != 0,
	}
}
