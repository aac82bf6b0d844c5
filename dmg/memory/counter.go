package memory

import "github.com/valerio/go-dmg/dmg/bit"

// The system counter is a 16-bit value incremented on every T-cycle.
// Its upper byte is the DIV register; a CPU store to DIV zeroes the
// whole counter, restarting the phase of everything clocked off it.

// TickCounter advances the system counter by the given number of
// T-cycles.
func (m *MMU) TickCounter(tcycles int) {
	m.counter += uint16(tcycles)
}

// Counter returns the current system counter value.
func (m *MMU) Counter() uint16 {
	return m.counter
}

// SetCounter seeds the counter, used when establishing the post-boot
// state.
func (m *MMU) SetCounter(value uint16) {
	m.counter = value
}

// DIV returns the visible divider register.
func (m *MMU) DIV() uint8 {
	return bit.High(m.counter)
}
