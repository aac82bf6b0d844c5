package memory

import "github.com/valerio/go-dmg/dmg/addr"

// OAM DMA timing: one setup M-cycle before the first byte lands, then
// one byte per M-cycle for 160 M-cycles.
const (
	dmaSetupMCycles = 1
	dmaCopyMCycles  = 160
)

// startDMA schedules a transfer from the page named by the DMA
// register into OAM. A write during an in-flight transfer abandons it
// and starts over with the new page.
func (m *MMU) startDMA() {
	m.dmaTicks = dmaSetupMCycles + dmaCopyMCycles
}

// DMAActive reports whether a transfer is in progress; while it is,
// Read and Write isolate the CPU from everything but high RAM.
func (m *MMU) DMAActive() bool {
	return m.dmaTicks > 0
}

// TickDMA advances the engine by one M-cycle, copying one byte once
// past the setup cycle. The engine's own accesses bypass the CPU
// gating.
func (m *MMU) TickDMA() {
	if m.dmaTicks <= 0 {
		return
	}
	if m.dmaTicks <= dmaCopyMCycles {
		offset := uint16(dmaCopyMCycles - m.dmaTicks)
		src := uint16(m.memory[addr.DMA])<<8 + offset
		m.memory[addr.OAMStart+offset] = m.Peek(src)
	}
	m.dmaTicks--
}
