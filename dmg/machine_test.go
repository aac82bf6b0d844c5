package dmg

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valerio/go-dmg/dmg/addr"
	"github.com/valerio/go-dmg/dmg/cpu"
	"github.com/valerio/go-dmg/dmg/memory"
	"github.com/valerio/go-dmg/dmg/video"
)

// romWith builds a minimal ROM image with the given bytes placed from
// the entry point at 0x0100.
func romWith(code ...uint8) []uint8 {
	rom := make([]uint8, 0x8000)
	copy(rom[0x0100:], code)
	return rom
}

func TestPostBootState(t *testing.T) {
	m := NewWithROM(romWith(0x00))
	c := m.CPU()

	assert.Equal(t, uint8(0x01), c.GetReg8(cpu.RegA))
	assert.Equal(t, uint8(cpu.FlagZ), c.Flags())
	assert.Equal(t, uint8(0x00), c.GetReg8(cpu.RegB))
	assert.Equal(t, uint8(0x13), c.GetReg8(cpu.RegC))
	assert.Equal(t, uint8(0x00), c.GetReg8(cpu.RegD))
	assert.Equal(t, uint8(0xD8), c.GetReg8(cpu.RegE))
	assert.Equal(t, uint8(0x01), c.GetReg8(cpu.RegH))
	assert.Equal(t, uint8(0x4D), c.GetReg8(cpu.RegL))
	assert.Equal(t, uint16(0xFFFE), c.SP())
	// IR is prefetched from the entry point, PC one past it.
	assert.Equal(t, uint16(0x0101), c.PC())
	assert.Equal(t, uint8(0x00), c.IR())
	assert.Equal(t, uint8(0xCF), m.MMU().Read(addr.P1))
}

func TestLdBCProgram(t *testing.T) {
	// LD BC, $0201 at the entry point.
	m := NewWithROM(romWith(0x01, 0x01, 0x02, 0x00))

	cycles := m.Step()

	assert.Equal(t, 3, cycles)
	c := m.CPU()
	assert.Equal(t, uint8(0x02), c.GetReg8(cpu.RegB))
	assert.Equal(t, uint8(0x01), c.GetReg8(cpu.RegC))
	assert.Equal(t, uint16(0x0104), c.PC())
	assert.Equal(t, uint8(0x00), c.IR())
}

func TestEINopDINop(t *testing.T) {
	// EI; NOP; DI; NOP
	m := NewWithROM(romWith(0xFB, 0x00, 0xF3, 0x00, 0x00))
	c := m.CPU()

	m.Step() // EI
	assert.False(t, c.IME())

	m.Step() // NOP
	assert.True(t, c.IME())

	m.Step() // DI
	assert.False(t, c.IME())

	m.Step() // NOP
	assert.False(t, c.IME())
}

func TestOAMDMAEndToEnd(t *testing.T) {
	m := NewWithROM(romWith(0x00))
	mmu := m.MMU()

	for i := uint16(0); i < 0xA0; i++ {
		mmu.Poke(0xC000+i, uint8(i+1))
	}
	mmu.Poke(0xFF80, 0x42)

	// Trigger the transfer the way a program would.
	mmu.Write(addr.DMA, 0xC0)
	assert.True(t, mmu.DMAActive())

	for i := 0; i < 161; i++ {
		assert.Equal(t, uint8(0xFF), mmu.Read(0xC000), "cycle %d: bus locked", i)
		assert.Equal(t, uint8(0x42), mmu.Read(0xFF80), "cycle %d: high RAM open", i)
		m.MCycle()
	}

	assert.False(t, mmu.DMAActive())
	for i := uint16(0); i < 0xA0; i++ {
		assert.Equal(t, uint8(i+1), mmu.Peek(addr.OAMStart+i))
	}
	assert.Equal(t, uint8(1), mmu.Read(0xC000), "bus released")
}

func TestDIVAdvancesWithMachine(t *testing.T) {
	m := NewWithROM(romWith(0x00))
	mmu := m.MMU()
	mmu.SetCounter(0)

	// 64 M-cycles = 256 T-cycles = one DIV step.
	for i := 0; i < 64; i++ {
		m.MCycle()
	}
	assert.Equal(t, uint8(1), mmu.Read(addr.DIV))

	// A store resets the whole counter.
	mmu.Write(addr.DIV, 0xAA)
	assert.Equal(t, uint8(0), mmu.Read(addr.DIV))
	assert.Equal(t, uint16(0), mmu.Counter())
}

func TestFrameTiming(t *testing.T) {
	m := NewWithROM(romWith(0x18, 0xFE)) // JR -2: spin forever
	m.MMU().Poke(addr.LCDC, 0x91)
	p := m.PPU()

	m.RunFrame()

	assert.Equal(t, 0, p.Line())
	assert.Equal(t, video.ModeOAMScan, p.Mode())
	assert.Equal(t, uint64(1), m.FrameCount())

	// The VBlank interrupt was requested during the frame.
	assert.Equal(t, uint8(1), m.MMU().Peek(addr.IF)&0x1)
}

func TestPPUInvariantsAcrossFrame(t *testing.T) {
	m := NewWithROM(romWith(0x18, 0xFE))
	m.MMU().Poke(addr.LCDC, 0x91)
	p := m.PPU()

	for i := 0; i < MCyclesPerFrame; i++ {
		m.MCycle()
		line := p.Line()
		assert.True(t, line >= 0 && line <= 153, "LY out of range: %d", line)
		switch p.Mode() {
		case video.ModeDrawing:
			assert.True(t, line <= 143, "drawing on line %d", line)
		case video.ModeVBlank:
			assert.True(t, line >= 144, "vblank on line %d", line)
		}
	}
}

func TestInterruptServicedThroughMachine(t *testing.T) {
	// Spin at the entry point with VBlank enabled; the PPU's VBlank
	// request must reach the handler at 0x40.
	rom := romWith(0xFB, 0x18, 0xFE) // EI; JR -2
	rom[0x40] = 0xD9                 // RETI
	m := NewWithROM(rom)
	m.MMU().Poke(addr.LCDC, 0x91)
	m.MMU().Write(addr.IE, 0x01)

	reached := false
	for i := 0; i < 2*MCyclesPerFrame; i++ {
		m.MCycle()
		if m.CPU().PC() == 0x41 {
			reached = true
			break
		}
	}
	assert.True(t, reached, "VBlank handler never entered")
}

func TestJoypadThroughMachine(t *testing.T) {
	m := NewWithROM(romWith(0x00))
	mmu := m.MMU()

	m.HandleKeyPress(memory.JoypadA)
	mmu.Write(addr.P1, 0x10)
	assert.Equal(t, uint8(0xDE), mmu.Read(addr.P1))

	m.HandleKeyRelease(memory.JoypadA)
	assert.Equal(t, uint8(0xDF), mmu.Read(addr.P1))
}
