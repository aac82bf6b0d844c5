package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valerio/go-dmg/dmg/addr"
)

func TestROMWritesIgnored(t *testing.T) {
	m := New()
	m.Poke(0x0100, 0x42)

	m.Write(0x0100, 0xAA)

	assert.Equal(t, uint8(0x42), m.Read(0x0100))
}

func TestWorkRAMReadWrite(t *testing.T) {
	m := New()
	m.Write(0xC000, 0xAA)
	assert.Equal(t, uint8(0xAA), m.Read(0xC000))
}

func TestExternalRAMReadWrite(t *testing.T) {
	m := New()
	m.Write(0xA000, 0x55)
	assert.Equal(t, uint8(0x55), m.Read(0xA000))
}

func TestEchoRAMMirrorsWorkRAM(t *testing.T) {
	m := New()

	m.Write(0xC123, 0xAA)
	assert.Equal(t, uint8(0xAA), m.Read(0xE123), "echo read returns work RAM")

	m.Write(0xE123, 0x55)
	assert.Equal(t, uint8(0x55), m.Read(0xC123), "echo write lands in work RAM")
}

func TestVRAMGatedDuringDrawing(t *testing.T) {
	m := New()
	m.Poke(addr.LCDC, 0x80)
	m.Poke(0x8000, 0x42)

	for mode := uint8(0); mode <= 3; mode++ {
		m.Poke(addr.STAT, mode)
		if mode == ppuModeDrawing {
			assert.Equal(t, uint8(0xFF), m.Read(0x8000), "mode %d", mode)
			m.Write(0x8000, 0xAA)
			assert.Equal(t, uint8(0x42), m.Peek(0x8000), "write dropped in mode %d", mode)
		} else {
			assert.Equalf(t, uint8(0x42), m.Read(0x8000), "mode %d", mode)
			m.Write(0x8000, 0x42)
		}
	}
}

func TestVRAMOpenWhenLCDDisabled(t *testing.T) {
	m := New()
	m.Poke(addr.LCDC, 0x00)
	m.Poke(addr.STAT, ppuModeDrawing)

	m.Write(0x8000, 0xAA)
	assert.Equal(t, uint8(0xAA), m.Read(0x8000))
}

func TestOAMGatedDuringScanAndDrawing(t *testing.T) {
	m := New()
	m.Poke(addr.LCDC, 0x80)
	m.Poke(0xFE00, 0x42)

	for mode := uint8(0); mode <= 3; mode++ {
		m.Poke(addr.STAT, mode)
		blocked := mode == ppuModeOAMScan || mode == ppuModeDrawing
		if blocked {
			assert.Equalf(t, uint8(0xFF), m.Read(0xFE00), "mode %d", mode)
			m.Write(0xFE00, 0xAA)
			assert.Equal(t, uint8(0x42), m.Peek(0xFE00))
		} else {
			assert.Equalf(t, uint8(0x42), m.Read(0xFE00), "mode %d", mode)
		}
	}
}

func TestProhibitedRegion(t *testing.T) {
	m := New()
	assert.Equal(t, uint8(0xFF), m.Read(0xFEA0))
	assert.Equal(t, uint8(0xFF), m.Read(0xFEFF))
	m.Write(0xFEA0, 0x42)
	assert.Equal(t, uint8(0xFF), m.Read(0xFEA0))
}

func TestHighRAMAndIE(t *testing.T) {
	m := New()
	m.Write(0xFF80, 0x11)
	m.Write(0xFFFE, 0x22)
	m.Write(addr.IE, 0x1F)

	assert.Equal(t, uint8(0x11), m.Read(0xFF80))
	assert.Equal(t, uint8(0x22), m.Read(0xFFFE))
	assert.Equal(t, uint8(0x1F), m.Read(addr.IE))
}

func TestDIVReadAndReset(t *testing.T) {
	m := New()
	m.SetCounter(0xAB12)

	assert.Equal(t, uint8(0xAB), m.Read(addr.DIV))

	// Any store resets the whole 16-bit counter.
	m.Write(addr.DIV, 0x77)
	assert.Equal(t, uint16(0), m.Counter())
	assert.Equal(t, uint8(0), m.Read(addr.DIV))

	m.TickCounter(4)
	assert.Equal(t, uint16(4), m.Counter())
}

func TestDIVCountsTCycles(t *testing.T) {
	m := New()
	for i := 0; i < 0x40; i++ {
		m.TickCounter(4)
	}
	assert.Equal(t, uint8(1), m.DIV(), "DIV steps every 256 T-cycles")
}

func TestSTATLowBitsReadOnly(t *testing.T) {
	m := New()
	m.Poke(addr.STAT, 0x03)

	m.Write(addr.STAT, 0xFF)

	assert.Equal(t, uint8(0xFB), m.Read(addr.STAT), "upper bits latched, low bits kept")

	m.Write(addr.STAT, 0x00)
	assert.Equal(t, uint8(0x03), m.Read(addr.STAT))
}

func TestLYReadOnly(t *testing.T) {
	m := New()
	m.Poke(addr.LY, 42)

	m.Write(addr.LY, 0)

	assert.Equal(t, uint8(42), m.Read(addr.LY))
}

func TestIFUpperBitsReadAsOne(t *testing.T) {
	m := New()
	m.Write(addr.IF, 0x01)
	assert.Equal(t, uint8(0xE1), m.Read(addr.IF))
	assert.Equal(t, uint8(0x01), m.Peek(addr.IF))
}

func TestRequestInterrupt(t *testing.T) {
	m := New()
	m.RequestInterrupt(addr.VBlankInterrupt)
	m.RequestInterrupt(addr.JoypadInterrupt)
	assert.Equal(t, uint8(0x11), m.Peek(addr.IF))
}

func TestDMATransfer(t *testing.T) {
	m := New()
	for i := uint16(0); i < 160; i++ {
		m.Poke(0xC000+i, uint8(i))
	}

	m.Write(addr.DMA, 0xC0)
	assert.True(t, m.DMAActive())

	// One setup tick, then one byte per tick.
	m.TickDMA()
	assert.Equal(t, uint8(0x00), m.Peek(addr.OAMStart), "nothing copied during setup")

	for i := 0; i < 160; i++ {
		m.TickDMA()
	}
	assert.False(t, m.DMAActive())

	for i := uint16(0); i < 160; i++ {
		assert.Equal(t, uint8(i), m.Peek(addr.OAMStart+i))
	}
}

func TestDMAGatesCPUAccess(t *testing.T) {
	m := New()
	m.Poke(0xC000, 0x42)
	m.Write(0xFF80, 0x11)

	m.Write(addr.DMA, 0xC0)

	// Everything but high RAM reads 0xFF and drops writes.
	assert.Equal(t, uint8(0xFF), m.Read(0xC000))
	assert.Equal(t, uint8(0xFF), m.Read(0x8000))
	assert.Equal(t, uint8(0xFF), m.Read(addr.IE))
	assert.Equal(t, uint8(0x11), m.Read(0xFF80))

	m.Write(0xC000, 0xAA)
	assert.Equal(t, uint8(0x42), m.Peek(0xC000))

	// The engine itself still reads the source normally.
	m.TickDMA()
	m.TickDMA()
	assert.Equal(t, uint8(0x42), m.Peek(addr.OAMStart))
}

func TestDMARestartTakesNewPage(t *testing.T) {
	m := New()
	m.Poke(0xC000, 0x11)
	m.Poke(0xD000, 0x22)

	m.Write(addr.DMA, 0xC0)
	m.TickDMA() // setup
	m.TickDMA() // first byte from 0xC000

	// Rewriting the register mid-flight abandons the old transfer.
	m.Write(addr.DMA, 0xD0)
	m.TickDMA() // setup again
	m.TickDMA()
	assert.Equal(t, uint8(0x22), m.Peek(addr.OAMStart))

	ticks := 0
	for m.DMAActive() {
		m.TickDMA()
		ticks++
	}
	assert.Equal(t, 159, ticks)
}

func TestMBC1BankRegister(t *testing.T) {
	rom := make([]uint8, 4*romBankSize)
	rom[cartridgeTypeAddress] = uint8(CartMBC1)
	rom[romSizeAddress] = 0x01 // 4 banks
	for bank := 0; bank < 4; bank++ {
		rom[bank*romBankSize] = uint8(0xB0 + bank)
	}
	m := NewWithCartridge(NewCartridgeWithData(rom))

	// Bank 1 is mapped by default.
	assert.Equal(t, uint8(0xB0), m.Read(0x0000))
	assert.Equal(t, uint8(0xB1), m.Read(0x4000))

	m.Write(0x2000, 2)
	assert.Equal(t, uint8(0xB2), m.Read(0x4000))
	assert.Equal(t, uint8(0xB0), m.Read(0x0000), "bank 0 fixed")

	// Zero re-maps to one.
	m.Write(0x2000, 0)
	assert.Equal(t, uint8(0xB1), m.Read(0x4000))

	// Out-of-range banks wrap modulo the bank count.
	m.Write(0x2000, 6)
	assert.Equal(t, uint8(0xB2), m.Read(0x4000))

	// A multiple of the bank count lands on bank 1, never 0.
	m.Write(0x2000, 4)
	assert.Equal(t, uint8(0xB1), m.Read(0x4000))
	assert.Equal(t, 1, m.Cartridge().Bank())
}

func TestROMOnlyIgnoresBankWrites(t *testing.T) {
	rom := make([]uint8, 2*romBankSize)
	rom[romBankSize] = 0xB1
	m := NewWithCartridge(NewCartridgeWithData(rom))

	m.Write(0x2000, 5)

	assert.Equal(t, 1, m.Cartridge().Bank())
	assert.Equal(t, uint8(0xB1), m.Read(0x4000))
}

func TestCartridgeHeaderMetadata(t *testing.T) {
	rom := make([]uint8, 4*romBankSize)
	rom[cartridgeTypeAddress] = uint8(CartMBC1RAMBattery)
	rom[romSizeAddress] = 0x01
	cart := NewCartridgeWithData(rom)

	assert.Equal(t, CartMBC1RAMBattery, cart.Type())
	assert.Equal(t, 4, cart.BankCount())
}
