// Package memory implements the 64 KiB memory map: region-aware reads
// and writes with the access rules the hardware enforces (read-only
// ROM, PPU-mode-gated VRAM/OAM, DMA-time CPU isolation, echo RAM, the
// joypad latch and the handful of registers with side effects), plus
// the OAM DMA engine and the DIV system counter.
package memory

import (
	"fmt"
	"log/slog"

	"github.com/valerio/go-dmg/dmg/addr"
	"github.com/valerio/go-dmg/dmg/bit"
)

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionIO
)

// PPU mode numbers as they appear in STAT bits 1-0. The MMU consults
// them for VRAM/OAM gating; the PPU owns writing them.
const (
	ppuModeHBlank  = 0
	ppuModeVBlank  = 1
	ppuModeOAMScan = 2
	ppuModeDrawing = 3
)

// MMU allows access to all memory mapped I/O and data/registers.
//
// Read and Write are the CPU's view of the bus and enforce every
// access restriction. Peek and Poke bypass the restrictions; they are
// the PPU's, the DMA engine's and the debugger's view.
type MMU struct {
	cart      *Cartridge
	memory    []uint8
	regionMap [256]memRegion

	joypad Joypad

	// dmaTicks counts down the remaining OAM DMA M-cycles, including
	// the setup cycle. Zero means no transfer.
	dmaTicks int

	// counter is the system counter, incremented every T-cycle. DIV
	// is its upper 8 bits.
	counter uint16
}

// New creates a memory unit with no cartridge loaded, equivalent to
// turning on the console with the slot empty.
func New() *MMU {
	return NewWithCartridge(NewCartridge())
}

// NewWithCartridge creates a memory unit with the cartridge inserted.
func NewWithCartridge(cart *Cartridge) *MMU {
	m := &MMU{
		cart:   cart,
		memory: make([]uint8, 0x10000),
	}
	m.joypad.init()
	m.joypad.requestInterrupt = func() { m.RequestInterrupt(addr.JoypadInterrupt) }
	m.initRegionMap()
	return m
}

func (m *MMU) initRegionMap() {
	for i := 0x00; i <= 0x7F; i++ {
		m.regionMap[i] = regionROM
	}
	for i := 0x80; i <= 0x9F; i++ {
		m.regionMap[i] = regionVRAM
	}
	for i := 0xA0; i <= 0xBF; i++ {
		m.regionMap[i] = regionExtRAM
	}
	for i := 0xC0; i <= 0xDF; i++ {
		m.regionMap[i] = regionWRAM
	}
	for i := 0xE0; i <= 0xFD; i++ {
		m.regionMap[i] = regionEcho
	}
	m.regionMap[0xFE] = regionOAM
	m.regionMap[0xFF] = regionIO
}

// Cartridge returns the inserted cartridge.
func (m *MMU) Cartridge() *Cartridge { return m.cart }

// ppuEnabled reports whether the LCD is on (LCDC bit 7).
func (m *MMU) ppuEnabled() bool {
	return bit.IsSet(7, m.memory[addr.LCDC])
}

// ppuMode returns the PPU mode currently latched in STAT bits 1-0.
func (m *MMU) ppuMode() uint8 {
	return m.memory[addr.STAT] & 0x3
}

// inHighRAM reports whether the address stays accessible during OAM
// DMA.
func inHighRAM(address uint16) bool {
	return address >= addr.HighRAMStart && address <= addr.HighRAMEnd
}

// RequestInterrupt sets the IF bit of the chosen interrupt.
func (m *MMU) RequestInterrupt(interrupt addr.Interrupt) {
	m.memory[addr.IF] |= uint8(interrupt)
}

// ReadBit reads the bit at the given index of a memory address.
func (m *MMU) ReadBit(index uint8, address uint16) bool {
	return bit.IsSet(index, m.Peek(address))
}

// Read is a CPU fetch from the bus.
func (m *MMU) Read(address uint16) uint8 {
	if m.DMAActive() && !inHighRAM(address) {
		// The DMA engine owns the bus; the CPU sees only high RAM.
		return 0xFF
	}

	switch m.regionMap[address>>8] {
	case regionROM:
		return m.cart.Read(address)
	case regionVRAM:
		if m.ppuEnabled() && m.ppuMode() == ppuModeDrawing {
			return 0xFF
		}
		return m.memory[address]
	case regionExtRAM, regionWRAM:
		return m.memory[address]
	case regionEcho:
		return m.memory[address-0x2000]
	case regionOAM:
		if address > addr.OAMEnd {
			// Prohibited area 0xFEA0-0xFEFF.
			return 0xFF
		}
		if m.ppuEnabled() && m.ppuMode() >= ppuModeOAMScan {
			return 0xFF
		}
		return m.memory[address]
	case regionIO:
		switch address {
		case addr.P1:
			return m.joypad.read()
		case addr.DIV:
			return bit.High(m.counter)
		case addr.IF:
			// The upper 3 bits are unwired and read as 1.
			return m.memory[address] | 0xE0
		}
		return m.memory[address]
	}
	panic(fmt.Sprintf("attempted read at unmapped address: 0x%04X", address))
}

// Write is a CPU store to the bus.
func (m *MMU) Write(address uint16, value uint8) {
	if m.DMAActive() && !inHighRAM(address) && address != addr.DMA {
		// Dropped, except that rewriting the DMA register restarts
		// the transfer.
		return
	}

	switch m.regionMap[address>>8] {
	case regionROM:
		m.cart.WriteRegister(address, value)
	case regionVRAM:
		if m.ppuEnabled() && m.ppuMode() == ppuModeDrawing {
			return
		}
		m.memory[address] = value
	case regionExtRAM, regionWRAM:
		m.memory[address] = value
	case regionEcho:
		m.memory[address-0x2000] = value
	case regionOAM:
		if address > addr.OAMEnd {
			return
		}
		if m.ppuEnabled() && m.ppuMode() >= ppuModeOAMScan {
			return
		}
		m.memory[address] = value
	case regionIO:
		switch address {
		case addr.P1:
			m.joypad.writeSelect(value)
		case addr.DIV:
			// Any store resets the whole 16-bit counter.
			m.counter = 0
		case addr.STAT:
			// Bits 2-0 (mode and LY=LYC) are owned by the PPU.
			m.memory[address] = value&0xF8 | m.memory[address]&0x07
		case addr.LY:
			// read-only
		case addr.DMA:
			m.memory[address] = value
			m.startDMA()
		case addr.IF:
			m.memory[address] = value & 0x1F
		default:
			m.memory[address] = value
		}
	default:
		panic(fmt.Sprintf("attempted write at unmapped address: 0x%04X", address))
	}
}

// Peek reads without any access gating: the PPU's and DMA engine's
// view, also used by the debugger and the CPU's interrupt wiring.
func (m *MMU) Peek(address uint16) uint8 {
	switch m.regionMap[address>>8] {
	case regionROM:
		return m.cart.Read(address)
	case regionEcho:
		return m.memory[address-0x2000]
	}
	switch address {
	case addr.P1:
		return m.joypad.read()
	case addr.DIV:
		return bit.High(m.counter)
	}
	return m.memory[address]
}

// Poke writes without any access gating or register side effects.
// Pokes into the ROM range mutate the cartridge bytes; that exists
// for tests and the debugger, not for the bus.
func (m *MMU) Poke(address uint16, value uint8) {
	switch m.regionMap[address>>8] {
	case regionROM:
		m.cart.poke(address, value)
	case regionEcho:
		m.memory[address-0x2000] = value
	default:
		m.memory[address] = value
	}
}

// HandleKeyPress records a pressed key and raises the joypad
// interrupt on the high-to-low transition.
func (m *MMU) HandleKeyPress(key JoypadKey) {
	m.joypad.press(key)
}

// HandleKeyRelease records a released key.
func (m *MMU) HandleKeyRelease(key JoypadKey) {
	m.joypad.release(key)
}

// LoadCartridge swaps in a cartridge. The running machine never calls
// it.
func (m *MMU) LoadCartridge(cart *Cartridge) {
	if m.DMAActive() {
		slog.Warn("cartridge swapped during OAM DMA")
	}
	m.cart = cart
}
