// Package dmg ties the CPU, PPU and memory map into one machine value
// and drives them in lockstep: every call to MCycle runs one CPU
// machine cycle, one OAM DMA tick, four PPU T-cycles and four system
// counter ticks.
package dmg

import (
	"log/slog"
	"os"

	"github.com/valerio/go-dmg/dmg/addr"
	"github.com/valerio/go-dmg/dmg/cpu"
	"github.com/valerio/go-dmg/dmg/memory"
	"github.com/valerio/go-dmg/dmg/video"
)

// MCyclesPerFrame is the number of machine cycles in one 70224 T-cycle
// frame.
const MCyclesPerFrame = 70224 / 4

// Machine owns all emulator state. The cartridge keeps its own copy of
// the ROM bytes, read-only for the machine's whole lifetime.
type Machine struct {
	cpu *cpu.CPU
	ppu *video.PPU
	mmu *memory.MMU

	frameCount uint64
}

// New creates a machine with no cartridge inserted.
func New() *Machine {
	return NewWithCartridge(memory.NewCartridge())
}

// NewWithROM creates a machine for the given ROM image.
func NewWithROM(rom []uint8) *Machine {
	return NewWithCartridge(memory.NewCartridgeWithData(rom))
}

// NewWithFile creates a machine and loads the ROM file into it.
func NewWithFile(path string) (*Machine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("loaded ROM", "path", path, "size", len(data))
	return NewWithROM(data), nil
}

// NewWithCartridge creates a machine around the cartridge and
// establishes the post-boot state.
func NewWithCartridge(cart *memory.Cartridge) *Machine {
	mmu := memory.NewWithCartridge(cart)
	m := &Machine{
		cpu: cpu.New(mmu),
		ppu: video.New(mmu),
		mmu: mmu,
	}
	m.reset()
	return m
}

// reset puts the machine in the state the boot ROM leaves behind:
// registers and stack set up, PC at the cartridge entry point with the
// first opcode already in IR.
func (m *Machine) reset() {
	c := m.cpu
	c.SetReg8(cpu.RegA, 0x01)
	c.SetFlags(uint8(cpu.FlagZ))
	c.SetReg8(cpu.RegB, 0x00)
	c.SetReg8(cpu.RegC, 0x13)
	c.SetReg8(cpu.RegD, 0x00)
	c.SetReg8(cpu.RegE, 0xD8)
	c.SetReg8(cpu.RegH, 0x01)
	c.SetReg8(cpu.RegL, 0x4D)
	c.SetSP(0xFFFE)
	c.SetPC(0x0100)
	c.Prefetch()

	m.mmu.Write(addr.P1, 0xCF)
	m.mmu.SetCounter(0xABCC)
}

// MCycle advances the whole machine by one M-cycle: the CPU first,
// then one DMA tick, four PPU T-cycles, and the system counter.
func (m *Machine) MCycle() {
	m.cpu.MCycle()
	m.mmu.TickDMA()
	m.ppu.TCycle()
	m.ppu.TCycle()
	m.ppu.TCycle()
	m.ppu.TCycle()
	m.mmu.TickCounter(4)
}

// Step runs machine cycles until the current instruction (or
// interrupt dispatch) completes and returns how many it took.
func (m *Machine) Step() int {
	cycles := 0
	for {
		cycles++
		m.MCycle()
		s := m.cpu.State()
		if s != cpu.Executing && s != cpu.Interrupting {
			return cycles
		}
	}
}

// RunFrame advances the machine by one frame's worth of cycles.
func (m *Machine) RunFrame() {
	for i := 0; i < MCyclesPerFrame; i++ {
		m.MCycle()
	}
	m.frameCount++
	if m.frameCount%600 == 0 {
		slog.Debug("frame completed", "frame", m.frameCount, "pc", m.cpu.PC())
	}
}

// FrameCount returns the number of completed frames.
func (m *Machine) FrameCount() uint64 {
	return m.frameCount
}

// CurrentFrame returns the PPU output buffer.
func (m *Machine) CurrentFrame() *video.FrameBuffer {
	return m.ppu.FrameBuffer()
}

// HandleKeyPress forwards a pressed host key to the joypad latch. The
// front-end must call this between MCycle calls; the core is
// single-threaded.
func (m *Machine) HandleKeyPress(key memory.JoypadKey) {
	m.mmu.HandleKeyPress(key)
}

// HandleKeyRelease forwards a released host key.
func (m *Machine) HandleKeyRelease(key memory.JoypadKey) {
	m.mmu.HandleKeyRelease(key)
}

// CPU returns the processor.
func (m *Machine) CPU() *cpu.CPU { return m.cpu }

// PPU returns the picture processing unit.
func (m *Machine) PPU() *video.PPU { return m.ppu }

// MMU returns the memory map.
func (m *Machine) MMU() *memory.MMU { return m.mmu }
