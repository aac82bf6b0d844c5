// Package cpu implements the SM83 core as an M-cycle interpreter: each
// call to MCycle advances the CPU by exactly one machine cycle. At the
// start of a cycle in the Done state, IR already holds the prefetched
// next opcode and PC points one past it; an instruction's final cycle
// fetches its successor.
package cpu

import (
	"github.com/valerio/go-dmg/dmg/addr"
	"github.com/valerio/go-dmg/dmg/bit"
	"github.com/valerio/go-dmg/dmg/isa"
	"github.com/valerio/go-dmg/dmg/memory"
)

// Flag is one of the 4 flags in the flag register (low byte of AF).
// The low nibble of the register does not exist: it reads as zero and
// ignores writes.
type Flag uint8

const (
	FlagZ Flag = 0x80
	FlagN Flag = 0x40
	FlagH Flag = 0x20
	FlagC Flag = 0x10
)

// State is the CPU's per-cycle scheduling state.
type State int

const (
	// Done means an instruction just finished and IR holds the
	// prefetched opcode for the next one.
	Done State = iota
	// Executing means an instruction is in the middle of its cycles.
	Executing
	// Interrupting means the CPU is in the 5-cycle interrupt dispatch.
	Interrupting
	// Halted means the CPU is stopped until an interrupt is pending.
	Halted
)

func (s State) String() string {
	switch s {
	case Done:
		return "DONE"
	case Executing:
		return "EXECUTING"
	case Interrupting:
		return "INTERRUPTING"
	case Halted:
		return "HALTED"
	}
	return "UNKNOWN"
}

// CPU holds the SM83 register file and instruction sequencing state.
type CPU struct {
	bus *memory.MMU

	// The 8-bit registers, indexed by Reg8. The RegHLMem slot is
	// always 0 since it is not an actual register.
	registers [8]uint8
	flags     uint8
	ir        uint8
	sp, pc    uint16

	ime    bool
	eiPend bool
	state  State

	// cbBank selects the instruction bank IR decodes against.
	cbBank bool
	// instr is the template for the opcode in IR.
	instr *isa.Instruction
	// cycle counts M-cycles spent so far on the current instruction.
	cycle int
	// Scratch space used to stage bytes between cycles of multi-cycle
	// instructions.
	w, z uint8
	// irqBit is the interrupt bit index latched when dispatch starts.
	irqBit uint8
}

// New returns a CPU on the given bus, with all state zero. The machine
// is responsible for loading the post-boot register values.
func New(bus *memory.MMU) *CPU {
	c := &CPU{bus: bus}
	c.instr = isa.Lookup(false, c.ir)
	return c
}

// Prefetch loads IR from PC and advances PC past it, establishing the
// Done-state invariant. Called once at power-on.
func (c *CPU) Prefetch() {
	c.fetch()
}

// MCycle advances the CPU by one machine cycle.
func (c *CPU) MCycle() {
	if c.state == Halted {
		if c.pending() != 0 {
			// Waking costs the cycle that completes the fetch the
			// HALT started.
			c.fetch()
		}
		return
	}

	if c.state == Done {
		if c.ime && c.pending() != 0 {
			c.state = Interrupting
			c.cycle = 0
			c.irqBit = lowestBit(c.pending())
		} else {
			// EI's enable lands here: after the dispatch check, so
			// the instruction following EI always runs first.
			if c.eiPend {
				c.ime = true
				c.eiPend = false
			}
			c.state = Executing
			c.cycle = 0
		}
	}

	if c.state == Interrupting {
		c.interruptCycle()
		return
	}

	if !c.cbBank && c.ir == isa.CBPrefixByte {
		// The prefix costs one cycle: fetch the real opcode and
		// switch banks. State never returns to Done in between, so
		// no interrupt can split a CB instruction.
		c.ir = c.bus.Read(c.pc)
		c.pc++
		c.cbBank = true
		c.instr = isa.Lookup(true, c.ir)
		c.cycle = 0
		return
	}

	if !c.exec() {
		c.cycle++
	}
}

// fetch loads the next opcode into IR, advances PC past it and returns
// the CPU to the Done state. Every instruction's final cycle ends
// here.
func (c *CPU) fetch() {
	c.ir = c.bus.Read(c.pc)
	c.pc++
	c.cbBank = false
	c.instr = isa.Lookup(false, c.ir)
	c.cycle = 0
	c.state = Done
}

// prefetch loads IR without advancing PC. HALT uses it so that waking
// (or the HALT bug) can decide whether the byte is consumed.
func (c *CPU) prefetch() {
	c.ir = c.bus.Read(c.pc)
	c.cbBank = false
	c.instr = isa.Lookup(false, c.ir)
	c.cycle = 0
}

// pending returns the set of interrupts that are both requested and
// enabled. The registers are read directly, not over the gated bus:
// the interrupt logic is wired to IF/IE, it does not perform bus
// transactions, so an in-flight OAM DMA must not mask it.
func (c *CPU) pending() uint8 {
	return c.bus.Peek(addr.IE) & c.bus.Peek(addr.IF) & 0x1F
}

// lowestBit returns the index of the lowest set bit; interrupt
// priority runs bit 0 to bit 4.
func lowestBit(mask uint8) uint8 {
	for i := uint8(0); i < 8; i++ {
		if mask&(1<<i) != 0 {
			return i
		}
	}
	return 0
}

// interruptCycle runs one cycle of the 5-cycle dispatch: two internal
// delay cycles, push PC-1 high then low, then jump to the vector and
// refetch. PC-1 is pushed because the opcode already prefetched into
// IR must be re-executed after the handler returns.
func (c *CPU) interruptCycle() {
	switch c.cycle {
	case 0, 1:
		// internal delay
	case 2:
		c.sp--
		c.bus.Write(c.sp, bit.High(c.pc-1))
	case 3:
		c.sp--
		c.bus.Write(c.sp, bit.Low(c.pc-1))
	case 4:
		flags := c.bus.Peek(addr.IF)
		c.bus.Poke(addr.IF, bit.Reset(c.irqBit, flags))
		c.ime = false
		c.pc = addr.Interrupt(1 << c.irqBit).Vector()
		c.fetch()
		return
	}
	c.cycle++
}

// Flag accessors.

func (c *CPU) setFlag(flag Flag) {
	c.flags |= uint8(flag)
}

func (c *CPU) resetFlag(flag Flag) {
	c.flags &^= uint8(flag)
}

func (c *CPU) setFlagToCondition(flag Flag, cond bool) {
	if cond {
		c.setFlag(flag)
	} else {
		c.resetFlag(flag)
	}
}

func (c *CPU) isSetFlag(flag Flag) bool {
	return c.flags&uint8(flag) != 0
}

func (c *CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}
	return 0
}

// condition evaluates a packed branch condition.
func (c *CPU) condition(cond Cond) bool {
	switch cond {
	case CondNZ:
		return !c.isSetFlag(FlagZ)
	case CondZ:
		return c.isSetFlag(FlagZ)
	case CondNC:
		return !c.isSetFlag(FlagC)
	case CondC:
		return c.isSetFlag(FlagC)
	}
	return false
}

// Accessors used by the machine, front-ends and tests.

// PC returns the program counter. In the Done state it points one past
// the opcode held in IR.
func (c *CPU) PC() uint16 { return c.pc }

// SP returns the stack pointer.
func (c *CPU) SP() uint16 { return c.sp }

// IR returns the prefetched opcode byte.
func (c *CPU) IR() uint8 { return c.ir }

// Flags returns the flag register; the low nibble is always zero.
func (c *CPU) Flags() uint8 { return c.flags }

// State returns the CPU scheduling state.
func (c *CPU) State() State { return c.state }

// IME reports whether interrupts are globally enabled.
func (c *CPU) IME() bool { return c.ime }

// EIPending reports whether an EI is waiting to take effect.
func (c *CPU) EIPending() bool { return c.eiPend }

// Cycle returns the number of cycles spent on the current instruction.
func (c *CPU) Cycle() int { return c.cycle }

// SetPC sets the program counter. The caller should follow with
// Prefetch to re-establish the IR invariant.
func (c *CPU) SetPC(pc uint16) { c.pc = pc }

// SetSP sets the stack pointer.
func (c *CPU) SetSP(sp uint16) { c.sp = sp }

// SetFlags sets the flag register; the low nibble is discarded.
func (c *CPU) SetFlags(f uint8) { c.flags = f & 0xF0 }

// SetIME sets the master interrupt enable.
func (c *CPU) SetIME(ime bool) { c.ime = ime }
