package cpu

import (
	"fmt"

	"github.com/valerio/go-dmg/dmg/bit"
	"github.com/valerio/go-dmg/dmg/isa"
)

// readPC reads the byte at PC and advances past it.
func (c *CPU) readPC() uint8 {
	v := c.bus.Read(c.pc)
	c.pc++
	return v
}

// r16MemAddr resolves the [r16mem] operand packed into IR and applies
// the HL post-increment/decrement.
func (c *CPU) r16MemAddr() uint16 {
	switch isa.R16Field(c.ir, c.instr.Shift) {
	case 0:
		return c.GetReg16(RegBC)
	case 1:
		return c.GetReg16(RegDE)
	case 2:
		a := c.GetReg16(RegHL)
		c.SetReg16(RegHL, a+1)
		return a
	default:
		a := c.GetReg16(RegHL)
		c.SetReg16(RegHL, a-1)
		return a
	}
}

// aluR8 runs an A-target ALU operation on the r8 operand in IR,
// spending an extra cycle when the operand is [HL].
func (c *CPU) aluR8(op func(uint8)) bool {
	r := isa.R8Field(c.ir, c.instr.Shift)
	if r == int(RegHLMem) {
		switch c.cycle {
		case 0:
			c.z = c.bus.Read(c.GetReg16(RegHL))
			return false
		default:
			op(c.z)
			c.fetch()
			return true
		}
	}
	op(c.registers[r])
	c.fetch()
	return true
}

// aluImm8 runs an A-target ALU operation on the immediate operand.
func (c *CPU) aluImm8(op func(uint8)) bool {
	switch c.cycle {
	case 0:
		c.z = c.readPC()
		return false
	default:
		op(c.z)
		c.fetch()
		return true
	}
}

// cbRMW runs a CB-bank read-modify-write on the r8 operand in IR.
func (c *CPU) cbRMW(op func(uint8) uint8) bool {
	r := isa.R8Field(c.ir, c.instr.Shift)
	if r == int(RegHLMem) {
		switch c.cycle {
		case 0:
			c.z = c.bus.Read(c.GetReg16(RegHL))
			return false
		case 1:
			c.bus.Write(c.GetReg16(RegHL), op(c.z))
			return false
		default:
			c.fetch()
			return true
		}
	}
	c.registers[r] = op(c.registers[r])
	c.fetch()
	return true
}

// exec runs one cycle of the instruction in IR and reports whether it
// finished. A finished instruction has already fetched its successor.
func (c *CPU) exec() bool {
	sh := c.instr.Shift

	switch c.instr.Kind {
	case isa.KindUnknown:
		// Unassigned opcodes execute as a one-cycle no-op.
		c.fetch()
		return true

	case isa.KindNop:
		c.fetch()
		return true

	case isa.KindLdR16Imm16:
		switch c.cycle {
		case 0:
			c.z = c.readPC()
		case 1:
			c.w = c.readPC()
		default:
			c.SetReg16LowHigh(Reg16(isa.R16Field(c.ir, sh)), c.z, c.w)
			c.fetch()
			return true
		}

	case isa.KindLdR16MemA:
		switch c.cycle {
		case 0:
			c.bus.Write(c.r16MemAddr(), c.registers[RegA])
		default:
			c.fetch()
			return true
		}

	case isa.KindLdAR16Mem:
		switch c.cycle {
		case 0:
			c.z = c.bus.Read(c.r16MemAddr())
		default:
			c.registers[RegA] = c.z
			c.fetch()
			return true
		}

	case isa.KindLdImm16MemSP:
		switch c.cycle {
		case 0:
			c.z = c.readPC()
		case 1:
			c.w = c.readPC()
		case 2:
			c.bus.Write(bit.Combine(c.w, c.z), bit.Low(c.sp))
		case 3:
			c.bus.Write(bit.Combine(c.w, c.z)+1, bit.High(c.sp))
		default:
			c.fetch()
			return true
		}

	case isa.KindIncR16:
		switch c.cycle {
		case 0:
			r := Reg16(isa.R16Field(c.ir, sh))
			c.SetReg16(r, c.GetReg16(r)+1)
		default:
			c.fetch()
			return true
		}

	case isa.KindDecR16:
		switch c.cycle {
		case 0:
			r := Reg16(isa.R16Field(c.ir, sh))
			c.SetReg16(r, c.GetReg16(r)-1)
		default:
			c.fetch()
			return true
		}

	case isa.KindAddHLR16:
		switch c.cycle {
		case 0:
			c.addToHL(c.GetReg16(Reg16(isa.R16Field(c.ir, sh))))
		default:
			c.fetch()
			return true
		}

	case isa.KindIncR8:
		r := isa.R8Field(c.ir, sh)
		if r == int(RegHLMem) {
			switch c.cycle {
			case 0:
				c.z = c.bus.Read(c.GetReg16(RegHL))
			case 1:
				c.bus.Write(c.GetReg16(RegHL), c.inc8(c.z))
			default:
				c.fetch()
				return true
			}
			break
		}
		c.registers[r] = c.inc8(c.registers[r])
		c.fetch()
		return true

	case isa.KindDecR8:
		r := isa.R8Field(c.ir, sh)
		if r == int(RegHLMem) {
			switch c.cycle {
			case 0:
				c.z = c.bus.Read(c.GetReg16(RegHL))
			case 1:
				c.bus.Write(c.GetReg16(RegHL), c.dec8(c.z))
			default:
				c.fetch()
				return true
			}
			break
		}
		c.registers[r] = c.dec8(c.registers[r])
		c.fetch()
		return true

	case isa.KindLdR8Imm8:
		r := isa.R8Field(c.ir, sh)
		switch c.cycle {
		case 0:
			c.z = c.readPC()
		case 1:
			if r == int(RegHLMem) {
				c.bus.Write(c.GetReg16(RegHL), c.z)
				break
			}
			c.registers[r] = c.z
			c.fetch()
			return true
		default:
			c.fetch()
			return true
		}

	case isa.KindRLCA:
		c.registers[RegA] = c.rlc(c.registers[RegA], false)
		c.fetch()
		return true

	case isa.KindRRCA:
		c.registers[RegA] = c.rrc(c.registers[RegA], false)
		c.fetch()
		return true

	case isa.KindRLA:
		c.registers[RegA] = c.rl(c.registers[RegA], false)
		c.fetch()
		return true

	case isa.KindRRA:
		c.registers[RegA] = c.rr(c.registers[RegA], false)
		c.fetch()
		return true

	case isa.KindDAA:
		c.daa()
		c.fetch()
		return true

	case isa.KindCPL:
		c.registers[RegA] = ^c.registers[RegA]
		c.setFlag(FlagN)
		c.setFlag(FlagH)
		c.fetch()
		return true

	case isa.KindSCF:
		c.resetFlag(FlagN)
		c.resetFlag(FlagH)
		c.setFlag(FlagC)
		c.fetch()
		return true

	case isa.KindCCF:
		c.resetFlag(FlagN)
		c.resetFlag(FlagH)
		c.setFlagToCondition(FlagC, !c.isSetFlag(FlagC))
		c.fetch()
		return true

	case isa.KindJRImm8:
		switch c.cycle {
		case 0:
			c.z = c.readPC()
		case 1:
			c.pc += uint16(int8(c.z))
		default:
			c.fetch()
			return true
		}

	case isa.KindJRCondImm8:
		switch c.cycle {
		case 0:
			c.z = c.readPC()
		case 1:
			if !c.condition(Cond(isa.CondField(c.ir, sh))) {
				c.fetch()
				return true
			}
			c.pc += uint16(int8(c.z))
		default:
			c.fetch()
			return true
		}

	case isa.KindStop:
		switch c.cycle {
		case 0:
			c.z = c.readPC()
		default:
			c.fetch()
			return true
		}

	case isa.KindHalt:
		if c.pending() != 0 {
			// An interrupt is already pending: do not halt. With IME
			// clear, PC is not advanced past the prefetched byte, so
			// it executes twice (the HALT bug).
			c.prefetch()
			c.state = Done
			return true
		}
		c.prefetch()
		c.state = Halted
		return true

	case isa.KindLdR8R8:
		src := isa.R8Field(c.ir, sh)
		dst := isa.R8DstField(c.ir, sh)
		switch {
		case src == int(RegHLMem):
			switch c.cycle {
			case 0:
				c.z = c.bus.Read(c.GetReg16(RegHL))
			default:
				c.registers[dst] = c.z
				c.fetch()
				return true
			}
		case dst == int(RegHLMem):
			switch c.cycle {
			case 0:
				c.bus.Write(c.GetReg16(RegHL), c.registers[src])
			default:
				c.fetch()
				return true
			}
		default:
			c.registers[dst] = c.registers[src]
			c.fetch()
			return true
		}

	case isa.KindAddAR8:
		return c.aluR8(c.addToA)
	case isa.KindAdcAR8:
		return c.aluR8(c.adcToA)
	case isa.KindSubAR8:
		return c.aluR8(c.subFromA)
	case isa.KindSbcAR8:
		return c.aluR8(c.sbcFromA)
	case isa.KindAndAR8:
		return c.aluR8(c.andWithA)
	case isa.KindXorAR8:
		return c.aluR8(c.xorWithA)
	case isa.KindOrAR8:
		return c.aluR8(c.orWithA)
	case isa.KindCpAR8:
		return c.aluR8(c.cpWithA)

	case isa.KindAddAImm8:
		return c.aluImm8(c.addToA)
	case isa.KindAdcAImm8:
		return c.aluImm8(c.adcToA)
	case isa.KindSubAImm8:
		return c.aluImm8(c.subFromA)
	case isa.KindSbcAImm8:
		return c.aluImm8(c.sbcFromA)
	case isa.KindAndAImm8:
		return c.aluImm8(c.andWithA)
	case isa.KindXorAImm8:
		return c.aluImm8(c.xorWithA)
	case isa.KindOrAImm8:
		return c.aluImm8(c.orWithA)
	case isa.KindCpAImm8:
		return c.aluImm8(c.cpWithA)

	case isa.KindRetCond:
		switch c.cycle {
		case 0:
			// internal condition check
		case 1:
			if !c.condition(Cond(isa.CondField(c.ir, sh))) {
				c.fetch()
				return true
			}
			c.z = c.bus.Read(c.sp)
			c.sp++
		case 2:
			c.w = c.bus.Read(c.sp)
			c.sp++
		case 3:
			c.pc = bit.Combine(c.w, c.z)
		default:
			c.fetch()
			return true
		}

	case isa.KindRet, isa.KindReti:
		switch c.cycle {
		case 0:
			c.z = c.bus.Read(c.sp)
			c.sp++
		case 1:
			c.w = c.bus.Read(c.sp)
			c.sp++
		case 2:
			c.pc = bit.Combine(c.w, c.z)
			if c.instr.Kind == isa.KindReti {
				// RETI enables interrupts with no EI-style delay.
				c.ime = true
			}
		default:
			c.fetch()
			return true
		}

	case isa.KindJpCondImm16:
		switch c.cycle {
		case 0:
			c.z = c.readPC()
		case 1:
			c.w = c.readPC()
		case 2:
			if !c.condition(Cond(isa.CondField(c.ir, sh))) {
				c.fetch()
				return true
			}
			c.pc = bit.Combine(c.w, c.z)
		default:
			c.fetch()
			return true
		}

	case isa.KindJpImm16:
		switch c.cycle {
		case 0:
			c.z = c.readPC()
		case 1:
			c.w = c.readPC()
		case 2:
			c.pc = bit.Combine(c.w, c.z)
		default:
			c.fetch()
			return true
		}

	case isa.KindJpHL:
		c.pc = c.GetReg16(RegHL)
		c.fetch()
		return true

	case isa.KindCallCondImm16, isa.KindCallImm16:
		switch c.cycle {
		case 0:
			c.z = c.readPC()
		case 1:
			c.w = c.readPC()
		case 2:
			if c.instr.Kind == isa.KindCallCondImm16 &&
				!c.condition(Cond(isa.CondField(c.ir, sh))) {
				c.fetch()
				return true
			}
			// internal delay
		case 3:
			c.sp--
			c.bus.Write(c.sp, bit.High(c.pc))
		case 4:
			c.sp--
			c.bus.Write(c.sp, bit.Low(c.pc))
			c.pc = bit.Combine(c.w, c.z)
		default:
			c.fetch()
			return true
		}

	case isa.KindRstTgt3:
		switch c.cycle {
		case 0:
			// internal delay
		case 1:
			c.sp--
			c.bus.Write(c.sp, bit.High(c.pc))
		case 2:
			c.sp--
			c.bus.Write(c.sp, bit.Low(c.pc))
			c.pc = uint16(isa.Tgt3Field(c.ir, sh)) * 8
		default:
			c.fetch()
			return true
		}

	case isa.KindPopR16:
		switch c.cycle {
		case 0:
			c.z = c.bus.Read(c.sp)
			c.sp++
		case 1:
			c.w = c.bus.Read(c.sp)
			c.sp++
		default:
			r := Reg16(isa.R16Field(c.ir, sh))
			if r == RegSP {
				r = RegAF
			}
			c.SetReg16LowHigh(r, c.z, c.w)
			c.fetch()
			return true
		}

	case isa.KindPushR16:
		r := Reg16(isa.R16Field(c.ir, sh))
		if r == RegSP {
			r = RegAF
		}
		switch c.cycle {
		case 0:
			// internal delay
		case 1:
			c.sp--
			c.bus.Write(c.sp, bit.High(c.GetReg16(r)))
		case 2:
			c.sp--
			c.bus.Write(c.sp, bit.Low(c.GetReg16(r)))
		default:
			c.fetch()
			return true
		}

	case isa.KindLdhCMemA:
		switch c.cycle {
		case 0:
			c.bus.Write(0xFF00+uint16(c.registers[RegC]), c.registers[RegA])
		default:
			c.fetch()
			return true
		}

	case isa.KindLdhACMem:
		switch c.cycle {
		case 0:
			c.z = c.bus.Read(0xFF00 + uint16(c.registers[RegC]))
		default:
			c.registers[RegA] = c.z
			c.fetch()
			return true
		}

	case isa.KindLdhImm8MemA:
		switch c.cycle {
		case 0:
			c.z = c.readPC()
		case 1:
			c.bus.Write(0xFF00+uint16(c.z), c.registers[RegA])
		default:
			c.fetch()
			return true
		}

	case isa.KindLdhAImm8Mem:
		switch c.cycle {
		case 0:
			c.z = c.readPC()
		case 1:
			c.z = c.bus.Read(0xFF00 + uint16(c.z))
		default:
			c.registers[RegA] = c.z
			c.fetch()
			return true
		}

	case isa.KindLdImm16MemA:
		switch c.cycle {
		case 0:
			c.z = c.readPC()
		case 1:
			c.w = c.readPC()
		case 2:
			c.bus.Write(bit.Combine(c.w, c.z), c.registers[RegA])
		default:
			c.fetch()
			return true
		}

	case isa.KindLdAImm16Mem:
		switch c.cycle {
		case 0:
			c.z = c.readPC()
		case 1:
			c.w = c.readPC()
		case 2:
			c.z = c.bus.Read(bit.Combine(c.w, c.z))
		default:
			c.registers[RegA] = c.z
			c.fetch()
			return true
		}

	case isa.KindAddSPImm8:
		switch c.cycle {
		case 0:
			c.z = c.readPC()
		case 1:
			// internal delay
		case 2:
			c.sp = c.addSPOffset(c.z)
		default:
			c.fetch()
			return true
		}

	case isa.KindLdHLSPPlusImm8:
		switch c.cycle {
		case 0:
			c.z = c.readPC()
		case 1:
			c.SetReg16(RegHL, c.addSPOffset(c.z))
		default:
			c.fetch()
			return true
		}

	case isa.KindLdSPHL:
		switch c.cycle {
		case 0:
			c.sp = c.GetReg16(RegHL)
		default:
			c.fetch()
			return true
		}

	case isa.KindDI:
		c.ime = false
		c.eiPend = false
		c.fetch()
		return true

	case isa.KindEI:
		// EI restarts the enable delay: IME stays false until the
		// M-cycle after the next instruction begins, even if another
		// EI just promoted it.
		c.ime = false
		c.eiPend = true
		c.fetch()
		return true

	case isa.KindRlcR8:
		return c.cbRMW(func(v uint8) uint8 { return c.rlc(v, true) })
	case isa.KindRrcR8:
		return c.cbRMW(func(v uint8) uint8 { return c.rrc(v, true) })
	case isa.KindRlR8:
		return c.cbRMW(func(v uint8) uint8 { return c.rl(v, true) })
	case isa.KindRrR8:
		return c.cbRMW(func(v uint8) uint8 { return c.rr(v, true) })
	case isa.KindSlaR8:
		return c.cbRMW(c.sla)
	case isa.KindSraR8:
		return c.cbRMW(c.sra)
	case isa.KindSwapR8:
		return c.cbRMW(c.swap)
	case isa.KindSrlR8:
		return c.cbRMW(c.srl)

	case isa.KindBitB3R8:
		index := isa.BitIndexField(c.ir, sh)
		r := isa.R8Field(c.ir, sh)
		if r == int(RegHLMem) {
			switch c.cycle {
			case 0:
				c.z = c.bus.Read(c.GetReg16(RegHL))
				return false
			default:
				c.bitTest(index, c.z)
				c.fetch()
				return true
			}
		}
		c.bitTest(index, c.registers[r])
		c.fetch()
		return true

	case isa.KindResB3R8:
		index := uint8(isa.BitIndexField(c.ir, sh))
		return c.cbRMW(func(v uint8) uint8 { return bit.Reset(index, v) })
	case isa.KindSetB3R8:
		index := uint8(isa.BitIndexField(c.ir, sh))
		return c.cbRMW(func(v uint8) uint8 { return bit.Set(index, v) })

	default:
		panic(fmt.Sprintf("unhandled instruction kind: %d (%s)", c.instr.Kind, c.instr.Mnemonic))
	}

	return false
}
