package cpu

// ALU helpers. Each sets the flag register exactly as the hardware
// does for that operation; callers route [HL] operands through the
// bus before calling.

// addToA adds value to A: Z from the result, N=0, H is the carry out
// of bit 3, C the carry out of bit 7.
func (c *CPU) addToA(value uint8) {
	a := c.registers[RegA]
	result := a + value

	c.setFlagToCondition(FlagZ, result == 0)
	c.resetFlag(FlagN)
	c.setFlagToCondition(FlagH, (a&0xF)+(value&0xF) > 0xF)
	c.setFlagToCondition(FlagC, uint16(a)+uint16(value) > 0xFF)

	c.registers[RegA] = result
}

// adcToA adds value and the incoming carry to A; the carry bit
// participates in both the H and C computations.
func (c *CPU) adcToA(value uint8) {
	a := c.registers[RegA]
	carry := c.flagToBit(FlagC)
	result := a + value + carry

	c.setFlagToCondition(FlagZ, result == 0)
	c.resetFlag(FlagN)
	c.setFlagToCondition(FlagH, (a&0xF)+(value&0xF)+carry > 0xF)
	c.setFlagToCondition(FlagC, uint16(a)+uint16(value)+uint16(carry) > 0xFF)

	c.registers[RegA] = result
}

// subFromA subtracts value from A: N=1, H is the borrow from bit 4, C
// the borrow from bit 8.
func (c *CPU) subFromA(value uint8) {
	a := c.registers[RegA]
	result := a - value

	c.setFlagToCondition(FlagZ, result == 0)
	c.setFlag(FlagN)
	c.setFlagToCondition(FlagH, a&0xF < value&0xF)
	c.setFlagToCondition(FlagC, a < value)

	c.registers[RegA] = result
}

// sbcFromA subtracts value and the incoming carry from A.
func (c *CPU) sbcFromA(value uint8) {
	a := c.registers[RegA]
	carry := c.flagToBit(FlagC)
	result := a - value - carry

	c.setFlagToCondition(FlagZ, result == 0)
	c.setFlag(FlagN)
	c.setFlagToCondition(FlagH, int(a&0xF)-int(value&0xF)-int(carry) < 0)
	c.setFlagToCondition(FlagC, int(a)-int(value)-int(carry) < 0)

	c.registers[RegA] = result
}

// cpWithA is subFromA without the writeback.
func (c *CPU) cpWithA(value uint8) {
	a := c.registers[RegA]
	c.subFromA(value)
	c.registers[RegA] = a
}

func (c *CPU) andWithA(value uint8) {
	c.registers[RegA] &= value
	c.setFlagToCondition(FlagZ, c.registers[RegA] == 0)
	c.resetFlag(FlagN)
	c.setFlag(FlagH)
	c.resetFlag(FlagC)
}

func (c *CPU) orWithA(value uint8) {
	c.registers[RegA] |= value
	c.setFlagToCondition(FlagZ, c.registers[RegA] == 0)
	c.resetFlag(FlagN)
	c.resetFlag(FlagH)
	c.resetFlag(FlagC)
}

func (c *CPU) xorWithA(value uint8) {
	c.registers[RegA] ^= value
	c.setFlagToCondition(FlagZ, c.registers[RegA] == 0)
	c.resetFlag(FlagN)
	c.resetFlag(FlagH)
	c.resetFlag(FlagC)
}

// inc8 increments an 8-bit value; C is untouched.
func (c *CPU) inc8(value uint8) uint8 {
	result := value + 1
	c.setFlagToCondition(FlagZ, result == 0)
	c.resetFlag(FlagN)
	c.setFlagToCondition(FlagH, value&0xF == 0xF)
	return result
}

// dec8 decrements an 8-bit value; C is untouched.
func (c *CPU) dec8(value uint8) uint8 {
	result := value - 1
	c.setFlagToCondition(FlagZ, result == 0)
	c.setFlag(FlagN)
	c.setFlagToCondition(FlagH, value&0xF == 0)
	return result
}

// addToHL adds a 16-bit register to HL: Z untouched, N=0, H the carry
// out of bit 11, C the carry out of bit 15.
func (c *CPU) addToHL(value uint16) {
	hl := c.GetReg16(RegHL)
	result := hl + value

	c.resetFlag(FlagN)
	c.setFlagToCondition(FlagH, (hl&0xFFF)+(value&0xFFF) > 0xFFF)
	c.setFlagToCondition(FlagC, uint32(hl)+uint32(value) > 0xFFFF)

	c.SetReg16(RegHL, result)
}

// addSPOffset computes SP plus a signed 8-bit offset. H and C come
// from unsigned arithmetic on the low byte: H is the carry out of bit
// 3, C the carry out of bit 7; Z and N are cleared.
func (c *CPU) addSPOffset(offset uint8) uint16 {
	sp := c.sp
	result := sp + uint16(int8(offset))

	c.resetFlag(FlagZ)
	c.resetFlag(FlagN)
	c.setFlagToCondition(FlagH, (sp&0xF)+(uint16(offset)&0xF) > 0xF)
	c.setFlagToCondition(FlagC, (sp&0xFF)+uint16(offset) > 0xFF)

	return result
}

// Rotations through the accumulator-only forms clear Z; the CB forms
// compute Z from the result (zSet true).

func (c *CPU) rlc(value uint8, zSet bool) uint8 {
	result := value<<1 | value>>7
	c.setRotateFlags(result, value&0x80 != 0, zSet)
	return result
}

func (c *CPU) rl(value uint8, zSet bool) uint8 {
	result := value<<1 | c.flagToBit(FlagC)
	c.setRotateFlags(result, value&0x80 != 0, zSet)
	return result
}

func (c *CPU) rrc(value uint8, zSet bool) uint8 {
	result := value>>1 | value<<7
	c.setRotateFlags(result, value&0x01 != 0, zSet)
	return result
}

func (c *CPU) rr(value uint8, zSet bool) uint8 {
	result := value>>1 | c.flagToBit(FlagC)<<7
	c.setRotateFlags(result, value&0x01 != 0, zSet)
	return result
}

func (c *CPU) sla(value uint8) uint8 {
	result := value << 1
	c.setRotateFlags(result, value&0x80 != 0, true)
	return result
}

func (c *CPU) sra(value uint8) uint8 {
	result := value>>1 | value&0x80
	c.setRotateFlags(result, value&0x01 != 0, true)
	return result
}

func (c *CPU) srl(value uint8) uint8 {
	result := value >> 1
	c.setRotateFlags(result, value&0x01 != 0, true)
	return result
}

func (c *CPU) swap(value uint8) uint8 {
	result := value<<4 | value>>4
	c.setRotateFlags(result, false, true)
	return result
}

func (c *CPU) setRotateFlags(result uint8, carry, zSet bool) {
	c.setFlagToCondition(FlagZ, zSet && result == 0)
	c.resetFlag(FlagN)
	c.resetFlag(FlagH)
	c.setFlagToCondition(FlagC, carry)
}

// bitTest sets Z to the complement of the tested bit; C is untouched.
func (c *CPU) bitTest(index int, value uint8) {
	c.setFlagToCondition(FlagZ, value&(1<<index) == 0)
	c.resetFlag(FlagN)
	c.setFlag(FlagH)
}

// daa adjusts A after a BCD add or subtract, driven by N, H, C and the
// nibbles of A. C is never cleared once set; H always clears.
func (c *CPU) daa() {
	a := c.registers[RegA]
	if c.isSetFlag(FlagN) {
		if c.isSetFlag(FlagC) {
			a -= 0x60
		}
		if c.isSetFlag(FlagH) {
			a -= 0x06
		}
	} else {
		if c.isSetFlag(FlagC) || c.registers[RegA] > 0x99 {
			a += 0x60
			c.setFlag(FlagC)
		}
		if c.isSetFlag(FlagH) || c.registers[RegA]&0xF > 0x9 {
			a += 0x06
		}
	}

	c.setFlagToCondition(FlagZ, a == 0)
	c.resetFlag(FlagH)
	c.registers[RegA] = a
}
