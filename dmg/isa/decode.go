package isa

// Decoded is the result of decoding the bytes at one address: the
// matching template plus the raw instruction bytes. For an unassigned
// opcode, or when the data runs out before the full instruction,
// Instr is Unknown and Size covers only the bytes actually seen
// (at most one).
type Decoded struct {
	Instr *Instruction
	Size  int
	Data  [3]uint8
}

// unknownAt builds the Unknown record, consuming at most one byte.
func unknownAt(data []uint8, offs int) Decoded {
	d := Decoded{Instr: Unknown}
	if offs < len(data) {
		d.Size = 1
		d.Data[0] = data[offs]
	}
	return d
}

// Decode decodes the instruction starting at data[offs].
//
// The first byte selects the bank: CBPrefixByte switches matching to
// the CB bank keyed on the following byte. Matching is first-template-
// wins over the masked opcode. An unrecognised CB byte consumes only
// the prefix, so the next decode sees the CB byte again.
func Decode(data []uint8, offs int) Decoded {
	if offs >= len(data) {
		return unknownAt(data, offs)
	}
	op := data[offs]
	cb := op == CBPrefixByte
	if cb {
		if offs+1 >= len(data) {
			return unknownAt(data, offs)
		}
		op = data[offs+1]
	}

	instr := Lookup(cb, op)
	if instr == Unknown {
		return unknownAt(data, offs)
	}

	size := instr.Size()
	if offs+size > len(data) {
		return unknownAt(data, offs)
	}

	d := Decoded{Instr: instr, Size: size}
	copy(d.Data[:], data[offs:offs+size])
	return d
}

// Opcode returns the opcode byte operand fields are packed into: the
// byte after the prefix for CB instructions, the first byte otherwise.
func (d Decoded) Opcode() uint8 {
	if d.Instr.CBPrefix {
		return d.Data[1]
	}
	return d.Data[0]
}

// imm returns the immediate bytes that follow the opcode.
func (d Decoded) imm(i int) uint8 {
	if d.Instr.CBPrefix {
		i++
	}
	return d.Data[1+i]
}

// Imm8 returns the 8-bit immediate operand.
func (d Decoded) Imm8() uint8 {
	return d.imm(0)
}

// Imm16 returns the little-endian 16-bit immediate operand.
func (d Decoded) Imm16() uint16 {
	return uint16(d.imm(1))<<8 | uint16(d.imm(0))
}
