package isa

import (
	"fmt"
	"strings"

	"github.com/valerio/go-dmg/dmg/addr"
)

// Disasm is the human-readable form of one instruction.
type Disasm struct {
	// Full is the fixed-shape line: address, raw bytes, instruction.
	Full string
	// Instr is the instruction text alone.
	Instr string
	// Size is the number of bytes consumed.
	Size int
}

var r8Names = [8]string{"B", "C", "D", "E", "H", "L", "[HL]", "A"}
var r16Names = [4]string{"BC", "DE", "HL", "SP"}
var r16StkNames = [4]string{"BC", "DE", "HL", "AF"}
var r16MemNames = [4]string{"[BC]", "[DE]", "[HL+]", "[HL-]"}
var condNames = [4]string{"NZ", "Z", "NC", "C"}

// ioRegisterNames annotates high-page dereferences with the hardware
// register at that address.
var ioRegisterNames = map[uint16]string{
	addr.P1:   "JOYPAD",
	0xFF01:    "SERIAL_DATA",
	0xFF02:    "SERIAL_CONTROL",
	addr.DIV:  "DIV",
	0xFF05:    "TIMA",
	0xFF06:    "TMA",
	0xFF07:    "TAC",
	addr.IF:   "IF",
	addr.LCDC: "LCDC",
	addr.STAT: "STAT",
	addr.SCY:  "SCY",
	addr.SCX:  "SCX",
	addr.LY:   "LY",
	addr.LYC:  "LYC",
	addr.DMA:  "DMA",
	addr.BGP:  "BGP",
	addr.OBP0: "OBP0",
	addr.OBP1: "OBP1",
	addr.WY:   "WY",
	addr.WX:   "WX",
	addr.IE:   "IE",
}

// formatOperand renders a single operand of the decoded instruction.
// offs is the address of the instruction's opcode byte, used to
// resolve relative offsets to absolute targets.
func formatOperand(d Decoded, op Operand, offs uint16) string {
	opcode := d.Opcode()
	shift := d.Instr.Shift
	switch op {
	case OperandNone:
		return ""
	case OperandA:
		return "A"
	case OperandSP:
		return "SP"
	case OperandHL:
		return "HL"
	case OperandCMem:
		return "[C]"
	case OperandSPPlusImm8:
		return fmt.Sprintf("SP+%d", d.Imm8())
	case OperandR16:
		return r16Names[R16Field(opcode, shift)]
	case OperandR16Stk:
		return r16StkNames[R16Field(opcode, shift)]
	case OperandR16Mem:
		return r16MemNames[R16Field(opcode, shift)]
	case OperandR8:
		return r8Names[R8Field(opcode, shift)]
	case OperandR8Dst:
		return r8Names[R8DstField(opcode, shift)]
	case OperandCond:
		return condNames[CondField(opcode, shift)]
	case OperandTgt3:
		return fmt.Sprintf("%d", Tgt3Field(opcode, shift)*8)
	case OperandBitIndex:
		return fmt.Sprintf("%d", BitIndexField(opcode, shift))
	case OperandImm8:
		return fmt.Sprintf("%d ($%02X)", d.Imm8(), d.Imm8())
	case OperandImm8Offset:
		// The offset is relative to the byte after the immediate.
		target := offs + uint16(d.Size) + uint16(int8(d.Imm8()))
		return fmt.Sprintf("%+d ($%04X)", int8(d.Imm8()), target)
	case OperandImm8Mem:
		target := 0xFF00 + uint16(d.Imm8())
		if name, ok := ioRegisterNames[target]; ok {
			return fmt.Sprintf("[$%04X (%s)]", target, name)
		}
		return fmt.Sprintf("[$%04X]", target)
	case OperandImm16:
		return fmt.Sprintf("%d ($%04X)", d.Imm16(), d.Imm16())
	case OperandImm16Mem:
		return fmt.Sprintf("[$%04X]", d.Imm16())
	}
	panic(fmt.Sprintf("impossible operand: %d", op))
}

// instrString renders "MNEMONIC op1, op2" with absent operands elided.
func instrString(d Decoded, offs uint16) string {
	in := d.Instr
	if in.Operand1 == OperandNone {
		return in.Mnemonic
	}
	op1 := formatOperand(d, in.Operand1, offs)
	if in.Operand2 == OperandNone {
		return fmt.Sprintf("%s %s", in.Mnemonic, op1)
	}
	op2 := formatOperand(d, in.Operand2, offs)
	return fmt.Sprintf("%s %s, %s", in.Mnemonic, op1, op2)
}

// Disassemble returns the human-readable version of the instruction at
// data[offs].
func Disassemble(data []uint8, offs uint16) Disasm {
	d := Decode(data, int(offs))
	instr := instrString(d, offs)

	raw := make([]string, 0, 3)
	for i := 0; i < d.Size; i++ {
		raw = append(raw, fmt.Sprintf("%02X", d.Data[i]))
	}
	full := fmt.Sprintf("%04X: %-8s\t\t%s", offs, strings.Join(raw, " "), instr)

	return Disasm{Full: full, Instr: instr, Size: d.Size}
}
