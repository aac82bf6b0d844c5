// Package isa describes the SM83 instruction set: one template per
// instruction shape, a mask-based decoder over the two opcode banks,
// and a disassembler. The templates are shared read-only data; the CPU
// dispatches on Kind and the disassembler on the operand descriptors.
package isa

import "fmt"

// Operand identifies how an instruction argument is encoded.
type Operand uint8

const (
	OperandNone Operand = iota

	// Register operands.
	OperandA
	OperandSP
	OperandHL
	OperandCMem // [C]
	OperandSPPlusImm8

	// Operands encoded into the first byte of the instruction.
	OperandR16    // 2 bits
	OperandR16Stk // 2 bits
	OperandR16Mem // 2 bits
	OperandR8     // 3 bits
	OperandCond   // 2 bits
	OperandTgt3   // 3 bits

	// OperandBitIndex and OperandR8Dst handle the special cases
	// for the small number of instructions that encode 2 arguments
	// into the opcode. Both of them read the opcode at shift+3.
	// The other argument is at shift.
	OperandBitIndex // 3 bits, always at shift+3
	OperandR8Dst    // 3 bits, always at shift+3

	// Immediate values following the first byte of the instruction.
	OperandImm8
	OperandImm8Offset // 2s complement signed address offset
	OperandImm8Mem    // [imm8]
	OperandImm16
	OperandImm16Mem // [imm16]
)

// Kind tags an instruction template with its execution behavior.
// The CPU holds one state machine per kind, indexed by its cycle
// counter.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNop
	KindLdR16Imm16
	KindLdR16MemA
	KindLdAR16Mem
	KindLdImm16MemSP
	KindIncR16
	KindDecR16
	KindAddHLR16
	KindIncR8
	KindDecR8
	KindLdR8Imm8
	KindRLCA
	KindRRCA
	KindRLA
	KindRRA
	KindDAA
	KindCPL
	KindSCF
	KindCCF
	KindJRImm8
	KindJRCondImm8
	KindStop
	KindHalt
	KindLdR8R8
	KindAddAR8
	KindAdcAR8
	KindSubAR8
	KindSbcAR8
	KindAndAR8
	KindXorAR8
	KindOrAR8
	KindCpAR8
	KindAddAImm8
	KindAdcAImm8
	KindSubAImm8
	KindSbcAImm8
	KindAndAImm8
	KindXorAImm8
	KindOrAImm8
	KindCpAImm8
	KindRetCond
	KindRet
	KindReti
	KindJpCondImm16
	KindJpImm16
	KindJpHL
	KindCallCondImm16
	KindCallImm16
	KindRstTgt3
	KindPopR16
	KindPushR16
	KindLdhCMemA
	KindLdhImm8MemA
	KindLdImm16MemA
	KindLdhACMem
	KindLdhAImm8Mem
	KindLdAImm16Mem
	KindAddSPImm8
	KindLdHLSPPlusImm8
	KindLdSPHL
	KindDI
	KindEI

	// CB bank.
	KindRlcR8
	KindRrcR8
	KindRlR8
	KindRrR8
	KindSlaR8
	KindSraR8
	KindSwapR8
	KindSrlR8
	KindBitB3R8
	KindResB3R8
	KindSetB3R8
)

// Instruction is a template describing every instance of one
// instruction shape.
type Instruction struct {
	// Mnemonic is the instruction mnemonic. For example "LD".
	Mnemonic string

	// CBPrefix marks a 2-byte opcode: the first byte is 0xCB and the
	// following byte contains Opcode as normal.
	CBPrefix bool

	// Opcode is the first byte of the instruction (2nd byte when
	// CBPrefix is true), with 0 in the place of any operand bits
	// packed into the byte.
	Opcode uint8

	// Instructions have 0, 1, or 2 operands. If an instruction has
	// more than one operand, at most one is an immediate value that
	// follows the first byte of the instruction.
	Operand1, Operand2 Operand

	// Shift is the number of bits to right-shift the opcode byte to
	// find an operand packed into it.
	Shift uint8

	// Kind selects the executor state machine for this template.
	Kind Kind
}

// Unknown is the placeholder template for the eleven unassigned byte
// values. It executes as a single-cycle no-op.
var Unknown = &Instruction{Mnemonic: "UNKNOWN", Kind: KindUnknown}

// CBPrefixByte marks the switch to the CB instruction bank.
const CBPrefixByte = 0xCB

// Templates is the full instruction table, both banks. Decode matches
// against the first template whose masked opcode equals the template
// base, so more specific templates (HALT) precede the packed groups
// that would otherwise swallow them (LD r8, r8).
var Templates = []Instruction{
	{Mnemonic: "NOP", Opcode: 0x00, Kind: KindNop},
	{Mnemonic: "LD", Opcode: 0x01, Operand1: OperandR16, Shift: 4, Operand2: OperandImm16, Kind: KindLdR16Imm16},
	{Mnemonic: "LD", Opcode: 0x02, Operand1: OperandR16Mem, Shift: 4, Operand2: OperandA, Kind: KindLdR16MemA},
	{Mnemonic: "LD", Opcode: 0x0A, Operand1: OperandA, Operand2: OperandR16Mem, Shift: 4, Kind: KindLdAR16Mem},
	{Mnemonic: "LD", Opcode: 0x08, Operand1: OperandImm16Mem, Operand2: OperandSP, Kind: KindLdImm16MemSP},
	{Mnemonic: "INC", Opcode: 0x03, Operand1: OperandR16, Shift: 4, Kind: KindIncR16},
	{Mnemonic: "DEC", Opcode: 0x0B, Operand1: OperandR16, Shift: 4, Kind: KindDecR16},
	{Mnemonic: "ADD", Opcode: 0x09, Operand1: OperandHL, Operand2: OperandR16, Shift: 4, Kind: KindAddHLR16},
	{Mnemonic: "INC", Opcode: 0x04, Operand1: OperandR8, Shift: 3, Kind: KindIncR8},
	{Mnemonic: "DEC", Opcode: 0x05, Operand1: OperandR8, Shift: 3, Kind: KindDecR8},
	{Mnemonic: "LD", Opcode: 0x06, Operand1: OperandR8, Shift: 3, Operand2: OperandImm8, Kind: KindLdR8Imm8},
	{Mnemonic: "RLCA", Opcode: 0x07, Kind: KindRLCA},
	{Mnemonic: "RRCA", Opcode: 0x0F, Kind: KindRRCA},
	{Mnemonic: "RLA", Opcode: 0x17, Kind: KindRLA},
	{Mnemonic: "RRA", Opcode: 0x1F, Kind: KindRRA},
	{Mnemonic: "DAA", Opcode: 0x27, Kind: KindDAA},
	{Mnemonic: "CPL", Opcode: 0x2F, Kind: KindCPL},
	{Mnemonic: "SCF", Opcode: 0x37, Kind: KindSCF},
	{Mnemonic: "CCF", Opcode: 0x3F, Kind: KindCCF},

	{Mnemonic: "RLC", CBPrefix: true, Opcode: 0x00, Operand1: OperandR8, Kind: KindRlcR8},
	{Mnemonic: "RRC", CBPrefix: true, Opcode: 0x08, Operand1: OperandR8, Kind: KindRrcR8},
	{Mnemonic: "RL", CBPrefix: true, Opcode: 0x10, Operand1: OperandR8, Kind: KindRlR8},
	{Mnemonic: "RR", CBPrefix: true, Opcode: 0x18, Operand1: OperandR8, Kind: KindRrR8},
	{Mnemonic: "SLA", CBPrefix: true, Opcode: 0x20, Operand1: OperandR8, Kind: KindSlaR8},
	{Mnemonic: "SRA", CBPrefix: true, Opcode: 0x28, Operand1: OperandR8, Kind: KindSraR8},
	{Mnemonic: "SWAP", CBPrefix: true, Opcode: 0x30, Operand1: OperandR8, Kind: KindSwapR8},
	{Mnemonic: "SRL", CBPrefix: true, Opcode: 0x38, Operand1: OperandR8, Kind: KindSrlR8},
	{Mnemonic: "BIT", CBPrefix: true, Opcode: 0x40, Operand1: OperandBitIndex, Operand2: OperandR8, Kind: KindBitB3R8},
	{Mnemonic: "RES", CBPrefix: true, Opcode: 0x80, Operand1: OperandBitIndex, Operand2: OperandR8, Kind: KindResB3R8},
	{Mnemonic: "SET", CBPrefix: true, Opcode: 0xC0, Operand1: OperandBitIndex, Operand2: OperandR8, Kind: KindSetB3R8},

	{Mnemonic: "JR", Opcode: 0x18, Operand1: OperandImm8Offset, Kind: KindJRImm8},
	{Mnemonic: "JR", Opcode: 0x20, Operand1: OperandCond, Shift: 3, Operand2: OperandImm8Offset, Kind: KindJRCondImm8},
	{Mnemonic: "STOP", Opcode: 0x10, Operand1: OperandImm8, Kind: KindStop},
	{Mnemonic: "HALT", Opcode: 0x76, Kind: KindHalt},
	{Mnemonic: "LD", Opcode: 0x40, Operand1: OperandR8Dst, Operand2: OperandR8, Kind: KindLdR8R8},
	{Mnemonic: "ADD", Opcode: 0x80, Operand1: OperandA, Operand2: OperandR8, Kind: KindAddAR8},
	{Mnemonic: "ADC", Opcode: 0x88, Operand1: OperandA, Operand2: OperandR8, Kind: KindAdcAR8},
	{Mnemonic: "SUB", Opcode: 0x90, Operand1: OperandA, Operand2: OperandR8, Kind: KindSubAR8},
	{Mnemonic: "SBC", Opcode: 0x98, Operand1: OperandA, Operand2: OperandR8, Kind: KindSbcAR8},
	{Mnemonic: "AND", Opcode: 0xA0, Operand1: OperandA, Operand2: OperandR8, Kind: KindAndAR8},
	{Mnemonic: "XOR", Opcode: 0xA8, Operand1: OperandA, Operand2: OperandR8, Kind: KindXorAR8},
	{Mnemonic: "OR", Opcode: 0xB0, Operand1: OperandA, Operand2: OperandR8, Kind: KindOrAR8},
	{Mnemonic: "CP", Opcode: 0xB8, Operand1: OperandA, Operand2: OperandR8, Kind: KindCpAR8},
	{Mnemonic: "ADD", Opcode: 0xC6, Operand1: OperandA, Operand2: OperandImm8, Kind: KindAddAImm8},
	{Mnemonic: "ADC", Opcode: 0xCE, Operand1: OperandA, Operand2: OperandImm8, Kind: KindAdcAImm8},
	{Mnemonic: "SUB", Opcode: 0xD6, Operand1: OperandA, Operand2: OperandImm8, Kind: KindSubAImm8},
	{Mnemonic: "SBC", Opcode: 0xDE, Operand1: OperandA, Operand2: OperandImm8, Kind: KindSbcAImm8},
	{Mnemonic: "AND", Opcode: 0xE6, Operand1: OperandA, Operand2: OperandImm8, Kind: KindAndAImm8},
	{Mnemonic: "XOR", Opcode: 0xEE, Operand1: OperandA, Operand2: OperandImm8, Kind: KindXorAImm8},
	{Mnemonic: "OR", Opcode: 0xF6, Operand1: OperandA, Operand2: OperandImm8, Kind: KindOrAImm8},
	{Mnemonic: "CP", Opcode: 0xFE, Operand1: OperandA, Operand2: OperandImm8, Kind: KindCpAImm8},
	{Mnemonic: "RET", Opcode: 0xC0, Operand1: OperandCond, Shift: 3, Kind: KindRetCond},
	{Mnemonic: "RET", Opcode: 0xC9, Kind: KindRet},
	{Mnemonic: "RETI", Opcode: 0xD9, Kind: KindReti},
	{Mnemonic: "JP", Opcode: 0xC2, Operand1: OperandCond, Shift: 3, Operand2: OperandImm16, Kind: KindJpCondImm16},
	{Mnemonic: "JP", Opcode: 0xC3, Operand1: OperandImm16, Kind: KindJpImm16},
	{Mnemonic: "JP", Opcode: 0xE9, Operand1: OperandHL, Kind: KindJpHL},
	{Mnemonic: "CALL", Opcode: 0xC4, Operand1: OperandCond, Shift: 3, Operand2: OperandImm16, Kind: KindCallCondImm16},
	{Mnemonic: "CALL", Opcode: 0xCD, Operand1: OperandImm16, Kind: KindCallImm16},
	{Mnemonic: "RST", Opcode: 0xC7, Operand1: OperandTgt3, Shift: 3, Kind: KindRstTgt3},
	{Mnemonic: "POP", Opcode: 0xC1, Operand1: OperandR16Stk, Shift: 4, Kind: KindPopR16},
	{Mnemonic: "PUSH", Opcode: 0xC5, Operand1: OperandR16Stk, Shift: 4, Kind: KindPushR16},
	{Mnemonic: "LDH", Opcode: 0xE2, Operand1: OperandCMem, Operand2: OperandA, Kind: KindLdhCMemA},
	{Mnemonic: "LDH", Opcode: 0xE0, Operand1: OperandImm8Mem, Operand2: OperandA, Kind: KindLdhImm8MemA},
	{Mnemonic: "LD", Opcode: 0xEA, Operand1: OperandImm16Mem, Operand2: OperandA, Kind: KindLdImm16MemA},
	{Mnemonic: "LDH", Opcode: 0xF2, Operand1: OperandA, Operand2: OperandCMem, Kind: KindLdhACMem},
	{Mnemonic: "LDH", Opcode: 0xF0, Operand1: OperandA, Operand2: OperandImm8Mem, Kind: KindLdhAImm8Mem},
	{Mnemonic: "LD", Opcode: 0xFA, Operand1: OperandA, Operand2: OperandImm16Mem, Kind: KindLdAImm16Mem},
	{Mnemonic: "ADD", Opcode: 0xE8, Operand1: OperandSP, Operand2: OperandImm8, Kind: KindAddSPImm8},
	{Mnemonic: "LD", Opcode: 0xF8, Operand1: OperandHL, Operand2: OperandSPPlusImm8, Kind: KindLdHLSPPlusImm8},
	{Mnemonic: "LD", Opcode: 0xF9, Operand1: OperandSP, Operand2: OperandHL, Kind: KindLdSPHL},
	{Mnemonic: "DI", Opcode: 0xF3, Kind: KindDI},
	{Mnemonic: "EI", Opcode: 0xFB, Kind: KindEI},
}

// operandSize returns the number of bytes following the opcode for the
// operand.
func operandSize(op Operand) int {
	switch op {
	case OperandSPPlusImm8, OperandImm8, OperandImm8Offset, OperandImm8Mem:
		return 1
	case OperandImm16, OperandImm16Mem:
		return 2
	}
	return 0
}

// Size returns the full instruction size in bytes, including the CB
// prefix byte and any immediates.
func (in *Instruction) Size() int {
	size := 1
	if in.CBPrefix {
		size++
	}
	size += operandSize(in.Operand1)
	size += operandSize(in.Operand2)
	return size
}

// operandOpcodeBits returns how many opcode-byte bits the operand
// occupies.
func operandOpcodeBits(op Operand) int {
	switch op {
	case OperandR16, OperandR16Stk, OperandR16Mem, OperandCond:
		return 2
	case OperandR8, OperandTgt3, OperandBitIndex, OperandR8Dst:
		return 3
	}
	return 0
}

// Mask returns the opcode-byte mask that zeroes the bits holding
// packed operands, leaving only the bits that identify the template.
func (in *Instruction) Mask() uint8 {
	bits := operandOpcodeBits(in.Operand1) + operandOpcodeBits(in.Operand2)
	switch bits {
	case 0:
		return 0xFF
	case 2:
		return ^uint8(0x3 << in.Shift)
	case 3:
		return ^uint8(0x7 << in.Shift)
	case 6:
		return ^uint8(0x3F << in.Shift)
	}
	panic(fmt.Sprintf("impossible operand bits: %d", bits))
}

// Lookup returns the first template in the given bank matching the
// opcode byte, or Unknown if the byte is unassigned.
func Lookup(cbBank bool, opcode uint8) *Instruction {
	for i := range Templates {
		in := &Templates[i]
		if in.CBPrefix != cbBank {
			continue
		}
		if opcode&in.Mask() == in.Opcode {
			return in
		}
	}
	return Unknown
}

// Field extraction from the opcode byte. The caller passes the
// template's Shift.

// R8Field extracts a 3-bit r8 register index.
func R8Field(opcode uint8, shift uint8) int {
	return int(opcode>>shift) & 0x7
}

// Tgt3Field extracts a 3-bit RST target index.
func Tgt3Field(opcode uint8, shift uint8) int {
	return int(opcode>>shift) & 0x7
}

// BitIndexField extracts a 3-bit bit index, always at shift+3.
func BitIndexField(opcode uint8, shift uint8) int {
	return int(opcode>>(shift+3)) & 0x7
}

// R8DstField extracts a 3-bit r8 destination index, always at shift+3.
func R8DstField(opcode uint8, shift uint8) int {
	return int(opcode>>(shift+3)) & 0x7
}

// R16Field extracts a 2-bit r16 register index.
func R16Field(opcode uint8, shift uint8) int {
	return int(opcode>>shift) & 0x3
}

// CondField extracts a 2-bit condition index.
func CondField(opcode uint8, shift uint8) int {
	return int(opcode>>shift) & 0x3
}
