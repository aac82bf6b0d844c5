package isa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSizes(t *testing.T) {
	tests := []struct {
		name string
		data []uint8
		size int
	}{
		{"NOP", []uint8{0x00}, 1},
		{"LD r8, imm8", []uint8{0x06, 0x01}, 2},
		{"LD r16, imm16", []uint8{0x01, 0x01, 0x02}, 3},
		{"CB op", []uint8{0xCB, 0x40}, 2},
		{"LDH", []uint8{0xE0, 0x01}, 2},
		{"JP", []uint8{0xC3, 0x01, 0x02}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decode(tt.data, 0)
			require.NotEqual(t, Unknown, d.Instr)
			assert.Equal(t, tt.size, d.Size)
			assert.Equal(t, tt.size, d.Instr.Size())
		})
	}
}

func TestDecodeUnknownOpcodes(t *testing.T) {
	// The eleven byte values with no assigned instruction.
	unknown := []uint8{0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD}
	for _, op := range unknown {
		d := Decode([]uint8{op, 0x01, 0x02}, 0)
		assert.Equalf(t, Unknown, d.Instr, "opcode 0x%02X", op)
		assert.Equalf(t, 1, d.Size, "opcode 0x%02X", op)
	}
}

func TestDecodeEveryOpcodeKnownOrUnknown(t *testing.T) {
	// Exactly 11 primary opcodes decode as UNKNOWN; every CB opcode
	// is assigned. The CB prefix byte itself has no primary template
	// (Decode follows it into the CB bank), so it is not counted.
	unknown := 0
	for op := 0; op <= 0xFF; op++ {
		if op == CBPrefixByte {
			continue
		}
		if Lookup(false, uint8(op)) == Unknown {
			unknown++
		}
	}
	assert.Equal(t, 11, unknown)

	for op := 0; op <= 0xFF; op++ {
		assert.NotEqualf(t, Unknown, Lookup(true, uint8(op)), "CB opcode 0x%02X", op)
	}
}

func TestDecodeTruncated(t *testing.T) {
	tests := []struct {
		name string
		data []uint8
		offs int
		size int
	}{
		{"empty", nil, 0, 0},
		{"imm16 with 1 byte", []uint8{0x01}, 0, 1},
		{"imm16 with 2 bytes", []uint8{0x01, 0xFF}, 0, 1},
		{"CB prefix alone", []uint8{0xCB}, 0, 1},
		{"offset past end", []uint8{0x00}, 3, 0},
		{"imm16 at tail", []uint8{0x00, 0x01, 0xFF}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decode(tt.data, tt.offs)
			assert.Equal(t, Unknown, d.Instr)
			assert.Equal(t, tt.size, d.Size)
		})
	}
}

func TestDisassembleFullLine(t *testing.T) {
	tests := []struct {
		name string
		data []uint8
		offs uint16
		full string
	}{
		{"no data", nil, 0, "0000:         \t\tUNKNOWN"},
		{"one byte", []uint8{0x00}, 0, "0000: 00      \t\tNOP"},
		{"two bytes", []uint8{0x06, 0xFF}, 0, "0000: 06 FF   \t\tLD B, 255 ($FF)"},
		{"three bytes", []uint8{0x01, 0x01, 0x02}, 0, "0000: 01 01 02\t\tLD BC, 513 ($0201)"},
		{"truncated imm16", []uint8{0x01, 0xFF}, 0, "0000: 01      \t\tUNKNOWN"},
		{"truncated CB", []uint8{0xCB}, 0, "0000: CB      \t\tUNKNOWN"},
		{"offset", []uint8{0x00, 0x01, 0xFF, 0xAA}, 1, "0001: 01 FF AA\t\tLD BC, 43775 ($AAFF)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Disassemble(tt.data, tt.offs)
			assert.Equal(t, tt.full, got.Full)
		})
	}
}

func TestDisassembleBannerAddress(t *testing.T) {
	data := make([]uint8, 0x150)
	data[0x100] = 0xC3 // JP
	data[0x101] = 0x50
	data[0x102] = 0x01
	got := Disassemble(data, 0x100)
	assert.Equal(t, "0100: C3 50 01\t\tJP 336 ($0150)", got.Full)
	assert.Equal(t, 3, got.Size)
}

func TestTemplateBasesSurviveTheirMasks(t *testing.T) {
	// Every template's base opcode must survive its own mask,
	// otherwise it could never match.
	for i := range Templates {
		in := &Templates[i]
		assert.Equalf(t, in.Opcode, in.Opcode&in.Mask(), "%s (0x%02X)", in.Mnemonic, in.Opcode)
	}
}
