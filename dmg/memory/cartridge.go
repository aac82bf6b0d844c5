package memory

// Cartridge header locations.
const (
	cartridgeTypeAddress = 0x147
	romSizeAddress       = 0x148
)

const romBankSize = 0x4000

// CartridgeType is the MBC byte from the cartridge header. Only plain
// ROM and MBC1 variants are modeled; the bank-switch register is the
// extent of the MBC1 support.
type CartridgeType uint8

const (
	CartROMOnly        CartridgeType = 0x00
	CartMBC1           CartridgeType = 0x01
	CartMBC1RAM        CartridgeType = 0x02
	CartMBC1RAMBattery CartridgeType = 0x03
)

// hasBankRegister reports whether the cartridge responds to the MBC1
// ROM bank select register.
func (t CartridgeType) hasBankRegister() bool {
	return t == CartMBC1 || t == CartMBC1RAM || t == CartMBC1RAMBattery
}

// Cartridge is the ROM plus the MBC1 bank state. The ROM bytes are
// immutable for the life of the machine; writes into the ROM address
// range only ever program the bank register.
type Cartridge struct {
	rom       []uint8
	cartType  CartridgeType
	bankCount int
	romBank   int
}

// NewCartridge creates an empty cartridge, equivalent to turning the
// console on with nothing inserted.
func NewCartridge() *Cartridge {
	return &Cartridge{
		rom:       make([]uint8, 2*romBankSize),
		cartType:  CartROMOnly,
		bankCount: 2,
		romBank:   1,
	}
}

// NewCartridgeWithData initializes a Cartridge from the raw ROM bytes.
// The type and bank count come from the header when one is present;
// undersized images (test fixtures) fall back to their actual size.
func NewCartridgeWithData(data []uint8) *Cartridge {
	cart := &Cartridge{
		rom:     make([]uint8, len(data)),
		romBank: 1,
	}
	copy(cart.rom, data)

	if len(data) > romSizeAddress {
		cart.cartType = CartridgeType(data[cartridgeTypeAddress])
		cart.bankCount = 2 << data[romSizeAddress]
	} else {
		cart.bankCount = (len(data) + romBankSize - 1) / romBankSize
	}
	if cart.bankCount < 2 {
		cart.bankCount = 2
	}

	return cart
}

// Type returns the cartridge's MBC type byte.
func (c *Cartridge) Type() CartridgeType { return c.cartType }

// BankCount returns the number of 16 KiB ROM banks.
func (c *Cartridge) BankCount() int { return c.bankCount }

// Bank returns the bank currently mapped at 0x4000-0x7FFF. It is
// never zero.
func (c *Cartridge) Bank() int { return c.romBank }

// Read returns the ROM byte at the bus address: bank 0 below 0x4000,
// the selected bank above it.
func (c *Cartridge) Read(address uint16) uint8 {
	offset := int(address)
	if address >= romBankSize {
		offset = c.romBank*romBankSize + int(address-romBankSize)
	}
	if offset >= len(c.rom) {
		return 0xFF
	}
	return c.rom[offset]
}

// WriteRegister handles a CPU store into the ROM address range. Only
// 0x2000-0x3FFF does anything, and only on MBC1 cartridges: it selects
// the ROM bank, modulo the bank count, with zero re-mapped to one so
// bank 0 is never visible in the switchable slot.
func (c *Cartridge) WriteRegister(address uint16, value uint8) {
	if !c.cartType.hasBankRegister() {
		return
	}
	if address < 0x2000 || address > 0x3FFF {
		return
	}
	bank := int(value)
	if bank == 0 {
		bank = 1
	}
	bank %= c.bankCount
	if bank == 0 {
		bank = 1
	}
	c.romBank = bank
}

// poke overwrites a ROM byte directly. It exists for tests and the
// debugger; the bus never mutates ROM.
func (c *Cartridge) poke(address uint16, value uint8) {
	if int(address) < len(c.rom) {
		c.rom[address] = value
	}
}
