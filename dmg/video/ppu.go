// Package video implements the PPU: a T-cycle state machine over the
// four display modes, driving LY, the STAT mode and LY=LYC bits, the
// VBLANK/STAT interrupt requests, and a 160x144 2-bit framebuffer.
package video

import (
	"fmt"

	"github.com/valerio/go-dmg/dmg/addr"
	"github.com/valerio/go-dmg/dmg/bit"
	"github.com/valerio/go-dmg/dmg/memory"
)

// Mode is the PPU's current rendering stage. The values match STAT
// bits 1-0.
type Mode int

const (
	// ModeHBlank (0): horizontal blank, CPU can access VRAM/OAM.
	ModeHBlank Mode = 0
	// ModeVBlank (1): vertical blank, CPU can access VRAM/OAM.
	ModeVBlank Mode = 1
	// ModeOAMScan (2): PPU is reading OAM, CPU cannot access OAM.
	ModeOAMScan Mode = 2
	// ModeDrawing (3): PPU owns VRAM, CPU cannot access VRAM/OAM.
	ModeDrawing Mode = 3
)

func (m Mode) String() string {
	switch m {
	case ModeHBlank:
		return "HBLANK"
	case ModeVBlank:
		return "VBLANK"
	case ModeOAMScan:
		return "OAM SCAN"
	case ModeDrawing:
		return "DRAWING"
	}
	return "UNKNOWN"
}

// Scanline timing in T-cycles. OAM scan and drawing are fixed-length;
// HBlank takes whatever remains of the 456-cycle line. A frame is 144
// visible lines plus 10 VBlank lines.
const (
	oamScanTicks  = 80
	drawingTicks  = 172
	scanlineTicks = 456
	hblankTicks   = scanlineTicks - oamScanTicks - drawingTicks

	vblankStartLine = 144
	lastLine        = 153
)

// maxScanlineObjects is the hardware limit of visible objects per
// scanline.
const maxScanlineObjects = 10

// Object is one OAM entry as selected for the current scanline.
type Object struct {
	Y     uint8
	X     uint8
	Tile  uint8
	Flags uint8
}

// STAT register bits.
const (
	statLycIRQ    = 6
	statOamIRQ    = 5
	statVblankIRQ = 4
	statHblankIRQ = 3
	statLycEqual  = 2
)

// LCDC register bits.
const (
	lcdcEnable        = 7
	lcdcWindowTileMap = 6
	lcdcWindowEnable  = 5
	lcdcTileData      = 4
	lcdcBGTileMap     = 3
	lcdcObjSize       = 2
	lcdcObjEnable     = 1
	lcdcBGEnable      = 0
)

// PPU is the picture processing unit state machine.
type PPU struct {
	memory      *memory.MMU
	framebuffer *FrameBuffer

	mode  Mode
	ticks int
	line  int

	// Objects selected for the current scanline during OAM scan.
	objs  [maxScanlineObjects]Object
	nobjs int

	// windowLine is the window's internal line counter; it only
	// advances on lines where the window is visible.
	windowLine int

	// off latches that the LCD was seen disabled, so enabling it
	// restarts cleanly at OAM scan on line 0.
	off bool
}

// New returns a PPU over the given memory, idle at the top of the
// frame.
func New(mmu *memory.MMU) *PPU {
	p := &PPU{
		memory:      mmu,
		framebuffer: NewFrameBuffer(),
		mode:        ModeOAMScan,
	}
	p.setMode(ModeOAMScan)
	return p
}

// FrameBuffer returns the output buffer.
func (p *PPU) FrameBuffer() *FrameBuffer {
	return p.framebuffer
}

// Mode returns the current PPU mode.
func (p *PPU) Mode() Mode { return p.mode }

// Line returns the current scanline (the LY register).
func (p *PPU) Line() int { return p.line }

// Ticks returns the T-cycle count within the current mode.
func (p *PPU) Ticks() int { return p.ticks }

func (p *PPU) enabled() bool {
	return p.memory.ReadBit(lcdcEnable, addr.LCDC)
}

// TCycle advances the PPU by one T-cycle.
func (p *PPU) TCycle() {
	if !p.enabled() {
		if !p.off {
			// LCD switched off: hold LY at 0 and report HBlank.
			p.off = true
			p.ticks = 0
			p.setLY(0)
			p.setMode(ModeHBlank)
		}
		return
	}
	if p.off {
		// LCD switched back on: restart at OAM scan on line 0.
		p.off = false
		p.ticks = 0
		p.windowLine = 0
		p.setLY(0)
		p.enterMode(ModeOAMScan)
	}

	p.ticks++
	switch p.mode {
	case ModeOAMScan:
		if p.ticks == oamScanTicks {
			p.ticks = 0
			p.enterMode(ModeDrawing)
		}
	case ModeDrawing:
		if p.ticks == drawingTicks {
			p.ticks = 0
			p.enterMode(ModeHBlank)
		}
	case ModeHBlank:
		if p.ticks == hblankTicks {
			p.ticks = 0
			p.setLY(p.line + 1)
			if p.line == vblankStartLine {
				p.enterMode(ModeVBlank)
			} else {
				p.enterMode(ModeOAMScan)
			}
		}
	case ModeVBlank:
		if p.ticks == scanlineTicks {
			p.ticks = 0
			if p.line == lastLine {
				p.setLY(0)
				p.windowLine = 0
				p.enterMode(ModeOAMScan)
			} else {
				p.setLY(p.line + 1)
			}
		}
	default:
		panic(fmt.Sprintf("impossible PPU mode: %d", p.mode))
	}
}

// enterMode performs a mode transition: latch the STAT bits, raise the
// STAT interrupt if that mode's enable bit is set, and run the mode's
// entry work.
func (p *PPU) enterMode(mode Mode) {
	p.setMode(mode)

	stat := p.memory.Peek(addr.STAT)
	switch mode {
	case ModeOAMScan:
		if bit.IsSet(statOamIRQ, stat) {
			p.memory.RequestInterrupt(addr.LCDSTATInterrupt)
		}
	case ModeDrawing:
		// The OAM scan window just closed with the line's object set
		// final; render the whole line up front.
		p.scanObjects()
		p.drawScanline()
	case ModeHBlank:
		if bit.IsSet(statHblankIRQ, stat) {
			p.memory.RequestInterrupt(addr.LCDSTATInterrupt)
		}
	case ModeVBlank:
		p.memory.RequestInterrupt(addr.VBlankInterrupt)
		if bit.IsSet(statVblankIRQ, stat) {
			p.memory.RequestInterrupt(addr.LCDSTATInterrupt)
		}
	}
}

// setMode latches the mode into STAT bits 1-0.
func (p *PPU) setMode(mode Mode) {
	p.mode = mode
	stat := p.memory.Peek(addr.STAT)
	p.memory.Poke(addr.STAT, stat&0xFC|uint8(mode))
}

// setLY updates the current scanline, wrapping after the last VBlank
// line, and refreshes the LY=LYC comparison.
func (p *PPU) setLY(line int) {
	p.line = line % (lastLine + 1)
	p.memory.Poke(addr.LY, uint8(p.line))
	p.compareLYToLYC()
}

// compareLYToLYC maintains the LY=LYC STAT bit and raises the STAT
// interrupt when the comparison becomes true and its enable bit is
// set.
func (p *PPU) compareLYToLYC() {
	ly := p.memory.Peek(addr.LY)
	lyc := p.memory.Peek(addr.LYC)
	stat := p.memory.Peek(addr.STAT)

	if ly == lyc {
		wasEqual := bit.IsSet(statLycEqual, stat)
		stat = bit.Set(statLycEqual, stat)
		if !wasEqual && bit.IsSet(statLycIRQ, stat) {
			p.memory.RequestInterrupt(addr.LCDSTATInterrupt)
		}
	} else {
		stat = bit.Reset(statLycEqual, stat)
	}

	p.memory.Poke(addr.STAT, stat)
}

// scanObjects establishes the scanline's visible object set. The scan
// walks OAM in order comparing LY to each object's Y span; only Y
// matters for selection, and at most ten objects make the cut.
func (p *PPU) scanObjects() {
	p.nobjs = 0

	height := 8
	if p.memory.ReadBit(lcdcObjSize, addr.LCDC) {
		height = 16
	}

	for i := 0; i < 40 && p.nobjs < maxScanlineObjects; i++ {
		oamAddr := addr.OAMStart + uint16(i*4)
		y := int(p.memory.Peek(oamAddr)) - 16
		if y > p.line || y+height <= p.line {
			continue
		}
		p.objs[p.nobjs] = Object{
			Y:     p.memory.Peek(oamAddr),
			X:     p.memory.Peek(oamAddr + 1),
			Tile:  p.memory.Peek(oamAddr + 2),
			Flags: p.memory.Peek(oamAddr + 3),
		}
		p.nobjs++
	}
}
