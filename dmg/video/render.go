package video

import (
	"github.com/valerio/go-dmg/dmg/addr"
	"github.com/valerio/go-dmg/dmg/bit"
)

// Scanline rendering. The whole visible line is produced at the start
// of the drawing window from the object set the OAM scan established.
// All memory traffic uses the ungated accessors: the PPU is the reason
// the CPU is locked out, not a victim of it.

// drawScanline renders background, window and objects for the current
// line into the framebuffer.
func (p *PPU) drawScanline() {
	if p.line >= FramebufferHeight {
		return
	}

	// bgRow keeps the pre-palette background pixel values for object
	// priority resolution on this line.
	var bgRow [FramebufferWidth]uint8

	p.drawBackground(&bgRow)
	p.drawWindow(&bgRow)
	p.drawObjects(&bgRow)
}

// paletteShade maps a 2-bit pixel value through a palette register.
func paletteShade(palette uint8, pixel uint8) uint8 {
	return palette >> (pixel * 2) & 0x03
}

// tileRow reads the two bytes of one tile row and returns the pixel
// value at the given x offset (0 = leftmost).
func tileRow(low, high uint8, x int) uint8 {
	index := uint8(7 - x)
	pixel := bit.GetBitValue(index, low)
	pixel |= bit.GetBitValue(index, high) << 1
	return pixel
}

// bgTileAddr resolves a tile index to its data address honoring the
// LCDC addressing mode: unsigned from 0x8000 or signed from 0x9000.
func (p *PPU) bgTileAddr(tile uint8, rowOffset int) uint16 {
	if p.memory.ReadBit(lcdcTileData, addr.LCDC) {
		return addr.TileData0 + uint16(tile)*16 + uint16(rowOffset)
	}
	return uint16(int(addr.TileData2) + int(int8(tile))*16 + rowOffset)
}

func (p *PPU) drawBackground(bgRow *[FramebufferWidth]uint8) {
	palette := p.memory.Peek(addr.BGP)

	if !p.memory.ReadBit(lcdcBGEnable, addr.LCDC) {
		// Background disabled: the line shows color 0 of BGP.
		shade := paletteShade(palette, 0)
		for x := 0; x < FramebufferWidth; x++ {
			p.framebuffer.SetPixel(x, p.line, shade)
			bgRow[x] = 0
		}
		return
	}

	tileMap := addr.TileMap0
	if p.memory.ReadBit(lcdcBGTileMap, addr.LCDC) {
		tileMap = addr.TileMap1
	}

	scrollX := int(p.memory.Peek(addr.SCX))
	scrollY := int(p.memory.Peek(addr.SCY))

	mapY := (p.line + scrollY) & 0xFF
	rowOffset := (mapY % 8) * 2

	for x := 0; x < FramebufferWidth; x++ {
		mapX := (x + scrollX) & 0xFF
		tileIndex := p.memory.Peek(tileMap + uint16(mapY/8*32+mapX/8))

		tileAddr := p.bgTileAddr(tileIndex, rowOffset)
		low := p.memory.Peek(tileAddr)
		high := p.memory.Peek(tileAddr + 1)

		pixel := tileRow(low, high, mapX%8)
		p.framebuffer.SetPixel(x, p.line, paletteShade(palette, pixel))
		bgRow[x] = pixel
	}
}

func (p *PPU) drawWindow(bgRow *[FramebufferWidth]uint8) {
	if !p.memory.ReadBit(lcdcWindowEnable, addr.LCDC) {
		return
	}

	wy := int(p.memory.Peek(addr.WY))
	wx := int(p.memory.Peek(addr.WX)) - 7
	if p.line < wy || wy > 143 || wx > 159 {
		return
	}

	tileMap := addr.TileMap0
	if p.memory.ReadBit(lcdcWindowTileMap, addr.LCDC) {
		tileMap = addr.TileMap1
	}

	palette := p.memory.Peek(addr.BGP)
	rowOffset := (p.windowLine % 8) * 2
	mapRow := uint16(p.windowLine / 8 * 32)

	for x := 0; x < FramebufferWidth; x++ {
		if x < wx {
			continue
		}
		winX := x - wx
		tileIndex := p.memory.Peek(tileMap + mapRow + uint16(winX/8))

		tileAddr := p.bgTileAddr(tileIndex, rowOffset)
		low := p.memory.Peek(tileAddr)
		high := p.memory.Peek(tileAddr + 1)

		pixel := tileRow(low, high, winX%8)
		p.framebuffer.SetPixel(x, p.line, paletteShade(palette, pixel))
		bgRow[x] = pixel
	}
	p.windowLine++
}

// Object attribute flag bits.
const (
	objFlagPalette = 4
	objFlagFlipX   = 5
	objFlagFlipY   = 6
	objFlagBehind  = 7
)

func (p *PPU) drawObjects(bgRow *[FramebufferWidth]uint8) {
	if !p.memory.ReadBit(lcdcObjEnable, addr.LCDC) {
		return
	}

	height := 8
	tileMask := uint8(0xFF)
	if p.memory.ReadBit(lcdcObjSize, addr.LCDC) {
		height = 16
		tileMask = 0xFE
	}

	// Resolve per-pixel ownership first: the object with the smaller
	// X wins; ties go to the earlier OAM entry. The scan order of
	// p.objs preserves OAM order.
	const noOwner = -1
	var owner [FramebufferWidth]int
	for x := range owner {
		owner[x] = noOwner
	}
	for i := 0; i < p.nobjs; i++ {
		objX := int(p.objs[i].X) - 8
		for px := 0; px < 8; px++ {
			x := objX + px
			if x < 0 || x >= FramebufferWidth {
				continue
			}
			if owner[x] == noOwner || int(p.objs[owner[x]].X) > int(p.objs[i].X) {
				owner[x] = i
			}
		}
	}

	for i := 0; i < p.nobjs; i++ {
		obj := p.objs[i]
		objY := int(obj.Y) - 16
		objX := int(obj.X) - 8

		row := p.line - objY
		if bit.IsSet(objFlagFlipY, obj.Flags) {
			row = height - 1 - row
		}

		paletteAddr := addr.OBP0
		if bit.IsSet(objFlagPalette, obj.Flags) {
			paletteAddr = addr.OBP1
		}
		palette := p.memory.Peek(paletteAddr)

		// Objects always use unsigned addressing from 0x8000; in
		// 8x16 mode the tile index's low bit is ignored.
		tileAddr := addr.TileData0 + uint16(obj.Tile&tileMask)*16 + uint16(row*2)
		low := p.memory.Peek(tileAddr)
		high := p.memory.Peek(tileAddr + 1)

		for px := 0; px < 8; px++ {
			x := objX + px
			if x < 0 || x >= FramebufferWidth || owner[x] != i {
				continue
			}

			col := px
			if bit.IsSet(objFlagFlipX, obj.Flags) {
				col = 7 - px
			}
			pixel := tileRow(low, high, col)
			if pixel == 0 {
				// Color 0 is transparent for objects.
				continue
			}
			if bit.IsSet(objFlagBehind, obj.Flags) && bgRow[x] != 0 {
				continue
			}
			p.framebuffer.SetPixel(x, p.line, paletteShade(palette, pixel))
		}
	}
}
