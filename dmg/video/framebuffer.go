package video

// Screen dimensions.
const (
	FramebufferWidth  = 160
	FramebufferHeight = 144
	FramebufferSize   = FramebufferWidth * FramebufferHeight
)

// FrameBuffer holds one frame of 2-bit shade indices (0 = lightest,
// 3 = darkest), 144 rows of 160 pixels. Palette-to-color translation
// belongs to the front-end.
type FrameBuffer struct {
	buffer []uint8
}

// NewFrameBuffer creates an all-white framebuffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{
		buffer: make([]uint8, FramebufferSize),
	}
}

// GetPixel returns the shade at (x, y).
func (fb *FrameBuffer) GetPixel(x, y int) uint8 {
	return fb.buffer[y*FramebufferWidth+x]
}

// SetPixel sets the shade at (x, y).
func (fb *FrameBuffer) SetPixel(x, y int, shade uint8) {
	fb.buffer[y*FramebufferWidth+x] = shade
}

// Clear resets every pixel to the given shade.
func (fb *FrameBuffer) Clear(shade uint8) {
	for i := range fb.buffer {
		fb.buffer[i] = shade
	}
}

// Pixels exposes the raw row-major buffer for front-ends.
func (fb *FrameBuffer) Pixels() []uint8 {
	return fb.buffer
}
