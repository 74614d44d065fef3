package chip8

import "strings"

const (
	DisplayWidth  = 64
	DisplayHeight = 32
)

// spriteWidth is the fixed width in pixels of every sprite row.
const spriteWidth = 8

// Display is the monochrome framebuffer, indexed as [y][x].
type Display [DisplayHeight][DisplayWidth]bool

// Clear turns every pixel off.
func (d *Display) Clear() {
	clear(d[:])
}

// Pixel reports whether the pixel at (x, y) is lit. Coordinates outside of
// the display are reported as unlit.
func (d *Display) Pixel(x, y int) bool {
	if x < 0 || x >= DisplayWidth || y < 0 || y >= DisplayHeight {
		return false
	}
	return d[y][x]
}

// Draw XORs sprite onto the display, one byte per row with the most
// significant bit leftmost. The origin wraps into the display but the sprite
// itself is clipped at the right and bottom edges. It reports whether any lit
// pixel was turned off.
func (d *Display) Draw(x, y uint8, sprite []uint8) bool {
	originX := int(x) % DisplayWidth
	originY := int(y) % DisplayHeight
	collision := false

	for row, bits := range sprite {
		py := originY + row
		if py >= DisplayHeight {
			break
		}

		for col := range spriteWidth {
			px := originX + col
			if px >= DisplayWidth {
				break
			}
			if bits&(0x80>>col) == 0 {
				continue
			}

			if d[py][px] {
				collision = true
			}
			d[py][px] = !d[py][px]
		}
	}

	return collision
}

// String renders the display as rows of '#' (lit) and '.' (unlit).
func (d *Display) String() string {
	var sb strings.Builder
	sb.Grow(DisplayHeight * (DisplayWidth + 1))

	for _, row := range d {
		for _, lit := range row {
			if lit {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}
