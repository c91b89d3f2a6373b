package binrec

import (
	"fmt"

	"github.com/google/uuid"
)

// Size is an fmSize: width and height in HIMETRIC.
type Size struct {
	Width  int32
	Height int32
}

// Position is an fmPosition: top and left in HIMETRIC.
type Position struct {
	Top  int32
	Left int32
}

// Color is an OLE_COLOR. The high byte selects how the low bytes are read.
type Color uint32

// ColorKind is the interpretation selected by a Color's high byte.
type ColorKind uint8

const (
	ColorDefault ColorKind = 0x00
	ColorPalette ColorKind = 0x01
	ColorRGB     ColorKind = 0x02
	ColorSystem  ColorKind = 0x80
)

// Kind returns the color type byte.
func (c Color) Kind() ColorKind {
	return ColorKind(c >> 24)
}

// RGB returns the red, green and blue components of a default or RGB color.
func (c Color) RGB() (r, g, b uint8) {
	return uint8(c), uint8(c >> 8), uint8(c >> 16)
}

// Index returns the palette or system color index.
func (c Color) Index() uint16 {
	return uint16(c)
}

func (c Color) String() string {
	switch c.Kind() {
	case ColorSystem:
		return fmt.Sprintf("system(%d)", c.Index())
	case ColorPalette:
		return fmt.Sprintf("palette(%d)", c.Index())
	default:
		r, g, b := c.RGB()
		return fmt.Sprintf("#%02X%02X%02X", r, g, b)
	}
}

// GUIDFromBytes converts a mixed-endian Windows GUID to a uuid.UUID.
func GUIDFromBytes(b []byte) uuid.UUID {
	var u uuid.UUID
	u[0], u[1], u[2], u[3] = b[3], b[2], b[1], b[0]
	u[4], u[5] = b[5], b[4]
	u[6], u[7] = b[7], b[6]
	copy(u[8:], b[8:16])
	return u
}

// GUIDBytes converts a uuid.UUID to the mixed-endian Windows layout.
func GUIDBytes(u uuid.UUID) []byte {
	b := make([]byte, 16)
	b[0], b[1], b[2], b[3] = u[3], u[2], u[1], u[0]
	b[4], b[5] = u[5], u[4]
	b[6], b[7] = u[7], u[6]
	copy(b[8:], u[8:])
	return b
}

// FormatGUID renders u in registry form, "{XXXXXXXX-XXXX-...}".
func FormatGUID(u uuid.UUID) string {
	s := u.String()
	out := make([]byte, 0, len(s)+2)
	out = append(out, '{')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'f' {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(append(out, '}'))
}
