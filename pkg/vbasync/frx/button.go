package frx

import "github.com/arthur-debert/vbasync/pkg/vbasync/binrec"

// CommandButton mask bits.
const (
	ButtonForeColor           = 0
	ButtonBackColor           = 1
	ButtonVariousPropertyBits = 2
	ButtonCaption             = 3
	ButtonPicturePosition     = 4
	ButtonSize                = 5
	ButtonMousePointer        = 6
	ButtonPicture             = 7
	ButtonAccelerator         = 8
	ButtonTakeFocusOnClick    = 9
	ButtonMouseIcon           = 10
)

// CommandButton is a CommandButtonControl.
type CommandButton struct {
	MinorVersion        uint8
	MajorVersion        uint8
	Mask                binrec.Mask32
	ForeColor           binrec.Color
	BackColor           binrec.Color
	VariousPropertyBits uint32
	Caption             string
	PicturePosition     uint32
	Size                binrec.Size
	MousePointer        uint8
	Accelerator         uint16
	Picture             *Picture
	MouseIcon           *Picture
	TextProps           *TextProps
}

func (*CommandButton) control() {}

// DecodeCommandButton reads a command button record spanning all of r.
func DecodeCommandButton(r *binrec.Reader) (*CommandButton, error) {
	h := readHeader(r)
	b := &CommandButton{MinorVersion: h.minor, MajorVersion: h.major}
	b.Mask = binrec.Mask32(r.U32())
	m := b.Mask

	var caption binrec.CCB
	if m.Has(ButtonForeColor) {
		b.ForeColor = r.Color()
	}
	if m.Has(ButtonBackColor) {
		b.BackColor = r.Color()
	}
	if m.Has(ButtonVariousPropertyBits) {
		b.VariousPropertyBits = r.U32()
	}
	if m.Has(ButtonCaption) {
		caption = r.CCB()
	}
	if m.Has(ButtonPicturePosition) {
		b.PicturePosition = r.U32()
	}
	if m.Has(ButtonMousePointer) {
		b.MousePointer = r.U8()
	}
	if m.Has(ButtonPicture) {
		r.U16()
	}
	if m.Has(ButtonAccelerator) {
		b.Accelerator = r.U16()
	}
	if m.Has(ButtonMouseIcon) {
		r.U16()
	}

	r.Align(4)
	if m.Has(ButtonCaption) {
		b.Caption = r.String(caption)
	}
	if m.Has(ButtonSize) {
		b.Size = r.Size()
	}
	if err := finish(r, h, "CommandButton"); err != nil {
		return nil, err
	}

	if m.Has(ButtonPicture) {
		b.Picture = readPicture(r)
	}
	if m.Has(ButtonMouseIcon) {
		b.MouseIcon = readPicture(r)
	}
	b.TextProps = readTextPropsTail(r)
	if err := requireConsumed(r, "CommandButton"); err != nil {
		return nil, err
	}
	return b, nil
}

// Encode serializes b; decoding the result yields b again.
func (b *CommandButton) Encode() []byte {
	w := binrec.NewWriter()
	cbAt, start := writeHeader(w, b.MinorVersion, b.MajorVersion)
	m := b.Mask
	w.U32(uint32(m))

	caption := textCCB(b.Caption)
	if m.Has(ButtonForeColor) {
		w.Color(b.ForeColor)
	}
	if m.Has(ButtonBackColor) {
		w.Color(b.BackColor)
	}
	if m.Has(ButtonVariousPropertyBits) {
		w.U32(b.VariousPropertyBits)
	}
	if m.Has(ButtonCaption) {
		w.CCB(caption)
	}
	if m.Has(ButtonPicturePosition) {
		w.U32(b.PicturePosition)
	}
	if m.Has(ButtonMousePointer) {
		w.U8(b.MousePointer)
	}
	if m.Has(ButtonPicture) {
		w.U16(streamMarker)
	}
	if m.Has(ButtonAccelerator) {
		w.U16(b.Accelerator)
	}
	if m.Has(ButtonMouseIcon) {
		w.U16(streamMarker)
	}

	w.Align(4)
	if m.Has(ButtonCaption) {
		w.String(b.Caption, caption.Compressed)
	}
	if m.Has(ButtonSize) {
		w.Size(b.Size)
	}
	finishHeader(w, cbAt, start)

	if m.Has(ButtonPicture) {
		writePicture(w, b.Picture)
	}
	if m.Has(ButtonMouseIcon) {
		writePicture(w, b.MouseIcon)
	}
	writeTextPropsTail(w, b.TextProps)
	return w.Bytes()
}
