package frx

import "github.com/arthur-debert/vbasync/pkg/vbasync/binrec"

// Label mask bits.
const (
	LabelForeColor           = 0
	LabelBackColor           = 1
	LabelVariousPropertyBits = 2
	LabelCaption             = 3
	LabelPicturePosition     = 4
	LabelSize                = 5
	LabelMousePointer        = 6
	LabelBorderColor         = 7
	LabelBorderStyle         = 8
	LabelSpecialEffect       = 9
	LabelPicture             = 10
	LabelAccelerator         = 11
	LabelMouseIcon           = 12
)

// Label is a LabelControl.
type Label struct {
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
	BorderColor         binrec.Color
	BorderStyle         uint16
	SpecialEffect       uint16
	Accelerator         uint16
	Picture             *Picture
	MouseIcon           *Picture
	TextProps           *TextProps
}

func (*Label) control() {}

// DecodeLabel reads a label record spanning all of r.
func DecodeLabel(r *binrec.Reader) (*Label, error) {
	h := readHeader(r)
	l := &Label{MinorVersion: h.minor, MajorVersion: h.major}
	l.Mask = binrec.Mask32(r.U32())
	m := l.Mask

	var caption binrec.CCB
	if m.Has(LabelForeColor) {
		l.ForeColor = r.Color()
	}
	if m.Has(LabelBackColor) {
		l.BackColor = r.Color()
	}
	if m.Has(LabelVariousPropertyBits) {
		l.VariousPropertyBits = r.U32()
	}
	if m.Has(LabelCaption) {
		caption = r.CCB()
	}
	if m.Has(LabelPicturePosition) {
		l.PicturePosition = r.U32()
	}
	if m.Has(LabelMousePointer) {
		l.MousePointer = r.U8()
	}
	if m.Has(LabelBorderColor) {
		l.BorderColor = r.Color()
	}
	if m.Has(LabelBorderStyle) {
		l.BorderStyle = r.U16()
	}
	if m.Has(LabelSpecialEffect) {
		l.SpecialEffect = r.U16()
	}
	if m.Has(LabelPicture) {
		r.U16()
	}
	if m.Has(LabelAccelerator) {
		l.Accelerator = r.U16()
	}
	if m.Has(LabelMouseIcon) {
		r.U16()
	}

	r.Align(4)
	if m.Has(LabelCaption) {
		l.Caption = r.String(caption)
	}
	if m.Has(LabelSize) {
		l.Size = r.Size()
	}
	if err := finish(r, h, "Label"); err != nil {
		return nil, err
	}

	if m.Has(LabelPicture) {
		l.Picture = readPicture(r)
	}
	if m.Has(LabelMouseIcon) {
		l.MouseIcon = readPicture(r)
	}
	l.TextProps = readTextPropsTail(r)
	if err := requireConsumed(r, "Label"); err != nil {
		return nil, err
	}
	return l, nil
}

// Encode serializes l; decoding the result yields l again.
func (l *Label) Encode() []byte {
	w := binrec.NewWriter()
	cbAt, start := writeHeader(w, l.MinorVersion, l.MajorVersion)
	m := l.Mask
	w.U32(uint32(m))

	caption := textCCB(l.Caption)
	if m.Has(LabelForeColor) {
		w.Color(l.ForeColor)
	}
	if m.Has(LabelBackColor) {
		w.Color(l.BackColor)
	}
	if m.Has(LabelVariousPropertyBits) {
		w.U32(l.VariousPropertyBits)
	}
	if m.Has(LabelCaption) {
		w.CCB(caption)
	}
	if m.Has(LabelPicturePosition) {
		w.U32(l.PicturePosition)
	}
	if m.Has(LabelMousePointer) {
		w.U8(l.MousePointer)
	}
	if m.Has(LabelBorderColor) {
		w.Color(l.BorderColor)
	}
	if m.Has(LabelBorderStyle) {
		w.U16(l.BorderStyle)
	}
	if m.Has(LabelSpecialEffect) {
		w.U16(l.SpecialEffect)
	}
	if m.Has(LabelPicture) {
		w.U16(streamMarker)
	}
	if m.Has(LabelAccelerator) {
		w.U16(l.Accelerator)
	}
	if m.Has(LabelMouseIcon) {
		w.U16(streamMarker)
	}

	w.Align(4)
	if m.Has(LabelCaption) {
		w.String(l.Caption, caption.Compressed)
	}
	if m.Has(LabelSize) {
		w.Size(l.Size)
	}
	finishHeader(w, cbAt, start)

	if m.Has(LabelPicture) {
		writePicture(w, l.Picture)
	}
	if m.Has(LabelMouseIcon) {
		writePicture(w, l.MouseIcon)
	}
	writeTextPropsTail(w, l.TextProps)
	return w.Bytes()
}
