package frx

import "github.com/arthur-debert/vbasync/pkg/vbasync/binrec"

// TextProps mask bits.
const (
	TextPropsFontName           = 0
	TextPropsFontEffects        = 1
	TextPropsFontHeight         = 2
	TextPropsFontCharSet        = 4
	TextPropsFontPitchAndFamily = 5
	TextPropsParagraphAlign     = 6
	TextPropsFontWeight         = 7
)

// TextProps is a TextPropsControl: the font of a control that shows text.
type TextProps struct {
	MinorVersion       uint8
	MajorVersion       uint8
	Mask               binrec.Mask32
	FontName           string
	FontEffects        uint32
	FontHeight         uint32
	FontCharSet        uint8
	FontPitchAndFamily uint8
	ParagraphAlign     uint8
	FontWeight         uint16
}

// DecodeTextProps reads a TextPropsControl starting at r's base.
func DecodeTextProps(r *binrec.Reader) (*TextProps, error) {
	h := readHeader(r)
	t := &TextProps{MinorVersion: h.minor, MajorVersion: h.major}
	t.Mask = binrec.Mask32(r.U32())
	m := t.Mask

	var name binrec.CCB
	if m.Has(TextPropsFontName) {
		name = r.CCB()
	}
	if m.Has(TextPropsFontEffects) {
		t.FontEffects = r.U32()
	}
	if m.Has(TextPropsFontHeight) {
		t.FontHeight = r.U32()
	}
	if m.Has(TextPropsFontCharSet) {
		t.FontCharSet = r.U8()
	}
	if m.Has(TextPropsFontPitchAndFamily) {
		t.FontPitchAndFamily = r.U8()
	}
	if m.Has(TextPropsParagraphAlign) {
		t.ParagraphAlign = r.U8()
	}
	if m.Has(TextPropsFontWeight) {
		t.FontWeight = r.U16()
	}

	r.Align(4)
	if m.Has(TextPropsFontName) {
		t.FontName = r.String(name)
	}
	if err := finish(r, h, "TextProps"); err != nil {
		return nil, err
	}
	return t, nil
}

// Encode serializes t; decoding the result yields t again.
func (t *TextProps) Encode() []byte {
	w := binrec.NewWriter()
	cbAt, start := writeHeader(w, t.MinorVersion, t.MajorVersion)
	m := t.Mask
	w.U32(uint32(m))

	name := textCCB(t.FontName)
	if m.Has(TextPropsFontName) {
		w.CCB(name)
	}
	if m.Has(TextPropsFontEffects) {
		w.U32(t.FontEffects)
	}
	if m.Has(TextPropsFontHeight) {
		w.U32(t.FontHeight)
	}
	if m.Has(TextPropsFontCharSet) {
		w.U8(t.FontCharSet)
	}
	if m.Has(TextPropsFontPitchAndFamily) {
		w.U8(t.FontPitchAndFamily)
	}
	if m.Has(TextPropsParagraphAlign) {
		w.U8(t.ParagraphAlign)
	}
	if m.Has(TextPropsFontWeight) {
		w.U16(t.FontWeight)
	}

	w.Align(4)
	if m.Has(TextPropsFontName) {
		w.String(t.FontName, name.Compressed)
	}
	finishHeader(w, cbAt, start)
	return w.Bytes()
}
