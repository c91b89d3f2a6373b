package frx

import "github.com/arthur-debert/vbasync/pkg/vbasync/binrec"

// MorphData mask bits. The mask is 64 bits wide; GroupName lives above
// bit 31.
const (
	MorphVariousPropertyBits = 0
	MorphBackColor           = 1
	MorphForeColor           = 2
	MorphMaxLength           = 3
	MorphBorderStyle         = 4
	MorphScrollBars          = 5
	MorphDisplayStyle        = 6
	MorphMousePointer        = 7
	MorphSize                = 8
	MorphPasswordChar        = 9
	MorphListWidth           = 10
	MorphBoundColumn         = 11
	MorphTextColumn          = 12
	MorphColumnCount         = 13
	MorphListRows            = 14
	MorphColumnInfoCount     = 15
	MorphMatchEntry          = 16
	MorphListStyle           = 17
	MorphShowDropButtonWhen  = 18
	MorphDropButtonStyle     = 20
	MorphMultiSelect         = 21
	MorphValue               = 22
	MorphCaption             = 23
	MorphPicturePosition     = 24
	MorphBorderColor         = 25
	MorphSpecialEffect       = 26
	MorphMouseIcon           = 27
	MorphPicture             = 28
	MorphAccelerator         = 29
	MorphGroupName           = 32
)

// Morph is a MorphDataControl, the shared record behind text boxes, list
// boxes, combo boxes, check boxes, option buttons and toggle buttons.
type Morph struct {
	MinorVersion        uint8
	MajorVersion        uint8
	Mask                binrec.Mask64
	VariousPropertyBits uint32
	BackColor           binrec.Color
	ForeColor           binrec.Color
	MaxLength           uint32
	BorderStyle         uint8
	ScrollBars          uint8
	DisplayStyle        uint8
	MousePointer        uint8
	Size                binrec.Size
	PasswordChar        uint16
	ListWidth           uint32
	BoundColumn         uint16
	TextColumn          int16
	ColumnCount         int16
	ListRows            uint16
	MatchEntry          uint8
	ListStyle           uint8
	ShowDropButtonWhen  uint8
	DropButtonStyle     uint8
	MultiSelect         uint8
	Value               string
	Caption             string
	PicturePosition     uint32
	BorderColor         binrec.Color
	SpecialEffect       uint32
	Accelerator         uint16
	GroupName           string
	MouseIcon           *Picture
	Picture             *Picture
	Columns             []ColumnInfo
	TextProps           *TextProps
}

func (*Morph) control() {}

// ColumnInfo holds per-column list settings.
type ColumnInfo struct {
	MinorVersion uint8
	MajorVersion uint8
	Mask         binrec.Mask32
	ColumnWidth  int32
}

const columnWidth = 0

func decodeColumnInfo(r *binrec.Reader) ColumnInfo {
	h := readHeader(r)
	c := ColumnInfo{MinorVersion: h.minor, MajorVersion: h.major}
	c.Mask = binrec.Mask32(r.U32())
	if c.Mask.Has(columnWidth) {
		c.ColumnWidth = r.I32()
	}
	finish(r, h, "ColumnInfo")
	return c
}

func (c ColumnInfo) encode() []byte {
	w := binrec.NewWriter()
	cbAt, start := writeHeader(w, c.MinorVersion, c.MajorVersion)
	w.U32(uint32(c.Mask))
	if c.Mask.Has(columnWidth) {
		w.I32(c.ColumnWidth)
	}
	finishHeader(w, cbAt, start)
	return w.Bytes()
}

// DecodeMorph reads a morph data record spanning all of r.
func DecodeMorph(r *binrec.Reader) (*Morph, error) {
	h := readHeader(r)
	d := &Morph{MinorVersion: h.minor, MajorVersion: h.major}
	d.Mask = binrec.Mask64(r.U64())
	m := d.Mask

	var value, caption, group binrec.CCB
	var columns uint16
	if m.Has(MorphVariousPropertyBits) {
		d.VariousPropertyBits = r.U32()
	}
	if m.Has(MorphBackColor) {
		d.BackColor = r.Color()
	}
	if m.Has(MorphForeColor) {
		d.ForeColor = r.Color()
	}
	if m.Has(MorphMaxLength) {
		d.MaxLength = r.U32()
	}
	if m.Has(MorphBorderStyle) {
		d.BorderStyle = r.U8()
	}
	if m.Has(MorphScrollBars) {
		d.ScrollBars = r.U8()
	}
	if m.Has(MorphDisplayStyle) {
		d.DisplayStyle = r.U8()
	}
	if m.Has(MorphMousePointer) {
		d.MousePointer = r.U8()
	}
	if m.Has(MorphPasswordChar) {
		d.PasswordChar = r.U16()
	}
	if m.Has(MorphListWidth) {
		d.ListWidth = r.U32()
	}
	if m.Has(MorphBoundColumn) {
		d.BoundColumn = r.U16()
	}
	if m.Has(MorphTextColumn) {
		d.TextColumn = r.I16()
	}
	if m.Has(MorphColumnCount) {
		d.ColumnCount = r.I16()
	}
	if m.Has(MorphListRows) {
		d.ListRows = r.U16()
	}
	if m.Has(MorphColumnInfoCount) {
		columns = r.U16()
	}
	if m.Has(MorphMatchEntry) {
		d.MatchEntry = r.U8()
	}
	if m.Has(MorphListStyle) {
		d.ListStyle = r.U8()
	}
	if m.Has(MorphShowDropButtonWhen) {
		d.ShowDropButtonWhen = r.U8()
	}
	if m.Has(MorphDropButtonStyle) {
		d.DropButtonStyle = r.U8()
	}
	if m.Has(MorphMultiSelect) {
		d.MultiSelect = r.U8()
	}
	if m.Has(MorphValue) {
		value = r.CCB()
	}
	if m.Has(MorphCaption) {
		caption = r.CCB()
	}
	if m.Has(MorphPicturePosition) {
		d.PicturePosition = r.U32()
	}
	if m.Has(MorphBorderColor) {
		d.BorderColor = r.Color()
	}
	if m.Has(MorphSpecialEffect) {
		d.SpecialEffect = r.U32()
	}
	if m.Has(MorphMouseIcon) {
		r.U16()
	}
	if m.Has(MorphPicture) {
		r.U16()
	}
	if m.Has(MorphAccelerator) {
		d.Accelerator = r.U16()
	}
	if m.Has(MorphGroupName) {
		group = r.CCB()
	}

	r.Align(4)
	if m.Has(MorphSize) {
		d.Size = r.Size()
	}
	if m.Has(MorphValue) {
		d.Value = r.String(value)
	}
	if m.Has(MorphCaption) {
		d.Caption = r.String(caption)
	}
	if m.Has(MorphGroupName) {
		d.GroupName = r.String(group)
	}
	if err := finish(r, h, "MorphData"); err != nil {
		return nil, err
	}

	if m.Has(MorphMouseIcon) {
		d.MouseIcon = readPicture(r)
	}
	if m.Has(MorphPicture) {
		d.Picture = readPicture(r)
	}
	for i := 0; i < int(columns) && r.Err() == nil; i++ {
		child := r.Fork("ColumnInfo")
		d.Columns = append(d.Columns, decodeColumnInfo(child))
		r.Advance(child)
	}
	d.TextProps = readTextPropsTail(r)
	if err := requireConsumed(r, "MorphData"); err != nil {
		return nil, err
	}
	return d, nil
}

// Encode serializes d; decoding the result yields d again. Non-empty
// Columns force the column count bit on.
func (d *Morph) Encode() []byte {
	w := binrec.NewWriter()
	cbAt, start := writeHeader(w, d.MinorVersion, d.MajorVersion)
	m := d.Mask
	if len(d.Columns) > 0 {
		m = m.With(MorphColumnInfoCount, true)
	}
	w.U64(uint64(m))

	value := textCCB(d.Value)
	caption := textCCB(d.Caption)
	group := textCCB(d.GroupName)
	if m.Has(MorphVariousPropertyBits) {
		w.U32(d.VariousPropertyBits)
	}
	if m.Has(MorphBackColor) {
		w.Color(d.BackColor)
	}
	if m.Has(MorphForeColor) {
		w.Color(d.ForeColor)
	}
	if m.Has(MorphMaxLength) {
		w.U32(d.MaxLength)
	}
	if m.Has(MorphBorderStyle) {
		w.U8(d.BorderStyle)
	}
	if m.Has(MorphScrollBars) {
		w.U8(d.ScrollBars)
	}
	if m.Has(MorphDisplayStyle) {
		w.U8(d.DisplayStyle)
	}
	if m.Has(MorphMousePointer) {
		w.U8(d.MousePointer)
	}
	if m.Has(MorphPasswordChar) {
		w.U16(d.PasswordChar)
	}
	if m.Has(MorphListWidth) {
		w.U32(d.ListWidth)
	}
	if m.Has(MorphBoundColumn) {
		w.U16(d.BoundColumn)
	}
	if m.Has(MorphTextColumn) {
		w.I16(d.TextColumn)
	}
	if m.Has(MorphColumnCount) {
		w.I16(d.ColumnCount)
	}
	if m.Has(MorphListRows) {
		w.U16(d.ListRows)
	}
	if m.Has(MorphColumnInfoCount) {
		w.U16(uint16(len(d.Columns)))
	}
	if m.Has(MorphMatchEntry) {
		w.U8(d.MatchEntry)
	}
	if m.Has(MorphListStyle) {
		w.U8(d.ListStyle)
	}
	if m.Has(MorphShowDropButtonWhen) {
		w.U8(d.ShowDropButtonWhen)
	}
	if m.Has(MorphDropButtonStyle) {
		w.U8(d.DropButtonStyle)
	}
	if m.Has(MorphMultiSelect) {
		w.U8(d.MultiSelect)
	}
	if m.Has(MorphValue) {
		w.CCB(value)
	}
	if m.Has(MorphCaption) {
		w.CCB(caption)
	}
	if m.Has(MorphPicturePosition) {
		w.U32(d.PicturePosition)
	}
	if m.Has(MorphBorderColor) {
		w.Color(d.BorderColor)
	}
	if m.Has(MorphSpecialEffect) {
		w.U32(d.SpecialEffect)
	}
	if m.Has(MorphMouseIcon) {
		w.U16(streamMarker)
	}
	if m.Has(MorphPicture) {
		w.U16(streamMarker)
	}
	if m.Has(MorphAccelerator) {
		w.U16(d.Accelerator)
	}
	if m.Has(MorphGroupName) {
		w.CCB(group)
	}

	w.Align(4)
	if m.Has(MorphSize) {
		w.Size(d.Size)
	}
	if m.Has(MorphValue) {
		w.String(d.Value, value.Compressed)
	}
	if m.Has(MorphCaption) {
		w.String(d.Caption, caption.Compressed)
	}
	if m.Has(MorphGroupName) {
		w.String(d.GroupName, group.Compressed)
	}
	finishHeader(w, cbAt, start)

	if m.Has(MorphMouseIcon) {
		writePicture(w, d.MouseIcon)
	}
	if m.Has(MorphPicture) {
		writePicture(w, d.Picture)
	}
	for _, c := range d.Columns {
		w.Write(c.encode())
	}
	writeTextPropsTail(w, d.TextProps)
	return w.Bytes()
}
