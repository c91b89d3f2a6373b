package frx

import (
	"fmt"

	"github.com/arthur-debert/vbasync/pkg/vbasync/binrec"
)

// FormControl mask bits.
const (
	FormBackColor         = 1
	FormForeColor         = 2
	FormNextAvailableID   = 3
	FormBooleanProperties = 6
	FormBorderStyle       = 7
	FormMousePointer      = 8
	FormScrollBars        = 9
	FormDisplayedSize     = 10
	FormLogicalSize       = 11
	FormScrollPosition    = 12
	FormGroupCnt          = 13
	FormMouseIcon         = 15
	FormCycle             = 16
	FormSpecialEffect     = 17
	FormBorderColor       = 18
	FormCaption           = 19
	FormFont              = 20
	FormPicture           = 21
	FormZoom              = 22
	FormPictureAlignment  = 23
	FormPictureTiling     = 24
	FormPictureSizeMode   = 25
	FormShapeCookie       = 26
	FormDrawBuffer        = 27
)

// FormDontSaveClassTable in BooleanProperties omits the site class table.
const FormDontSaveClassTable = 0x8000

// ClassInfo is one entry of the site class table, kept undecoded.
type ClassInfo struct {
	Version uint16
	Data    []byte
}

// FormControl is the record in a designer storage's "f" stream, including
// its class table and site table.
type FormControl struct {
	MinorVersion      uint8
	MajorVersion      uint8
	Mask              binrec.Mask32
	BackColor         binrec.Color
	ForeColor         binrec.Color
	NextAvailableID   uint32
	BooleanProperties uint32
	BorderStyle       uint8
	MousePointer      uint8
	ScrollBars        uint8
	GroupCnt          int32
	Cycle             uint8
	SpecialEffect     uint8
	BorderColor       binrec.Color
	Caption           string
	Zoom              uint32
	PictureAlignment  uint8
	PictureSizeMode   uint8
	ShapeCookie       uint32
	DrawBuffer        uint32
	DisplayedSize     binrec.Size
	LogicalSize       binrec.Size
	ScrollPosition    binrec.Position
	MouseIcon         *Picture
	Font              *Font
	Picture           *Picture
	Classes           []ClassInfo
	Sites             []Site
}

// DecodeForm reads a whole "f" stream.
func DecodeForm(r *binrec.Reader) (*FormControl, error) {
	h := readHeader(r)
	f := &FormControl{MinorVersion: h.minor, MajorVersion: h.major}
	f.Mask = binrec.Mask32(r.U32())
	m := f.Mask

	var caption binrec.CCB
	if m.Has(FormBackColor) {
		f.BackColor = r.Color()
	}
	if m.Has(FormForeColor) {
		f.ForeColor = r.Color()
	}
	if m.Has(FormNextAvailableID) {
		f.NextAvailableID = r.U32()
	}
	if m.Has(FormBooleanProperties) {
		f.BooleanProperties = r.U32()
	}
	if m.Has(FormBorderStyle) {
		f.BorderStyle = r.U8()
	}
	if m.Has(FormMousePointer) {
		f.MousePointer = r.U8()
	}
	if m.Has(FormScrollBars) {
		f.ScrollBars = r.U8()
	}
	if m.Has(FormGroupCnt) {
		f.GroupCnt = r.I32()
	}
	if m.Has(FormMouseIcon) {
		r.U16()
	}
	if m.Has(FormCycle) {
		f.Cycle = r.U8()
	}
	if m.Has(FormSpecialEffect) {
		f.SpecialEffect = r.U8()
	}
	if m.Has(FormBorderColor) {
		f.BorderColor = r.Color()
	}
	if m.Has(FormCaption) {
		caption = r.CCB()
	}
	if m.Has(FormFont) {
		r.U16()
	}
	if m.Has(FormPicture) {
		r.U16()
	}
	if m.Has(FormZoom) {
		f.Zoom = r.U32()
	}
	if m.Has(FormPictureAlignment) {
		f.PictureAlignment = r.U8()
	}
	if m.Has(FormPictureSizeMode) {
		f.PictureSizeMode = r.U8()
	}
	if m.Has(FormShapeCookie) {
		f.ShapeCookie = r.U32()
	}
	if m.Has(FormDrawBuffer) {
		f.DrawBuffer = r.U32()
	}

	r.Align(4)
	if m.Has(FormDisplayedSize) {
		f.DisplayedSize = r.Size()
	}
	if m.Has(FormLogicalSize) {
		f.LogicalSize = r.Size()
	}
	if m.Has(FormScrollPosition) {
		f.ScrollPosition = r.Position()
	}
	if m.Has(FormCaption) {
		f.Caption = r.String(caption)
	}
	if err := finish(r, h, "FormControl"); err != nil {
		return nil, err
	}

	if m.Has(FormMouseIcon) {
		f.MouseIcon = readPicture(r)
	}
	if m.Has(FormFont) {
		f.Font = readFont(r)
	}
	if m.Has(FormPicture) {
		f.Picture = readPicture(r)
	}

	if f.BooleanProperties&FormDontSaveClassTable == 0 {
		n := int(r.U16())
		for i := 0; i < n && r.Err() == nil; i++ {
			c := ClassInfo{Version: r.U16()}
			c.Data = r.Bytes(int(r.U16()))
			f.Classes = append(f.Classes, c)
		}
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	r.Align(4)
	sites, err := readSiteTable(r)
	if err != nil {
		return nil, err
	}
	f.Sites = sites
	if err := requireConsumed(r, "FormControl"); err != nil {
		return nil, err
	}
	return f, nil
}

// Encode serializes f with its class and site tables.
func (f *FormControl) Encode() []byte {
	w := binrec.NewWriter()
	cbAt, start := writeHeader(w, f.MinorVersion, f.MajorVersion)
	m := f.Mask
	w.U32(uint32(m))

	caption := textCCB(f.Caption)
	if m.Has(FormBackColor) {
		w.Color(f.BackColor)
	}
	if m.Has(FormForeColor) {
		w.Color(f.ForeColor)
	}
	if m.Has(FormNextAvailableID) {
		w.U32(f.NextAvailableID)
	}
	if m.Has(FormBooleanProperties) {
		w.U32(f.BooleanProperties)
	}
	if m.Has(FormBorderStyle) {
		w.U8(f.BorderStyle)
	}
	if m.Has(FormMousePointer) {
		w.U8(f.MousePointer)
	}
	if m.Has(FormScrollBars) {
		w.U8(f.ScrollBars)
	}
	if m.Has(FormGroupCnt) {
		w.I32(f.GroupCnt)
	}
	if m.Has(FormMouseIcon) {
		w.U16(streamMarker)
	}
	if m.Has(FormCycle) {
		w.U8(f.Cycle)
	}
	if m.Has(FormSpecialEffect) {
		w.U8(f.SpecialEffect)
	}
	if m.Has(FormBorderColor) {
		w.Color(f.BorderColor)
	}
	if m.Has(FormCaption) {
		w.CCB(caption)
	}
	if m.Has(FormFont) {
		w.U16(streamMarker)
	}
	if m.Has(FormPicture) {
		w.U16(streamMarker)
	}
	if m.Has(FormZoom) {
		w.U32(f.Zoom)
	}
	if m.Has(FormPictureAlignment) {
		w.U8(f.PictureAlignment)
	}
	if m.Has(FormPictureSizeMode) {
		w.U8(f.PictureSizeMode)
	}
	if m.Has(FormShapeCookie) {
		w.U32(f.ShapeCookie)
	}
	if m.Has(FormDrawBuffer) {
		w.U32(f.DrawBuffer)
	}

	w.Align(4)
	if m.Has(FormDisplayedSize) {
		w.Size(f.DisplayedSize)
	}
	if m.Has(FormLogicalSize) {
		w.Size(f.LogicalSize)
	}
	if m.Has(FormScrollPosition) {
		w.Position(f.ScrollPosition)
	}
	if m.Has(FormCaption) {
		w.String(f.Caption, caption.Compressed)
	}
	finishHeader(w, cbAt, start)

	if m.Has(FormMouseIcon) {
		writePicture(w, f.MouseIcon)
	}
	if m.Has(FormFont) {
		writeFont(w, f.Font)
	}
	if m.Has(FormPicture) {
		writePicture(w, f.Picture)
	}

	if f.BooleanProperties&FormDontSaveClassTable == 0 {
		w.U16(uint16(len(f.Classes)))
		for _, c := range f.Classes {
			w.U16(c.Version)
			w.U16(uint16(len(c.Data)))
			w.Write(c.Data)
		}
	}
	w.Align(4)
	writeSiteTable(w, f.Sites)
	return w.Bytes()
}

// Control is a decoded companion record from the "o" stream.
type Control interface {
	control()
}

// RawControl holds the companion bytes of a site whose class has no
// decoder. It compares byte for byte.
type RawControl struct {
	ClassIndex uint16
	Data       []byte
}

func (*RawControl) control() {}

// DecodeControl decodes one site's companion bytes by class index.
func DecodeControl(class uint16, data []byte, name string) (Control, error) {
	r := binrec.NewReader("o", data)
	r = r.Fork(name)
	switch class {
	case ClassCommandButton:
		return DecodeCommandButton(r)
	case ClassLabel:
		return DecodeLabel(r)
	case ClassTabStrip:
		return DecodeTabStrip(r)
	case ClassMorphData, ClassTextBox, ClassListBox, ClassComboBox,
		ClassCheckBox, ClassOptionButton, ClassToggleButton:
		return DecodeMorph(r)
	default:
		return &RawControl{ClassIndex: class, Data: append([]byte(nil), data...)}, nil
	}
}

// EncodeControl serializes a companion record.
func EncodeControl(c Control) ([]byte, error) {
	switch c := c.(type) {
	case *CommandButton:
		return c.Encode(), nil
	case *Label:
		return c.Encode(), nil
	case *TabStrip:
		return c.Encode(), nil
	case *Morph:
		return c.Encode(), nil
	case *RawControl:
		return c.Data, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("frx: cannot encode control %T", c)
	}
}
