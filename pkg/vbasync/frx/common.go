package frx

import (
	"github.com/google/uuid"

	"github.com/arthur-debert/vbasync/pkg/vbasync/binrec"
)

var (
	// ClassStdPicture prefixes picture stream data.
	ClassStdPicture = uuid.MustParse("0be35204-8f91-11ce-9de3-00aa004bb851")
	// ClassStdFont prefixes a StdFont in font stream data.
	ClassStdFont = uuid.MustParse("0be35203-8f91-11ce-9de3-00aa004bb851")
	// ClassTextProps prefixes a TextPropsControl in font stream data.
	ClassTextProps = uuid.MustParse("afc20920-da4e-11ce-b943-00aa006887b4")
)

const (
	picturePreamble = 0x0000746C
	// streamMarker is the DataBlock placeholder for picture and font fields
	// whose data lives in StreamData.
	streamMarker = 0xFFFF
)

// header is the fixed part shared by every control record.
type header struct {
	minor, major uint8
	declared     int
	start        int
}

func readHeader(r *binrec.Reader) header {
	var h header
	h.minor = r.U8()
	h.major = r.U8()
	h.declared = int(r.U16())
	h.start = r.Pos()
	return h
}

// writeHeader writes the versions and a placeholder for cb, returning the
// offsets needed by finishHeader.
func writeHeader(w *binrec.Writer, minor, major uint8) (cbAt, start int) {
	w.U8(minor)
	w.U8(major)
	cbAt = w.Reserve16()
	return cbAt, w.Len()
}

// finishHeader pads the ExtraDataBlock and back-patches cb.
func finishHeader(w *binrec.Writer, cbAt, start int) {
	w.Align(4)
	w.Patch16(cbAt, uint16(w.Len()-start))
}

// textCCB picks the 8-bit encoding whenever every character fits it.
func textCCB(s string) binrec.CCB {
	return binrec.CCBFor(s, binrec.Compressible(s))
}

// Picture is an embedded picture or icon from StreamData.
type Picture struct {
	Data []byte
}

func readPicture(r *binrec.Reader) *Picture {
	r.GUID()
	r.RawU32() // preamble
	n := int(r.RawU32())
	return &Picture{Data: r.Bytes(n)}
}

func writePicture(w *binrec.Writer, p *Picture) {
	if p == nil {
		p = &Picture{}
	}
	w.GUID(ClassStdPicture)
	w.RawU32(picturePreamble)
	w.RawU32(uint32(len(p.Data)))
	w.Write(p.Data)
}

// StdFont is the OLE standard font stored in form font stream data.
type StdFont struct {
	Version  uint8
	Charset  uint16
	Flags    uint8
	Weight   uint16
	Height   uint32
	FaceName string
}

// Font is GuidAndFont: either a StdFont or a TextProps record.
type Font struct {
	StdFont   *StdFont
	TextProps *TextProps
}

func readFont(r *binrec.Reader) *Font {
	class := r.GUID()
	switch class {
	case ClassStdFont:
		f := &StdFont{}
		f.Version = r.U8()
		f.Charset = r.RawU16()
		f.Flags = r.U8()
		f.Weight = r.RawU16()
		f.Height = r.RawU32()
		f.FaceName = string(r.Bytes(int(r.U8())))
		return &Font{StdFont: f}
	case ClassTextProps:
		child := r.Fork("Font")
		tp, err := DecodeTextProps(child)
		r.Advance(child)
		if err != nil {
			r.Fail(err)
			return nil
		}
		return &Font{TextProps: tp}
	default:
		r.Fail(&unknownClassError{where: "font", class: class})
		return nil
	}
}

func writeFont(w *binrec.Writer, f *Font) {
	if f == nil || (f.StdFont == nil && f.TextProps == nil) {
		f = &Font{TextProps: &TextProps{MajorVersion: 2}}
	}
	if f.StdFont != nil {
		w.GUID(ClassStdFont)
		w.U8(f.StdFont.Version)
		w.RawU16(f.StdFont.Charset)
		w.U8(f.StdFont.Flags)
		w.RawU16(f.StdFont.Weight)
		w.RawU32(f.StdFont.Height)
		w.U8(uint8(len(f.StdFont.FaceName)))
		w.Write([]byte(f.StdFont.FaceName))
		return
	}
	w.GUID(ClassTextProps)
	w.Write(f.TextProps.Encode())
}

// readTextPropsTail decodes the TextProps record that follows StreamData,
// when the range still holds bytes.
func readTextPropsTail(r *binrec.Reader) *TextProps {
	if r.Err() != nil || r.Remaining() == 0 {
		return nil
	}
	child := r.Fork("TextProps")
	tp, err := DecodeTextProps(child)
	r.Advance(child)
	if err != nil {
		r.Fail(err)
		return nil
	}
	return tp
}

func writeTextPropsTail(w *binrec.Writer, tp *TextProps) {
	if tp != nil {
		w.Write(tp.Encode())
	}
}
