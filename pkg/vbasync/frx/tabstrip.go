package frx

import "github.com/arthur-debert/vbasync/pkg/vbasync/binrec"

// TabStrip mask bits.
const (
	TabListIndex           = 0
	TabBackColor           = 1
	TabForeColor           = 2
	TabSize                = 4
	TabItems               = 5
	TabMousePointer        = 6
	TabOrientation         = 8
	TabStyle               = 9
	TabMultiRow            = 10
	TabFixedWidth          = 11
	TabFixedHeight         = 12
	TabTooltips            = 13
	TabTipStrings          = 15
	TabNames               = 17
	TabVariousPropertyBits = 18
	TabNewVersion          = 19
	TabTabsAllocated       = 20
	TabTags                = 21
	TabData                = 22
	TabAccelerator         = 23
	TabMouseIcon           = 24
)

// TabStrip is a TabStripControl. Per-tab strings are kept in parallel
// arrays, each possibly empty.
type TabStrip struct {
	MinorVersion        uint8
	MajorVersion        uint8
	Mask                binrec.Mask32
	ListIndex           int32
	BackColor           binrec.Color
	ForeColor           binrec.Color
	Size                binrec.Size
	MousePointer        uint8
	TabOrientation      uint32
	TabStyle            uint32
	TabFixedWidth       uint32
	TabFixedHeight      uint32
	VariousPropertyBits uint32
	TabsAllocated       uint32
	TabCount            uint32
	Items               []string
	TipStrings          []string
	Names               []string
	Tags                []string
	Accelerators        []string
	MouseIcon           *Picture
	TextProps           *TextProps
	TabFlags            []uint32
}

func (*TabStrip) control() {}

// readStringArray reads CCB-prefixed strings until size bytes are used.
func readStringArray(r *binrec.Reader, size uint32, name string) []string {
	sub := r.Sub(int(size), name)
	var out []string
	for sub.Remaining() > 0 && sub.Err() == nil {
		s, _ := sub.CCBString()
		out = append(out, s)
	}
	if err := sub.Err(); err != nil {
		r.Fail(err)
	}
	return out
}

func encodeStringArray(items []string) []byte {
	w := binrec.NewWriter()
	for _, s := range items {
		w.CCBString(s, binrec.Compressible(s))
	}
	return w.Bytes()
}

// DecodeTabStrip reads a tab strip record spanning all of r.
func DecodeTabStrip(r *binrec.Reader) (*TabStrip, error) {
	h := readHeader(r)
	t := &TabStrip{MinorVersion: h.minor, MajorVersion: h.major}
	t.Mask = binrec.Mask32(r.U32())
	m := t.Mask

	var items, tips, names, tags, accels uint32
	if m.Has(TabListIndex) {
		t.ListIndex = r.I32()
	}
	if m.Has(TabBackColor) {
		t.BackColor = r.Color()
	}
	if m.Has(TabForeColor) {
		t.ForeColor = r.Color()
	}
	if m.Has(TabItems) {
		items = r.U32()
	}
	if m.Has(TabMousePointer) {
		t.MousePointer = r.U8()
	}
	if m.Has(TabOrientation) {
		t.TabOrientation = r.U32()
	}
	if m.Has(TabStyle) {
		t.TabStyle = r.U32()
	}
	if m.Has(TabFixedWidth) {
		t.TabFixedWidth = r.U32()
	}
	if m.Has(TabFixedHeight) {
		t.TabFixedHeight = r.U32()
	}
	if m.Has(TabTipStrings) {
		tips = r.U32()
	}
	if m.Has(TabNames) {
		names = r.U32()
	}
	if m.Has(TabVariousPropertyBits) {
		t.VariousPropertyBits = r.U32()
	}
	if m.Has(TabTabsAllocated) {
		t.TabsAllocated = r.U32()
	}
	if m.Has(TabTags) {
		tags = r.U32()
	}
	if m.Has(TabData) {
		t.TabCount = r.U32()
	}
	if m.Has(TabAccelerator) {
		accels = r.U32()
	}
	if m.Has(TabMouseIcon) {
		r.U16()
	}

	r.Align(4)
	if m.Has(TabSize) {
		t.Size = r.Size()
	}
	if m.Has(TabItems) {
		t.Items = readStringArray(r, items, "Items")
	}
	if m.Has(TabTipStrings) {
		t.TipStrings = readStringArray(r, tips, "TipStrings")
	}
	if m.Has(TabNames) {
		t.Names = readStringArray(r, names, "Names")
	}
	if m.Has(TabTags) {
		t.Tags = readStringArray(r, tags, "Tags")
	}
	if m.Has(TabAccelerator) {
		t.Accelerators = readStringArray(r, accels, "Accelerators")
	}
	if err := finish(r, h, "TabStrip"); err != nil {
		return nil, err
	}

	if m.Has(TabMouseIcon) {
		t.MouseIcon = readPicture(r)
	}
	t.TextProps = readTextPropsTail(r)
	if m.Has(TabData) {
		for i := uint32(0); i < t.TabCount && r.Err() == nil; i++ {
			t.TabFlags = append(t.TabFlags, r.RawU32())
		}
	}
	if err := requireConsumed(r, "TabStrip"); err != nil {
		return nil, err
	}
	return t, nil
}

// Encode serializes t; decoding the result yields t again. TabCount flag
// words are written, zero-filled past the end of TabFlags.
func (t *TabStrip) Encode() []byte {
	w := binrec.NewWriter()
	cbAt, start := writeHeader(w, t.MinorVersion, t.MajorVersion)
	m := t.Mask
	w.U32(uint32(m))

	items := encodeStringArray(t.Items)
	tips := encodeStringArray(t.TipStrings)
	names := encodeStringArray(t.Names)
	tags := encodeStringArray(t.Tags)
	accels := encodeStringArray(t.Accelerators)

	if m.Has(TabListIndex) {
		w.I32(t.ListIndex)
	}
	if m.Has(TabBackColor) {
		w.Color(t.BackColor)
	}
	if m.Has(TabForeColor) {
		w.Color(t.ForeColor)
	}
	if m.Has(TabItems) {
		w.U32(uint32(len(items)))
	}
	if m.Has(TabMousePointer) {
		w.U8(t.MousePointer)
	}
	if m.Has(TabOrientation) {
		w.U32(t.TabOrientation)
	}
	if m.Has(TabStyle) {
		w.U32(t.TabStyle)
	}
	if m.Has(TabFixedWidth) {
		w.U32(t.TabFixedWidth)
	}
	if m.Has(TabFixedHeight) {
		w.U32(t.TabFixedHeight)
	}
	if m.Has(TabTipStrings) {
		w.U32(uint32(len(tips)))
	}
	if m.Has(TabNames) {
		w.U32(uint32(len(names)))
	}
	if m.Has(TabVariousPropertyBits) {
		w.U32(t.VariousPropertyBits)
	}
	if m.Has(TabTabsAllocated) {
		w.U32(t.TabsAllocated)
	}
	if m.Has(TabTags) {
		w.U32(uint32(len(tags)))
	}
	if m.Has(TabData) {
		w.U32(t.TabCount)
	}
	if m.Has(TabAccelerator) {
		w.U32(uint32(len(accels)))
	}
	if m.Has(TabMouseIcon) {
		w.U16(streamMarker)
	}

	w.Align(4)
	if m.Has(TabSize) {
		w.Size(t.Size)
	}
	if m.Has(TabItems) {
		w.Write(items)
	}
	if m.Has(TabTipStrings) {
		w.Write(tips)
	}
	if m.Has(TabNames) {
		w.Write(names)
	}
	if m.Has(TabTags) {
		w.Write(tags)
	}
	if m.Has(TabAccelerator) {
		w.Write(accels)
	}
	finishHeader(w, cbAt, start)

	if m.Has(TabMouseIcon) {
		writePicture(w, t.MouseIcon)
	}
	writeTextPropsTail(w, t.TextProps)
	if m.Has(TabData) {
		for i := 0; i < int(t.TabCount); i++ {
			var f uint32
			if i < len(t.TabFlags) {
				f = t.TabFlags[i]
			}
			w.RawU32(f)
		}
	}
	return w.Bytes()
}
