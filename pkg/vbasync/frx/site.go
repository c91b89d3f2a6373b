package frx

import (
	"fmt"

	"github.com/arthur-debert/vbasync/pkg/vbasync/binrec"
	"github.com/arthur-debert/vbasync/pkg/vbasync/core"
)

// OleSiteConcreteControl mask bits.
const (
	SiteName             = 0
	SiteTag              = 1
	SiteID               = 2
	SiteHelpContextID    = 3
	SiteBitFlags         = 4
	SiteObjectStreamSize = 5
	SiteTabIndex         = 6
	SiteClassIndex       = 7
	SitePosition         = 8
	SiteGroupID          = 9
	SiteControlTipText   = 11
	SiteRuntimeLicKey    = 12
	SiteControlSource    = 13
	SiteRowSource        = 14
)

// SiteTypeOle is the only site type defined for the depth/type table.
const SiteTypeOle = 1

// Class indexes of controls whose companion records are decoded.
const (
	ClassForm          = 7
	ClassImage         = 12
	ClassFrame         = 14
	ClassMorphData     = 15
	ClassSpinButton    = 16
	ClassCommandButton = 17
	ClassTabStrip      = 18
	ClassLabel         = 21
	ClassTextBox       = 23
	ClassListBox       = 24
	ClassComboBox      = 25
	ClassCheckBox      = 26
	ClassOptionButton  = 27
	ClassToggleButton  = 28
	ClassScrollBar     = 47
	ClassMultiPage     = 57
)

// Site is one OleSiteConcreteControl from a form's site table, together
// with its entry in the depth/type table.
type Site struct {
	Depth            uint8
	Type             uint8
	Version          uint16
	Mask             binrec.Mask32
	Name             string
	Tag              string
	ID               int32
	HelpContextID    int32
	BitFlags         uint32
	ObjectStreamSize uint32 `frx:"size"`
	TabIndex         int16
	ClassIndex       uint16
	GroupID          uint16
	Position         binrec.Position
	ControlTipText   string
	RuntimeLicKey    string
	ControlSource    string
	RowSource        string
}

func decodeSite(r *binrec.Reader) (Site, error) {
	var s Site
	s.Version = r.U16()
	declared := int(r.U16())
	start := r.Pos()
	s.Mask = binrec.Mask32(r.U32())
	m := s.Mask

	var name, tag, tip, lic, src, rows binrec.CCB
	if m.Has(SiteName) {
		name = r.CCB()
	}
	if m.Has(SiteTag) {
		tag = r.CCB()
	}
	if m.Has(SiteID) {
		s.ID = r.I32()
	}
	if m.Has(SiteHelpContextID) {
		s.HelpContextID = r.I32()
	}
	if m.Has(SiteBitFlags) {
		s.BitFlags = r.U32()
	}
	if m.Has(SiteObjectStreamSize) {
		s.ObjectStreamSize = r.U32()
	}
	if m.Has(SiteTabIndex) {
		s.TabIndex = r.I16()
	}
	if m.Has(SiteClassIndex) {
		s.ClassIndex = r.U16()
	}
	if m.Has(SiteGroupID) {
		s.GroupID = r.U16()
	}
	if m.Has(SiteControlTipText) {
		tip = r.CCB()
	}
	if m.Has(SiteRuntimeLicKey) {
		lic = r.CCB()
	}
	if m.Has(SiteControlSource) {
		src = r.CCB()
	}
	if m.Has(SiteRowSource) {
		rows = r.CCB()
	}

	r.Align(4)
	if m.Has(SiteName) {
		s.Name = r.String(name)
	}
	if m.Has(SiteTag) {
		s.Tag = r.String(tag)
	}
	if m.Has(SitePosition) {
		s.Position = r.Position()
	}
	if m.Has(SiteControlTipText) {
		s.ControlTipText = r.String(tip)
	}
	if m.Has(SiteRuntimeLicKey) {
		s.RuntimeLicKey = r.String(lic)
	}
	if m.Has(SiteControlSource) {
		s.ControlSource = r.String(src)
	}
	if m.Has(SiteRowSource) {
		s.RowSource = r.String(rows)
	}
	r.Align(4)
	return s, r.AssertConsumed(declared, start, "OleSiteConcreteControl")
}

func (s *Site) encode(w *binrec.Writer) {
	w.Align(4)
	w.U16(s.Version)
	cbAt := w.Reserve16()
	start := w.Len()
	m := s.Mask
	w.U32(uint32(m))

	name, tag := textCCB(s.Name), textCCB(s.Tag)
	tip, lic := textCCB(s.ControlTipText), textCCB(s.RuntimeLicKey)
	src, rows := textCCB(s.ControlSource), textCCB(s.RowSource)
	if m.Has(SiteName) {
		w.CCB(name)
	}
	if m.Has(SiteTag) {
		w.CCB(tag)
	}
	if m.Has(SiteID) {
		w.I32(s.ID)
	}
	if m.Has(SiteHelpContextID) {
		w.I32(s.HelpContextID)
	}
	if m.Has(SiteBitFlags) {
		w.U32(s.BitFlags)
	}
	if m.Has(SiteObjectStreamSize) {
		w.U32(s.ObjectStreamSize)
	}
	if m.Has(SiteTabIndex) {
		w.I16(s.TabIndex)
	}
	if m.Has(SiteClassIndex) {
		w.U16(s.ClassIndex)
	}
	if m.Has(SiteGroupID) {
		w.U16(s.GroupID)
	}
	if m.Has(SiteControlTipText) {
		w.CCB(tip)
	}
	if m.Has(SiteRuntimeLicKey) {
		w.CCB(lic)
	}
	if m.Has(SiteControlSource) {
		w.CCB(src)
	}
	if m.Has(SiteRowSource) {
		w.CCB(rows)
	}

	w.Align(4)
	if m.Has(SiteName) {
		w.String(s.Name, name.Compressed)
	}
	if m.Has(SiteTag) {
		w.String(s.Tag, tag.Compressed)
	}
	if m.Has(SitePosition) {
		w.Position(s.Position)
	}
	if m.Has(SiteControlTipText) {
		w.String(s.ControlTipText, tip.Compressed)
	}
	if m.Has(SiteRuntimeLicKey) {
		w.String(s.RuntimeLicKey, lic.Compressed)
	}
	if m.Has(SiteControlSource) {
		w.String(s.ControlSource, src.Compressed)
	}
	if m.Has(SiteRowSource) {
		w.String(s.RowSource, rows.Compressed)
	}
	w.Align(4)
	w.Patch16(cbAt, uint16(w.Len()-start))
}

// readSiteTable reads the depth/type table and the sites it announces.
// CountOfBytes covers everything after itself through the last site.
func readSiteTable(r *binrec.Reader) ([]Site, error) {
	count := int(r.U32())
	declared := int(r.U32())
	start := r.Pos()

	type depthType struct{ depth, typ uint8 }
	var entries []depthType
	for len(entries) < count && r.Err() == nil {
		depth := r.U8()
		typeOrCount := r.U8()
		if typeOrCount&0x80 == 0 {
			entries = append(entries, depthType{depth, typeOrCount})
			continue
		}
		typ := r.U8()
		for n := int(typeOrCount & 0x7F); n > 0; n-- {
			entries = append(entries, depthType{depth, typ})
		}
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	if len(entries) != count {
		return nil, &core.SizeMismatchError{
			Stream:   r.Stream(),
			Path:     "SiteDepthsAndTypes",
			Declared: count,
			Consumed: len(entries),
		}
	}
	r.Align(4)

	sites := make([]Site, 0, count)
	for i, e := range entries {
		child := r.Fork(fmt.Sprintf("Site[%d]", i))
		s, err := decodeSite(child)
		r.Advance(child)
		if err != nil {
			return nil, err
		}
		s.Depth, s.Type = e.depth, e.typ
		sites = append(sites, s)
	}
	return sites, r.AssertConsumed(declared, start, "FormSiteData")
}

func writeSiteTable(w *binrec.Writer, sites []Site) {
	w.U32(uint32(len(sites)))
	sizeAt := w.Reserve32()
	start := w.Len()
	for i := 0; i < len(sites); {
		j := i + 1
		for j < len(sites) && j-i < 0x7F &&
			sites[j].Depth == sites[i].Depth && sites[j].Type == sites[i].Type {
			j++
		}
		if run := j - i; run > 1 {
			w.U8(sites[i].Depth)
			w.U8(0x80 | uint8(run))
			w.U8(sites[i].Type)
		} else {
			w.U8(sites[i].Depth)
			w.U8(sites[i].Type)
		}
		i = j
	}
	for i := range sites {
		sites[i].encode(w)
	}
	w.Patch32(sizeAt, uint32(w.Len()-start))
}
