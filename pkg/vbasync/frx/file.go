package frx

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/arthur-debert/vbasync/pkg/vbasync/binrec"
	"github.com/arthur-debert/vbasync/pkg/vbasync/core"
	"github.com/arthur-debert/vbasync/pkg/vbasync/storage"
	"github.com/arthur-debert/vbasync/pkg/vbasync/storage/cfb"
)

// PreambleSize is the length of the header in front of the compound file
// inside a .frx file: 16 reserved bytes, the u32 payload size and 4 more
// reserved bytes.
const PreambleSize = 24

// FormTree is a decoded designer storage.
type FormTree struct {
	Form *FormControl
	// Controls holds one companion record per site, nil for sites that
	// have no bytes in the "o" stream.
	Controls []Control
	// Children are nested designer storages such as frames, by name.
	Children map[string]*FormTree
	// Streams holds every other stream byte for byte.
	Streams map[string][]byte
}

// DecodeStorage decodes a designer storage and its nested storages.
func DecodeStorage(s storage.Storage) (*FormTree, error) {
	f, ok := s.Stream("f")
	if !ok {
		return nil, fmt.Errorf("designer storage has no \"f\" stream: %w", core.ErrMissingSection)
	}
	form, err := DecodeForm(binrec.NewReader("f", f))
	if err != nil {
		return nil, err
	}
	t := &FormTree{
		Form:     form,
		Children: map[string]*FormTree{},
		Streams:  map[string][]byte{},
	}

	o, _ := s.Stream("o")
	r := binrec.NewReader("o", o)
	for _, site := range form.Sites {
		if site.ObjectStreamSize == 0 {
			t.Controls = append(t.Controls, nil)
			continue
		}
		data := r.Bytes(int(site.ObjectStreamSize))
		if r.Err() != nil {
			return nil, r.Err()
		}
		c, err := DecodeControl(site.ClassIndex, data, site.Name)
		if err != nil {
			return nil, err
		}
		t.Controls = append(t.Controls, c)
	}
	if err := requireConsumed(r, "o"); err != nil {
		return nil, err
	}

	for _, e := range s.Entries() {
		switch {
		case e.IsStorage:
			child, _ := s.Storage(e.Name)
			ct, err := DecodeStorage(child)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", e.Name, err)
			}
			t.Children[e.Name] = ct
		case e.Name != "f" && e.Name != "o":
			data, _ := s.Stream(e.Name)
			t.Streams[e.Name] = data
		}
	}
	return t, nil
}

// EncodeStorage writes t into dst. Site object stream sizes are recomputed
// from the encoded controls.
func (t *FormTree) EncodeStorage(dst storage.Storage) error {
	form := *t.Form
	form.Sites = append([]Site(nil), t.Form.Sites...)

	var o bytes.Buffer
	for i := range form.Sites {
		var c Control
		if i < len(t.Controls) {
			c = t.Controls[i]
		}
		data, err := EncodeControl(c)
		if err != nil {
			return err
		}
		form.Sites[i].ObjectStreamSize = uint32(len(data))
		if len(data) > 0 {
			form.Sites[i].Mask = form.Sites[i].Mask.With(SiteObjectStreamSize, true)
		}
		o.Write(data)
	}
	dst.SetStream("f", form.Encode())
	dst.SetStream("o", o.Bytes())

	for _, name := range sortedKeys(t.Streams) {
		dst.SetStream(name, t.Streams[name])
	}
	for _, name := range sortedKeys(t.Children) {
		if err := t.Children[name].EncodeStorage(dst.AddStorage(name)); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ReadFile unwraps a .frx file into its compound file storage.
func ReadFile(data []byte) (*storage.Memory, error) {
	if len(data) < PreambleSize {
		return nil, fmt.Errorf("frx: %d bytes is shorter than the preamble: %w", len(data), core.ErrSizeMismatch)
	}
	root, err := cfb.Read(data[PreambleSize:])
	if err != nil {
		return nil, fmt.Errorf("frx: %w", err)
	}
	return root, nil
}

// WriteFile wraps a designer storage into .frx bytes.
func WriteFile(root *storage.Memory) ([]byte, error) {
	payload, err := cfb.Write(root)
	if err != nil {
		return nil, err
	}
	out := make([]byte, PreambleSize, PreambleSize+len(payload))
	binary.LittleEndian.PutUint32(out[16:], uint32(len(payload)))
	return append(out, payload...), nil
}

// DecodeFile decodes a .frx file.
func DecodeFile(data []byte) (*FormTree, error) {
	root, err := ReadFile(data)
	if err != nil {
		return nil, err
	}
	return DecodeStorage(root)
}

// EncodeFile encodes t as a .frx file.
func EncodeFile(t *FormTree) ([]byte, error) {
	root := storage.NewMemory()
	if err := t.EncodeStorage(root); err != nil {
		return nil, err
	}
	return WriteFile(root)
}
