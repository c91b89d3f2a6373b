package project

import (
	"bytes"
	"fmt"

	"github.com/arthur-debert/vbasync/pkg/vbasync/binrec"
	"github.com/arthur-debert/vbasync/pkg/vbasync/core"
	"github.com/arthur-debert/vbasync/pkg/vbasync/filesystem"
)

// NameMapEntry is one module name of the PROJECTwm stream.
type NameMapEntry struct {
	Name    string
	Unicode string
}

// DecodeNameMap decodes a PROJECTwm stream: pairs of a NUL-terminated
// code-page name and a NUL-terminated UTF-16 name, ended by two NULs.
func DecodeNameMap(buf []byte, codec *filesystem.Codec) ([]NameMapEntry, error) {
	r := binrec.NewReader("PROJECTwm", buf)
	var out []NameMapEntry
	for {
		if r.Remaining() >= 2 && buf[r.Pos()] == 0 && buf[r.Pos()+1] == 0 {
			r.Skip(2)
			break
		}
		i := bytes.IndexByte(buf[r.Pos():], 0)
		if i < 0 {
			return nil, fmt.Errorf("PROJECTwm: unterminated name at offset %d: %w", r.Pos(), core.ErrSizeMismatch)
		}
		name, err := codec.Decode(r.Bytes(i))
		if err != nil {
			return nil, err
		}
		r.Skip(1)

		var wide []byte
		for {
			c := r.RawU16()
			if r.Err() != nil {
				return nil, r.Err()
			}
			if c == 0 {
				break
			}
			wide = append(wide, byte(c), byte(c>>8))
		}
		unicode, err := decodeUTF16(wide)
		if err != nil {
			return nil, err
		}
		out = append(out, NameMapEntry{Name: name, Unicode: unicode})
	}
	if r.Remaining() != 0 {
		return nil, r.AssertConsumed(r.Len(), 0, "terminator")
	}
	return out, nil
}

// EncodeNameMap encodes a PROJECTwm stream.
func EncodeNameMap(entries []NameMapEntry, codec *filesystem.Codec) ([]byte, error) {
	var b bytes.Buffer
	for _, e := range entries {
		name, err := codec.Encode(e.Name)
		if err != nil {
			return nil, err
		}
		b.Write(name)
		b.WriteByte(0)
		b.Write(encodeUTF16(e.Unicode))
		b.Write([]byte{0, 0})
	}
	b.Write([]byte{0, 0})
	return b.Bytes(), nil
}
