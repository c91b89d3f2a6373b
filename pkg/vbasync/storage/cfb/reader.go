package cfb

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"

	"github.com/arthur-debert/vbasync/pkg/vbasync/storage"
)

type dirent struct {
	name      string
	objType   byte
	left      uint32
	right     uint32
	child     uint32
	clsid     [16]byte
	stateBits uint32
	start     uint32
	size      uint64
}

type reader struct {
	data          []byte
	sectorSize    int
	fat           []uint32
	miniFAT       []uint32
	miniStream    []byte
	dirents       []dirent
	miniCutoff    uint64
	visitedEntity map[uint32]bool
}

// Read parses a compound file into an in-memory storage tree.
func Read(data []byte) (*storage.Memory, error) {
	if len(data) < headerSize || [8]byte(data[:8]) != signature {
		return nil, ErrInvalidFormat
	}
	le := binary.LittleEndian
	shift := le.Uint16(data[30:])
	if shift != 9 && shift != 12 {
		return nil, fmt.Errorf("sector shift %d: %w", shift, ErrInvalidFormat)
	}
	r := &reader{
		data:          data,
		sectorSize:    1 << shift,
		miniCutoff:    uint64(le.Uint32(data[56:])),
		visitedEntity: make(map[uint32]bool),
	}

	numFAT := int(le.Uint32(data[44:]))
	firstDir := le.Uint32(data[48:])
	firstMiniFAT := le.Uint32(data[60:])
	firstDIFAT := le.Uint32(data[68:])
	numDIFAT := int(le.Uint32(data[72:]))

	difat := make([]uint32, 0, headerDIFATCount)
	for i := 0; i < headerDIFATCount; i++ {
		difat = append(difat, le.Uint32(data[76+4*i:]))
	}
	next := firstDIFAT
	for i := 0; i < numDIFAT && next <= maxRegSect; i++ {
		sec, err := r.sector(next)
		if err != nil {
			return nil, err
		}
		perSector := r.sectorSize/4 - 1
		for k := 0; k < perSector; k++ {
			difat = append(difat, le.Uint32(sec[4*k:]))
		}
		next = le.Uint32(sec[4*perSector:])
	}
	if numFAT > len(difat) {
		return nil, fmt.Errorf("header lists %d FAT sectors, DIFAT holds %d: %w", numFAT, len(difat), ErrCorrupt)
	}
	for _, s := range difat[:numFAT] {
		sec, err := r.sector(s)
		if err != nil {
			return nil, err
		}
		for k := 0; k < r.sectorSize/4; k++ {
			r.fat = append(r.fat, le.Uint32(sec[4*k:]))
		}
	}

	dirBytes, err := r.chain(firstDir, r.fat, r.sectorSize, r.sector)
	if err != nil {
		return nil, fmt.Errorf("directory: %w", err)
	}
	for off := 0; off+direntSize <= len(dirBytes); off += direntSize {
		r.dirents = append(r.dirents, parseDirent(dirBytes[off:off+direntSize]))
	}
	if len(r.dirents) == 0 || r.dirents[0].objType != typeRoot {
		return nil, fmt.Errorf("missing root entry: %w", ErrCorrupt)
	}

	if firstMiniFAT <= maxRegSect {
		miniFATBytes, err := r.chain(firstMiniFAT, r.fat, r.sectorSize, r.sector)
		if err != nil {
			return nil, fmt.Errorf("mini FAT: %w", err)
		}
		for off := 0; off+4 <= len(miniFATBytes); off += 4 {
			r.miniFAT = append(r.miniFAT, le.Uint32(miniFATBytes[off:]))
		}
	}
	root := r.dirents[0]
	if root.size > 0 {
		ms, err := r.chain(root.start, r.fat, r.sectorSize, r.sector)
		if err != nil {
			return nil, fmt.Errorf("mini stream: %w", err)
		}
		if uint64(len(ms)) > root.size {
			ms = ms[:root.size]
		}
		r.miniStream = ms
	}

	out := storage.NewMemory()
	out.CLSID = root.clsid
	out.StateBits = root.stateBits
	if err := r.fill(out, root.child); err != nil {
		return nil, err
	}
	return out, nil
}

func parseDirent(b []byte) dirent {
	le := binary.LittleEndian
	nameLen := int(le.Uint16(b[64:]))
	if nameLen > 64 {
		nameLen = 64
	}
	units := make([]uint16, 0, 32)
	for i := 0; i+1 < nameLen; i += 2 {
		u := le.Uint16(b[i:])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	d := dirent{
		name:      string(utf16.Decode(units)),
		objType:   b[66],
		left:      le.Uint32(b[68:]),
		right:     le.Uint32(b[72:]),
		child:     le.Uint32(b[76:]),
		stateBits: le.Uint32(b[96:]),
		start:     le.Uint32(b[116:]),
		size:      le.Uint64(b[120:]),
	}
	copy(d.clsid[:], b[80:96])
	return d
}

func (r *reader) sector(n uint32) ([]byte, error) {
	off := (int(n) + 1) * r.sectorSize
	if n > maxRegSect || off+r.sectorSize > len(r.data) {
		// The last sector of a file may be truncated
		if n <= maxRegSect && off < len(r.data) {
			sec := make([]byte, r.sectorSize)
			copy(sec, r.data[off:])
			return sec, nil
		}
		return nil, fmt.Errorf("sector %d out of range: %w", n, ErrCorrupt)
	}
	return r.data[off : off+r.sectorSize], nil
}

func (r *reader) miniSector(n uint32) ([]byte, error) {
	off := int(n) * miniSectorSize
	if off+miniSectorSize > len(r.miniStream) {
		return nil, fmt.Errorf("mini sector %d out of range: %w", n, ErrCorrupt)
	}
	return r.miniStream[off : off+miniSectorSize], nil
}

func (r *reader) chain(start uint32, table []uint32, size int, get func(uint32) ([]byte, error)) ([]byte, error) {
	var out []byte
	seen := make(map[uint32]bool)
	for s := start; s != endOfChain; {
		if s > maxRegSect || int(s) >= len(table) || seen[s] {
			return nil, fmt.Errorf("broken chain at sector %d: %w", s, ErrCorrupt)
		}
		seen[s] = true
		sec, err := get(s)
		if err != nil {
			return nil, err
		}
		out = append(out, sec[:size]...)
		s = table[s]
	}
	return out, nil
}

func (r *reader) streamData(d dirent) ([]byte, error) {
	if d.size == 0 {
		return []byte{}, nil
	}
	var (
		data []byte
		err  error
	)
	if d.size < r.miniCutoff {
		data, err = r.chain(d.start, r.miniFAT, miniSectorSize, r.miniSector)
	} else {
		data, err = r.chain(d.start, r.fat, r.sectorSize, r.sector)
	}
	if err != nil {
		return nil, fmt.Errorf("stream %q: %w", d.name, err)
	}
	if uint64(len(data)) < d.size {
		return nil, fmt.Errorf("stream %q is %d bytes, chain holds %d: %w", d.name, d.size, len(data), ErrCorrupt)
	}
	return data[:d.size], nil
}

// fill adds every entry of the sibling tree rooted at id to dst, in order.
func (r *reader) fill(dst *storage.Memory, id uint32) error {
	if id == noStream {
		return nil
	}
	if int(id) >= len(r.dirents) || r.visitedEntity[id] {
		return fmt.Errorf("bad directory link %d: %w", id, ErrCorrupt)
	}
	r.visitedEntity[id] = true
	d := r.dirents[id]

	if err := r.fill(dst, d.left); err != nil {
		return err
	}
	switch d.objType {
	case typeStorage:
		child := dst.AddMemory(d.name)
		child.CLSID = d.clsid
		child.StateBits = d.stateBits
		if err := r.fill(child, d.child); err != nil {
			return err
		}
	case typeStream:
		data, err := r.streamData(d)
		if err != nil {
			return err
		}
		dst.SetStream(d.name, data)
	}
	return r.fill(dst, d.right)
}
