package cfb

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/arthur-debert/vbasync/pkg/vbasync/storage"
)

type wEntry struct {
	name      string
	objType   byte
	clsid     [16]byte
	stateBits uint32
	data      []byte
	left      uint32
	right     uint32
	child     uint32
	start     uint32
	size      uint64
}

type writer struct {
	entries []*wEntry
}

// lessName orders names the way compound-file directories do: shorter
// names first, then by upper-cased comparison.
func lessName(a, b string) bool {
	la, lb := len(utf16.Encode([]rune(a))), len(utf16.Encode([]rune(b)))
	if la != lb {
		return la < lb
	}
	return strings.ToUpper(a) < strings.ToUpper(b)
}

func (w *writer) addChildren(parent *wEntry, m *storage.Memory) {
	entries := m.Entries()
	sort.Slice(entries, func(i, j int) bool { return lessName(entries[i].Name, entries[j].Name) })

	ids := make([]uint32, 0, len(entries))
	for _, e := range entries {
		id := uint32(len(w.entries))
		ent := &wEntry{name: e.Name, left: noStream, right: noStream, child: noStream}
		w.entries = append(w.entries, ent)
		ids = append(ids, id)
		if e.IsStorage {
			child, _ := m.Child(e.Name)
			ent.objType = typeStorage
			ent.clsid = child.CLSID
			ent.stateBits = child.StateBits
			w.addChildren(ent, child)
			continue
		}
		data, _ := m.Stream(e.Name)
		ent.objType = typeStream
		ent.data = data
		ent.size = uint64(len(data))
	}
	parent.child = w.balance(ids)
}

// balance links ids (already sorted) into a balanced binary tree and
// returns the root id.
func (w *writer) balance(ids []uint32) uint32 {
	if len(ids) == 0 {
		return noStream
	}
	mid := len(ids) / 2
	root := w.entries[ids[mid]]
	root.left = w.balance(ids[:mid])
	root.right = w.balance(ids[mid+1:])
	return ids[mid]
}

func sectorsFor(n, size int) int {
	return (n + size - 1) / size
}

// Write serializes a storage tree as a version 3 compound file.
func Write(root *storage.Memory) ([]byte, error) {
	w := &writer{}
	rootEnt := &wEntry{name: "Root Entry", objType: typeRoot, clsid: root.CLSID, stateBits: root.StateBits,
		left: noStream, right: noStream, child: noStream}
	w.entries = append(w.entries, rootEnt)
	w.addChildren(rootEnt, root)

	// Small streams go to the mini stream
	var miniStream []byte
	var miniFAT []uint32
	var large []*wEntry
	for _, e := range w.entries {
		if e.objType != typeStream {
			continue
		}
		switch {
		case e.size == 0:
			e.start = endOfChain
		case e.size < miniStreamCutoff:
			first := uint32(len(miniFAT))
			n := sectorsFor(len(e.data), miniSectorSize)
			for i := 0; i < n; i++ {
				next := uint32(len(miniFAT) + 1)
				if i == n-1 {
					next = endOfChain
				}
				miniFAT = append(miniFAT, next)
			}
			e.start = first
			miniStream = append(miniStream, e.data...)
			for len(miniStream)%miniSectorSize != 0 {
				miniStream = append(miniStream, 0)
			}
		default:
			large = append(large, e)
		}
	}

	miniStreamSectors := sectorsFor(len(miniStream), sectorSize)
	largeSectors := 0
	for _, e := range large {
		largeSectors += sectorsFor(len(e.data), sectorSize)
	}
	miniFATSectors := sectorsFor(len(miniFAT)*4, sectorSize)
	dirSectors := sectorsFor(len(w.entries)*direntSize, sectorSize)
	base := miniStreamSectors + largeSectors + miniFATSectors + dirSectors
	perFAT := sectorSize / 4
	fatSectors := 1
	for (base+fatSectors+perFAT-1)/perFAT > fatSectors {
		fatSectors++
	}
	if fatSectors > headerDIFATCount {
		return nil, fmt.Errorf("%d FAT sectors needed: %w", fatSectors, ErrTooLarge)
	}

	fat := make([]uint32, fatSectors*perFAT)
	for i := range fat {
		fat[i] = freeSect
	}
	next := 0
	alloc := func(n int) uint32 {
		if n == 0 {
			return endOfChain
		}
		first := next
		for i := 0; i < n; i++ {
			if i == n-1 {
				fat[next] = endOfChain
			} else {
				fat[next] = uint32(next + 1)
			}
			next++
		}
		return uint32(first)
	}

	if len(miniStream) > 0 {
		rootEnt.start = alloc(miniStreamSectors)
		rootEnt.size = uint64(len(miniStream))
	} else {
		rootEnt.start = endOfChain
	}
	for _, e := range large {
		e.start = alloc(sectorsFor(len(e.data), sectorSize))
	}
	firstMiniFAT := alloc(miniFATSectors)
	firstDir := alloc(dirSectors)
	firstFAT := next
	for i := 0; i < fatSectors; i++ {
		fat[next] = fatSect
		next++
	}
	totalSectors := next

	out := make([]byte, headerSize+totalSectors*sectorSize)
	le := binary.LittleEndian
	copy(out, signature[:])
	le.PutUint16(out[24:], 0x003E)
	le.PutUint16(out[26:], 0x0003)
	le.PutUint16(out[28:], 0xFFFE)
	le.PutUint16(out[30:], 9)
	le.PutUint16(out[32:], 6)
	le.PutUint32(out[44:], uint32(fatSectors))
	le.PutUint32(out[48:], firstDir)
	le.PutUint32(out[56:], miniStreamCutoff)
	le.PutUint32(out[60:], firstMiniFAT)
	le.PutUint32(out[64:], uint32(miniFATSectors))
	le.PutUint32(out[68:], endOfChain)
	for i := 0; i < headerDIFATCount; i++ {
		v := uint32(freeSect)
		if i < fatSectors {
			v = uint32(firstFAT + i)
		}
		le.PutUint32(out[76+4*i:], v)
	}

	sectorAt := func(n uint32) []byte {
		off := headerSize + int(n)*sectorSize
		return out[off:]
	}
	if len(miniStream) > 0 {
		copy(sectorAt(rootEnt.start), miniStream)
	}
	for _, e := range large {
		copy(sectorAt(e.start), e.data)
	}
	if miniFATSectors > 0 {
		buf := sectorAt(firstMiniFAT)
		for i := 0; i < miniFATSectors*perFAT; i++ {
			v := uint32(freeSect)
			if i < len(miniFAT) {
				v = miniFAT[i]
			}
			le.PutUint32(buf[4*i:], v)
		}
	}
	dir := sectorAt(firstDir)
	for i := 0; i < dirSectors*sectorSize/direntSize; i++ {
		ent := &wEntry{left: noStream, right: noStream, child: noStream}
		if i < len(w.entries) {
			ent = w.entries[i]
		}
		writeDirent(dir[i*direntSize:], ent)
	}
	fatBuf := sectorAt(uint32(firstFAT))
	for i, v := range fat {
		le.PutUint32(fatBuf[4*i:], v)
	}
	return out, nil
}

func writeDirent(b []byte, e *wEntry) {
	le := binary.LittleEndian
	if e.objType != typeEmpty {
		units := utf16.Encode([]rune(e.name))
		if len(units) > 31 {
			units = units[:31]
		}
		for i, u := range units {
			le.PutUint16(b[2*i:], u)
		}
		le.PutUint16(b[64:], uint16(2*(len(units)+1)))
		b[67] = colorBlack
	}
	b[66] = e.objType
	le.PutUint32(b[68:], e.left)
	le.PutUint32(b[72:], e.right)
	le.PutUint32(b[76:], e.child)
	copy(b[80:96], e.clsid[:])
	le.PutUint32(b[96:], e.stateBits)
	le.PutUint32(b[116:], e.start)
	le.PutUint64(b[120:], e.size)
}
