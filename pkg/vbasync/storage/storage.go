// Package storage defines the structured-storage capability the codecs
// run against: nested storages holding named streams, as found in compound
// files. Names compare case-insensitively and keep their original case.
package storage

import (
	"sort"
	"strings"
)

// Entry describes one child of a storage.
type Entry struct {
	Name      string
	IsStorage bool
}

// Storage is a node in a structured-storage tree.
type Storage interface {
	// Entries lists the children in insertion order.
	Entries() []Entry
	// Stream returns the bytes of the named stream.
	Stream(name string) ([]byte, bool)
	// SetStream creates or replaces the named stream.
	SetStream(name string, data []byte)
	// Storage returns the named child storage.
	Storage(name string) (Storage, bool)
	// AddStorage returns the named child storage, creating it when missing.
	AddStorage(name string) Storage
	// Delete removes the named child, stream or storage.
	Delete(name string)
}

type node struct {
	name    string
	stream  []byte
	storage *Memory
}

// Memory is an in-memory Storage. CLSID and StateBits carry the directory
// entry fields compound files keep per storage.
type Memory struct {
	CLSID     [16]byte
	StateBits uint32

	children []*node
	index    map[string]int
}

// NewMemory creates an empty storage.
func NewMemory() *Memory {
	return &Memory{index: make(map[string]int)}
}

func key(name string) string {
	return strings.ToUpper(name)
}

func (m *Memory) lookup(name string) (*node, bool) {
	if m.index == nil {
		return nil, false
	}
	i, ok := m.index[key(name)]
	if !ok {
		return nil, false
	}
	return m.children[i], true
}

func (m *Memory) add(n *node) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	m.index[key(n.name)] = len(m.children)
	m.children = append(m.children, n)
}

// Entries implements Storage
func (m *Memory) Entries() []Entry {
	out := make([]Entry, 0, len(m.children))
	for _, c := range m.children {
		out = append(out, Entry{Name: c.name, IsStorage: c.storage != nil})
	}
	return out
}

// Stream implements Storage
func (m *Memory) Stream(name string) ([]byte, bool) {
	n, ok := m.lookup(name)
	if !ok || n.storage != nil {
		return nil, false
	}
	return n.stream, true
}

// SetStream implements Storage. A storage of the same name is replaced.
func (m *Memory) SetStream(name string, data []byte) {
	if n, ok := m.lookup(name); ok {
		n.storage = nil
		n.stream = append([]byte{}, data...)
		return
	}
	m.add(&node{name: name, stream: append([]byte{}, data...)})
}

// Storage implements Storage
func (m *Memory) Storage(name string) (Storage, bool) {
	n, ok := m.lookup(name)
	if !ok || n.storage == nil {
		return nil, false
	}
	return n.storage, true
}

// AddStorage implements Storage
func (m *Memory) AddStorage(name string) Storage {
	return m.AddMemory(name)
}

// AddMemory is AddStorage returning the concrete type.
func (m *Memory) AddMemory(name string) *Memory {
	if n, ok := m.lookup(name); ok {
		if n.storage == nil {
			n.stream = nil
			n.storage = NewMemory()
		}
		return n.storage
	}
	child := NewMemory()
	m.add(&node{name: name, storage: child})
	return child
}

// Delete implements Storage
func (m *Memory) Delete(name string) {
	i, ok := m.index[key(name)]
	if !ok {
		return
	}
	m.children = append(m.children[:i], m.children[i+1:]...)
	delete(m.index, key(name))
	for k, idx := range m.index {
		if idx > i {
			m.index[k] = idx - 1
		}
	}
}

// Child returns the concrete child storage, if name is a storage.
func (m *Memory) Child(name string) (*Memory, bool) {
	n, ok := m.lookup(name)
	if !ok || n.storage == nil {
		return nil, false
	}
	return n.storage, true
}

// Clone returns a deep copy of m.
func (m *Memory) Clone() *Memory {
	out := NewMemory()
	out.CLSID = m.CLSID
	out.StateBits = m.StateBits
	for _, c := range m.children {
		if c.storage != nil {
			out.add(&node{name: c.name, storage: c.storage.Clone()})
			continue
		}
		out.add(&node{name: c.name, stream: append([]byte{}, c.stream...)})
	}
	return out
}

// Copy replaces the contents of dst with a deep copy of src.
func Copy(dst Storage, src Storage) {
	for _, e := range dst.Entries() {
		dst.Delete(e.Name)
	}
	for _, e := range src.Entries() {
		if e.IsStorage {
			child, _ := src.Storage(e.Name)
			Copy(dst.AddStorage(e.Name), child)
			continue
		}
		data, _ := src.Stream(e.Name)
		dst.SetStream(e.Name, data)
	}
	if d, ok := dst.(*Memory); ok {
		if s, ok := src.(*Memory); ok {
			d.CLSID = s.CLSID
			d.StateBits = s.StateBits
		}
	}
}

// Walk visits every stream under s depth-first, children sorted by name,
// passing the path of storage names leading to the stream.
func Walk(s Storage, fn func(path []string, name string, data []byte) error) error {
	return walk(s, nil, fn)
}

func walk(s Storage, path []string, fn func([]string, string, []byte) error) error {
	entries := s.Entries()
	sort.Slice(entries, func(i, j int) bool { return key(entries[i].Name) < key(entries[j].Name) })
	for _, e := range entries {
		if e.IsStorage {
			child, _ := s.Storage(e.Name)
			if err := walk(child, append(append([]string{}, path...), e.Name), fn); err != nil {
				return err
			}
			continue
		}
		data, _ := s.Stream(e.Name)
		if err := fn(path, e.Name, data); err != nil {
			return err
		}
	}
	return nil
}
