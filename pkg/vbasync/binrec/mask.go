package binrec

// Mask32 is a 32-bit property mask. Each bit gates one optional field.
type Mask32 uint32

// Has reports whether bit is set.
func (m Mask32) Has(bit uint) bool {
	return m&(1<<bit) != 0
}

// With returns m with bit set or cleared.
func (m Mask32) With(bit uint, on bool) Mask32 {
	if on {
		return m | 1<<bit
	}
	return m &^ (1 << bit)
}

// Mask64 is the 64-bit property mask used by morph data controls.
type Mask64 uint64

// Has reports whether bit is set.
func (m Mask64) Has(bit uint) bool {
	return m&(1<<bit) != 0
}

// With returns m with bit set or cleared.
func (m Mask64) With(bit uint, on bool) Mask64 {
	if on {
		return m | 1<<bit
	}
	return m &^ (1 << bit)
}
