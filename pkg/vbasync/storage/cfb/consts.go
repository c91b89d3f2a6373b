// Package cfb reads and writes Compound File Binary containers (the OLE
// structured storage format) to and from storage.Memory trees.
//
// Only version 3 files with 512-byte sectors are written. Output is
// deterministic: timestamps are zero and each storage's directory entries
// form a balanced tree over the compound-file name order, so writing the same
// tree twice yields identical bytes.
package cfb

import "errors"

var (
	// ErrInvalidFormat is returned when data is not a compound file.
	ErrInvalidFormat = errors.New("not a valid compound file")
	// ErrCorrupt is returned when sector chains or directory links are broken.
	ErrCorrupt = errors.New("corrupt compound file")
	// ErrTooLarge is returned when a tree needs more FAT sectors than the
	// header can address without DIFAT sectors.
	ErrTooLarge = errors.New("compound file too large")
)

var signature = [8]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

const (
	headerSize       = 512
	sectorSize       = 512
	miniSectorSize   = 64
	miniStreamCutoff = 0x1000
	direntSize       = 128
	headerDIFATCount = 109

	maxRegSect = 0xFFFFFFFA
	difSect    = 0xFFFFFFFC
	fatSect    = 0xFFFFFFFD
	endOfChain = 0xFFFFFFFE
	freeSect   = 0xFFFFFFFF
	noStream   = 0xFFFFFFFF

	typeEmpty   = 0
	typeStorage = 1
	typeStream  = 2
	typeRoot    = 5

	colorBlack = 1
)
