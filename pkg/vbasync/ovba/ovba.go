// Package ovba implements the chunked LZ77 compression used for VBA module
// source streams and the dir stream (MS-OVBA section 2.4.1).
//
// A compressed container is a 0x01 signature byte followed by chunks. Each
// chunk starts with a 2-byte header holding the compressed size minus 3 in
// its low 12 bits, the signature 0b011 in bits 12-14 and a compressed flag
// in bit 15. Compressed chunks hold token sequences: a flag byte followed by
// up to eight tokens, where a set flag bit marks a 2-byte copy token and a
// clear bit a literal byte.
package ovba

import (
	"encoding/binary"
	"fmt"

	"github.com/arthur-debert/vbasync/pkg/vbasync/core"
)

const (
	signature       = 0x01
	chunkSize       = 4096
	headerSignature = 0x3000
	headerFlag      = 0x8000
	rawChunkHeader  = 0x3FFF
	minMatch        = 3
)

// Decompress expands a compressed container.
func Decompress(in []byte) ([]byte, error) {
	if len(in) == 0 || in[0] != signature {
		return nil, fmt.Errorf("container does not start with signature byte 0x01: %w", core.ErrDecompression)
	}
	out := make([]byte, 0, len(in)*2)
	pos := 1
	for pos < len(in) {
		if pos+2 > len(in) {
			return nil, fmt.Errorf("truncated chunk header at offset %d: %w", pos, core.ErrDecompression)
		}
		header := binary.LittleEndian.Uint16(in[pos:])
		if header&0x7000 != headerSignature {
			return nil, fmt.Errorf("bad chunk signature 0x%04X at offset %d: %w", header, pos, core.ErrDecompression)
		}
		size := int(header&0x0FFF) + 3
		end := pos + size
		if end > len(in) {
			// The final chunk may be shorter than its header claims
			end = len(in)
		}
		data := in[pos+2 : end]
		if header&headerFlag == 0 {
			if len(data) != chunkSize {
				return nil, fmt.Errorf("raw chunk at offset %d holds %d bytes: %w", pos, len(data), core.ErrDecompression)
			}
			out = append(out, data...)
		} else {
			var err error
			out, err = decompressChunk(out, data)
			if err != nil {
				return nil, fmt.Errorf("chunk at offset %d: %w", pos, err)
			}
		}
		pos = end
	}
	return out, nil
}

func decompressChunk(out, data []byte) ([]byte, error) {
	start := len(out)
	i := 0
	for i < len(data) {
		flags := data[i]
		i++
		for bit := 0; bit < 8 && i < len(data); bit++ {
			if flags&(1<<bit) == 0 {
				out = append(out, data[i])
				i++
				continue
			}
			if i+2 > len(data) {
				return nil, fmt.Errorf("truncated copy token: %w", core.ErrDecompression)
			}
			token := binary.LittleEndian.Uint16(data[i:])
			i += 2
			offset, length := unpackToken(token, len(out)-start)
			src := len(out) - offset
			if src < start {
				return nil, fmt.Errorf("copy token offset %d reaches before chunk start: %w", offset, core.ErrDecompression)
			}
			for k := 0; k < length; k++ {
				out = append(out, out[src+k])
			}
		}
	}
	return out, nil
}

// bitCount returns the number of offset bits a copy token uses when
// difference bytes of the chunk have already been produced.
func bitCount(difference int) uint {
	n := uint(4)
	for (1 << n) < difference {
		n++
	}
	return n
}

func unpackToken(token uint16, difference int) (offset, length int) {
	bits := bitCount(difference)
	lengthMask := uint16(0xFFFF) >> bits
	offset = int((token&^lengthMask)>>(16-bits)) + 1
	length = int(token&lengthMask) + minMatch
	return offset, length
}

func packToken(offset, length, difference int) uint16 {
	bits := bitCount(difference)
	return uint16(offset-1)<<(16-bits) | uint16(length-minMatch)
}

// Compress produces a compressed container for in.
func Compress(in []byte) []byte {
	out := []byte{signature}
	for start := 0; start < len(in); start += chunkSize {
		end := start + chunkSize
		if end > len(in) {
			end = len(in)
		}
		out = appendChunk(out, in[start:end])
	}
	return out
}

func appendChunk(out, chunk []byte) []byte {
	data := compressChunk(chunk)
	if len(data) > chunkSize {
		out = binary.LittleEndian.AppendUint16(out, rawChunkHeader)
		out = append(out, chunk...)
		for k := len(chunk); k < chunkSize; k++ {
			out = append(out, 0)
		}
		return out
	}
	header := uint16(headerFlag|headerSignature) | uint16(len(data)+2-3)
	out = binary.LittleEndian.AppendUint16(out, header)
	return append(out, data...)
}

func compressChunk(chunk []byte) []byte {
	var data []byte
	pos := 0
	for pos < len(chunk) {
		flagAt := len(data)
		data = append(data, 0)
		var flags byte
		for bit := 0; bit < 8 && pos < len(chunk); bit++ {
			offset, length := longestMatch(chunk, pos)
			if length >= minMatch {
				data = binary.LittleEndian.AppendUint16(data, packToken(offset, length, pos))
				flags |= 1 << bit
				pos += length
				continue
			}
			data = append(data, chunk[pos])
			pos++
		}
		data[flagAt] = flags
	}
	return data
}

// longestMatch searches backwards from pos for the longest earlier run that
// matches the bytes at pos. The nearest candidate wins ties.
func longestMatch(chunk []byte, pos int) (offset, length int) {
	if pos == 0 {
		return 0, 0
	}
	maxLength := int(uint16(0xFFFF)>>bitCount(pos)) + minMatch
	if remaining := len(chunk) - pos; remaining < maxLength {
		maxLength = remaining
	}
	for candidate := pos - 1; candidate >= 0; candidate-- {
		n := 0
		for n < maxLength && chunk[candidate+n] == chunk[pos+n] {
			n++
		}
		if n > length {
			offset, length = pos-candidate, n
			if n == maxLength {
				break
			}
		}
	}
	return offset, length
}
