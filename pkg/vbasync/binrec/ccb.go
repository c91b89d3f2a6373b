package binrec

import (
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

const ccbCompressedFlag = 0x80000000

// CCB is a count of bytes with compression flag. When Compressed is set the
// string is stored one byte per character and Count is the byte count;
// otherwise the string is UTF-16LE and Count is the character count.
type CCB struct {
	Count      uint32
	Compressed bool
}

// ParseCCB splits a raw 32-bit length prefix into count and flag.
func ParseCCB(v uint32) CCB {
	return CCB{Count: v &^ ccbCompressedFlag, Compressed: v&ccbCompressedFlag != 0}
}

// Value returns the raw 32-bit length prefix.
func (c CCB) Value() uint32 {
	if c.Compressed {
		return c.Count | ccbCompressedFlag
	}
	return c.Count
}

// ByteLen is the number of string bytes that follow the prefix.
func (c CCB) ByteLen() int {
	if c.Compressed {
		return int(c.Count)
	}
	return int(c.Count) * 2
}

// CCBFor returns the length prefix describing s in the requested width.
func CCBFor(s string, compressed bool) CCB {
	if compressed {
		return CCB{Count: uint32(len(encodeLatin1(s))), Compressed: true}
	}
	return CCB{Count: uint32(len(utf16.Encode([]rune(s))))}
}

// Compressible reports whether every character of s fits the 8-bit encoding.
func Compressible(s string) bool {
	for _, r := range s {
		if r > 0xFF {
			return false
		}
	}
	return true
}

var (
	utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	latin1  = charmap.ISO8859_1
)

func decodeString(b []byte, compressed bool) (string, error) {
	if compressed {
		out, err := latin1.NewDecoder().Bytes(b)
		return string(out), err
	}
	out, err := utf16LE.NewDecoder().Bytes(b)
	return string(out), err
}

func encodeLatin1(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			r = '?'
		}
		out = append(out, byte(r))
	}
	return out
}

func encodeString(s string, compressed bool) []byte {
	if compressed {
		return encodeLatin1(s)
	}
	out, err := utf16LE.NewEncoder().Bytes([]byte(s))
	if err != nil {
		// Invalid UTF-8 input; fall back to the replacement-safe path
		units := utf16.Encode([]rune(s))
		out = make([]byte, 0, len(units)*2)
		for _, u := range units {
			out = append(out, byte(u), byte(u>>8))
		}
	}
	return out
}
