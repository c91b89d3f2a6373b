package project

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

func decodeUTF16(b []byte) (string, error) {
	out, err := utf16le.NewDecoder().Bytes(b)
	return string(out), err
}

func encodeUTF16(s string) []byte {
	out, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		// Only invalid UTF-8 fails.
		out, _ = utf16le.NewEncoder().Bytes([]byte(strings.ToValidUTF8(s, "�")))
	}
	return out
}

func equalFold(a, b string) bool {
	return strings.EqualFold(a, b)
}
