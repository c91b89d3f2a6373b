package filesystem

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// DefaultCodePage is used when a project does not name one.
const DefaultCodePage = 1252

var codePages = map[uint16]encoding.Encoding{
	437:   charmap.CodePage437,
	850:   charmap.CodePage850,
	852:   charmap.CodePage852,
	855:   charmap.CodePage855,
	858:   charmap.CodePage858,
	866:   charmap.CodePage866,
	874:   charmap.Windows874,
	932:   japanese.ShiftJIS,
	936:   simplifiedchinese.GBK,
	949:   korean.EUCKR,
	950:   traditionalchinese.Big5,
	1250:  charmap.Windows1250,
	1251:  charmap.Windows1251,
	1252:  charmap.Windows1252,
	1253:  charmap.Windows1253,
	1254:  charmap.Windows1254,
	1255:  charmap.Windows1255,
	1256:  charmap.Windows1256,
	1257:  charmap.Windows1257,
	1258:  charmap.Windows1258,
	10000: charmap.Macintosh,
	20866: charmap.KOI8R,
	28591: charmap.ISO8859_1,
	28592: charmap.ISO8859_2,
	28605: charmap.ISO8859_15,
	54936: simplifiedchinese.GB18030,
	65001: unicode.UTF8,
}

// Codec converts module text between a project code page and UTF-8.
type Codec struct {
	CodePage uint16
	enc      encoding.Encoding
}

// CodecFor returns the codec for a Windows code page.
func CodecFor(codePage uint16) (*Codec, error) {
	enc, ok := codePages[codePage]
	if !ok {
		return nil, fmt.Errorf("unsupported code page %d", codePage)
	}
	return &Codec{CodePage: codePage, enc: enc}, nil
}

// MustCodec is CodecFor for code pages known to be supported.
func MustCodec(codePage uint16) *Codec {
	c, err := CodecFor(codePage)
	if err != nil {
		panic(err)
	}
	return c
}

// Decode converts code-page bytes to a string.
func (c *Codec) Decode(b []byte) (string, error) {
	out, err := c.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode code page %d: %w", c.CodePage, err)
	}
	return string(out), nil
}

// Encode converts a string to code-page bytes. Characters the code page
// cannot represent are an error.
func (c *Codec) Encode(s string) ([]byte, error) {
	out, err := c.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode code page %d: %w", c.CodePage, err)
	}
	return out, nil
}
