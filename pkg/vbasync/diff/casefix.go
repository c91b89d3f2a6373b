package diff

import "strings"

const vbBase = "Attribute VB_Base"

// isVBBase reports whether line is a single-line VB_Base attribute.
func isVBBase(line string) bool {
	return len(line) >= len(vbBase) &&
		strings.EqualFold(line[:len(vbBase)], vbBase) &&
		!continues(line)
}

// FixCase returns new with the letter case of unchanged code taken from
// old. Lines that match old case-insensitively are emitted as old has
// them; changed lines are emitted as new has them, except that a VB_Base
// attribute replacing another keeps the old one; inserted lines are kept
// and deleted lines dropped.
func FixCase(old, new string) string {
	res := Compute(old, new)
	var out []string
	at := 0
	for _, b := range res.Blocks {
		out = append(out, res.Old[at:b.OldStart]...)

		overlap := min(b.OldLen, b.NewLen)
		for j := 0; j < overlap; j++ {
			o, n := res.Old[b.OldStart+j], res.New[b.NewStart+j]
			if isVBBase(o) && isVBBase(n) {
				out = append(out, o)
			} else {
				out = append(out, n)
			}
		}
		if b.NewLen > overlap {
			out = append(out, res.New[b.NewStart+overlap:b.NewStart+b.NewLen]...)
		}
		at = b.OldStart + b.OldLen
	}
	out = append(out, res.Old[at:]...)

	if len(out) > 0 && new != "" && !strings.HasSuffix(new, "\n") {
		return strings.Join(out, "\r\n")
	}
	return Join(out)
}
