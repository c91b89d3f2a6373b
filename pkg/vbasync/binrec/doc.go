// Package binrec reads and writes the little-endian, alignment-sensitive
// record layouts used by VBA project metadata and MS Forms control streams.
//
// Aligned reads seek forward to the next multiple of the field width,
// measured from the start of the reader (its base), before reading. Nested
// records get their own reader through Fork or Sub so that their alignment
// is relative to their own first byte.
//
// Readers use a sticky error: once a read fails every later read returns a
// zero value and Err reports the first failure.
package binrec
