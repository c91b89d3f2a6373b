// Package frx decodes and encodes the MS Forms binary control tree stored
// in a UserForm's designer storage and in exported .frx files.
//
// Every control record has the same shape:
//
//	MinorVersion  u8
//	MajorVersion  u8
//	cb            u16   bytes from here to the end of the ExtraDataBlock
//	PropMask      u32 (u64 for morph data controls)
//	DataBlock           fixed-width fields, each gated by a mask bit and
//	                    aligned to its own width
//	ExtraDataBlock      strings (sized by CCBs in the DataBlock), sizes and
//	                    positions, also mask-gated, aligned to 4
//	StreamData          pictures and icons: GUID, preamble, u32 length, bytes
//	TextProps           an embedded TextPropsControl for controls with text
//
// A form designer storage holds the form record in stream "f" (followed by
// its site table), the per-site control records back to back in stream
// "o", and one child storage per nested frame.
//
// Decoded values keep only semantic fields. Declared sizes are checked and
// dropped; absent fields keep their zero value.
package frx
