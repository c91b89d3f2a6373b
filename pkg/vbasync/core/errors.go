package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the fatal error classes of a run. Every decode, compare
// and encode failure wraps exactly one of them.
var (
	// ErrSizeMismatch is returned when a record's declared length does not
	// match the number of bytes consumed while decoding it.
	ErrSizeMismatch = errors.New("declared size does not match consumed size")

	// ErrUnrecognizedRecord is returned for an unknown record id in the dir stream.
	ErrUnrecognizedRecord = errors.New("unrecognized record")

	// ErrMalformedReference is returned when a reference record is missing
	// one of its structural prerequisites.
	ErrMalformedReference = errors.New("malformed reference")

	// ErrMissingSection is returned when a required stream or storage cannot
	// be located in the container.
	ErrMissingSection = errors.New("missing container section")

	// ErrDecompression is returned when compressed module or dir bytes are rejected.
	ErrDecompression = errors.New("decompression failure")

	// ErrRecordOrder is returned when a per-module record arrives with no
	// current module.
	ErrRecordOrder = errors.New("record out of order")

	// ErrMalformedCCB is returned when a length prefix points past the end of
	// its buffer.
	ErrMalformedCCB = errors.New("malformed count of bytes")
)

// SizeMismatchError reports a declared-versus-consumed size check failure.
// Path identifies the nesting position (for example "f/site[3]/TextProps").
type SizeMismatchError struct {
	Stream   string
	Path     string
	Declared int
	Consumed int
}

func (e *SizeMismatchError) Error() string {
	where := e.Stream
	if e.Path != "" {
		where += ":" + e.Path
	}
	return fmt.Sprintf("%s: declared %d bytes, consumed %d", where, e.Declared, e.Consumed)
}

func (e *SizeMismatchError) Unwrap() error {
	return ErrSizeMismatch
}

// RecordError describes a problem with a single typed record of the dir stream.
type RecordError struct {
	Stream string
	ID     uint16
	Offset int
	Reason string
	Err    error
}

func (e *RecordError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: record 0x%04X at offset %d: %s: %v", e.Stream, e.ID, e.Offset, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: record 0x%04X at offset %d: %v", e.Stream, e.ID, e.Offset, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// SectionError names the container entry that could not be located or read.
type SectionError struct {
	Path []string
	Err  error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("%s: %v", strings.Join(e.Path, "/"), e.Err)
}

func (e *SectionError) Unwrap() error {
	return e.Err
}

// MissingSection builds a SectionError wrapping ErrMissingSection.
func MissingSection(path ...string) error {
	return &SectionError{Path: path, Err: ErrMissingSection}
}
