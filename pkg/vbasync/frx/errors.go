package frx

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/arthur-debert/vbasync/pkg/vbasync/binrec"
	"github.com/arthur-debert/vbasync/pkg/vbasync/core"
)

type unknownClassError struct {
	where string
	class uuid.UUID
}

func (e *unknownClassError) Error() string {
	return fmt.Sprintf("%s: unknown class %s", e.where, binrec.FormatGUID(e.class))
}

func (e *unknownClassError) Unwrap() error {
	return core.ErrUnrecognizedRecord
}

// finish checks the declared cb of a control record and returns the
// reader's first error.
func finish(r *binrec.Reader, h header, what string) error {
	r.Align(4)
	return r.AssertConsumed(h.declared, h.start, what)
}

// requireConsumed fails when a companion byte range has unread bytes.
func requireConsumed(r *binrec.Reader, what string) error {
	if r.Err() != nil {
		return r.Err()
	}
	if r.Remaining() != 0 {
		return r.AssertConsumed(r.Len(), 0, what)
	}
	return nil
}
