package snapshot

import (
	apperrors "github.com/heapquery/pkg/errors"
)

// StringPool is the document's flat string table. Everything else in the
// document refers to strings only by 0-based index into this pool. The pool
// is read-only once built.
type StringPool struct {
	strings []string
}

// NewStringPool wraps the document's string array.
func NewStringPool(strings []string) *StringPool {
	return &StringPool{strings: strings}
}

// Resolve returns the string at index i. A reference outside the pool means
// the document is corrupt; decoding must abort.
func (p *StringPool) Resolve(i uint64) (string, error) {
	if i >= uint64(len(p.strings)) {
		return "", apperrors.Newf(apperrors.CodeStringIndexError,
			"string index %d out of range (pool holds %d strings)", i, len(p.strings))
	}
	return p.strings[i], nil
}

// Len returns the number of strings in the pool.
func (p *StringPool) Len() int {
	return len(p.strings)
}
