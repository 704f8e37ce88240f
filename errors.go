package atalanta

import "errors"

var (
	// ErrOffsetTooLarge reports an in-class offset wider than the class
	// offset length. It is unreachable when the coding table invariants
	// hold and therefore indicates corruption. The decoder also returns it
	// when a stored offset width differs from the class offset length or
	// the offset lies beyond the class.
	ErrOffsetTooLarge = errors.New("offset exceeds class offset length")

	// ErrShortStream reports a symbol bitstream too short to seed the
	// decoder window, or offset streams holding fewer entries than the
	// number of symbols requested.
	ErrShortStream = errors.New("symbol stream too short")
)
