package record

import "errors"

var (
	// ErrMalformedRecord is returned when a serialized record cannot be
	// parsed. Parsing is all-or-nothing: a record with a single bad field is
	// rejected entirely, never partially reconstructed, so that a corrupted
	// entry can never be persisted on top of good ones.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrUnknownRecordVersion is returned when the leading version tag of a
	// serialized record is a number this codec does not know. Distinct from
	// ErrMalformedRecord so callers can tell "newer software wrote this"
	// apart from corruption.
	ErrUnknownRecordVersion = errors.New("unknown record version")
	// ErrWatchOnlyRecord is returned when asking for the private key of a
	// record that has none.
	ErrWatchOnlyRecord = errors.New("record has no private key")
	// ErrInvalidAddress ...
	ErrInvalidAddress = errors.New("invalid address")
)
