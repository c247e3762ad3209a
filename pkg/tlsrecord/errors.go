package tlsrecord

import "errors"

var (
	// ErrMalformedRecord is returned when a record's ContentType is
	// anything other than 22 (handshake).
	ErrMalformedRecord = errors.New("tlsrecord: not a handshake record")

	// ErrRecordTooLarge is returned when a record declares a payload
	// length greater than 16384 bytes.
	ErrRecordTooLarge = errors.New("tlsrecord: record payload exceeds 16384 bytes")
)

const (
	contentTypeHandshake = 22
	maxRecordPayload     = 1 << 14
)
