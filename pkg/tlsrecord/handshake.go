package tlsrecord

import (
	"encoding/binary"
	"io"
)

// HandshakeRecordReader reframes a TLS record stream into the
// concatenated payloads of consecutive handshake (ContentType 22)
// records. Record headers (ContentType, LegacyVersion, Length) are
// consumed but never surfaced to the caller.
//
// The only state that must survive across Read calls is the number of
// payload bytes still owed from the record currently in flight
// (equivalent to spec's InPayload{remaining}); the header sub-reads
// (AwaitingContentType/AwaitingVersion/AwaitingLength) always resolve
// fully within a single Read call via blocking reads, which is the
// straight-line realization the design notes call out as equivalent
// to an explicit poll-based state machine.
type HandshakeRecordReader struct {
	inner     io.Reader
	remaining int // payload bytes left in the record currently being delivered
}

// NewHandshakeRecordReader wraps inner, which must yield a well-formed
// TLS record stream.
func NewHandshakeRecordReader(inner io.Reader) *HandshakeRecordReader {
	return &HandshakeRecordReader{inner: inner}
}

// Read returns bytes from the reassembled handshake-message stream. A
// single call never returns more than the payload bytes remaining in
// the record currently being delivered.
func (h *HandshakeRecordReader) Read(p []byte) (int, error) {
	for h.remaining == 0 {
		if err := h.readHeader(); err != nil {
			return 0, err
		}
	}

	want := len(p)
	if h.remaining < want {
		want = h.remaining
	}

	n, err := h.inner.Read(p[:want])
	h.remaining -= n
	return n, err
}

// readHeader consumes one record header (ContentType(1) + LegacyVersion(2) +
// Length(2)) and sets h.remaining to the declared payload length. A
// zero-length record leaves h.remaining at 0, which causes Read's loop
// to immediately read the next header, concatenating records
// transparently.
func (h *HandshakeRecordReader) readHeader() error {
	var contentType [1]byte
	if _, err := io.ReadFull(h.inner, contentType[:]); err != nil {
		return err
	}
	if contentType[0] != contentTypeHandshake {
		return ErrMalformedRecord
	}

	var legacyVersion [2]byte
	if _, err := io.ReadFull(h.inner, legacyVersion[:]); err != nil {
		return err
	}
	// Legacy version bytes are consumed but not validated: TLS 1.3
	// permits arbitrary values here.

	var length [2]byte
	if _, err := io.ReadFull(h.inner, length[:]); err != nil {
		return err
	}
	recordLen := int(binary.BigEndian.Uint16(length[:]))
	if recordLen > maxRecordPayload {
		return ErrRecordTooLarge
	}

	h.remaining = recordLen
	return nil
}
