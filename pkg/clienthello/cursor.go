package clienthello

import (
	"io"
)

// bound returns a ParserCursor over r limited to the next n bytes:
// reads beyond n are truncated to end-of-stream, exactly like the
// nested length-prefixed views the ClientHello grammar requires.
func bound(r io.Reader, n int) io.Reader {
	return io.LimitReader(r, int64(n))
}

// skip discards exactly n bytes from r, surfacing truncation as an
// error rather than silently returning fewer bytes.
func skip(r io.Reader, n int) error {
	copied, err := io.CopyN(io.Discard, r, int64(n))
	if err != nil {
		return err
	}
	if copied != int64(n) {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func readUint8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func readUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

func readUint24(r io.Reader) (uint32, error) {
	var b [3]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]), nil
}

// skipVecU8 skips a vector prefixed by a 1-byte length (SessionID,
// CompressionMethods).
func skipVecU8(r io.Reader) error {
	n, err := readUint8(r)
	if err != nil {
		return err
	}
	return skip(r, int(n))
}

// skipVecU16 skips a vector prefixed by a 2-byte length (CipherSuites,
// a single ServerName entry's name).
func skipVecU16(r io.Reader) error {
	n, err := readUint16(r)
	if err != nil {
		return err
	}
	return skip(r, int(n))
}
