// Package clienthello parses a TLS ClientHello handshake message (as
// reassembled by pkg/tlsrecord) far enough to extract the SNI
// host_name, without caring about anything else in the message.
package clienthello

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// ParseSNI reads one ClientHello from r (the output of a
// tlsrecord.HandshakeRecordReader) and returns its SNI host name.
//
// Every nested vector is read through a cursor bounded by its own
// length prefix (io.LimitReader), so a malformed inner field can never
// cause a read past the length that bounds it — the parser trusts
// length prefixes, not the fields they describe.
func ParseSNI(r io.Reader) (string, error) {
	typ, err := readUint8(r)
	if err != nil {
		return "", fmt.Errorf("clienthello: reading handshake type: %w", err)
	}
	if typ != handshakeTypeClientHello {
		return "", ErrNotClientHello
	}

	length, err := readUint24(r)
	if err != nil {
		return "", fmt.Errorf("%w: reading handshake length: %v", ErrMalformedClientHello, err)
	}
	body := bound(r, int(length))

	// ProtocolVersion(2) + Random(32).
	if err := skip(body, 34); err != nil {
		return "", fmt.Errorf("%w: skipping version/random: %v", ErrMalformedClientHello, err)
	}
	if err := skipVecU8(body); err != nil { // SessionID
		return "", fmt.Errorf("%w: skipping session id: %v", ErrMalformedClientHello, err)
	}
	if err := skipVecU16(body); err != nil { // CipherSuites
		return "", fmt.Errorf("%w: skipping cipher suites: %v", ErrMalformedClientHello, err)
	}
	if err := skipVecU8(body); err != nil { // CompressionMethods
		return "", fmt.Errorf("%w: skipping compression methods: %v", ErrMalformedClientHello, err)
	}

	extLen, err := readUint16(body)
	if err != nil {
		return "", fmt.Errorf("%w: reading extensions length: %v", ErrMalformedClientHello, err)
	}
	extensions := bound(body, int(extLen))

	return readExtensions(extensions)
}

// readExtensions walks the Extensions vector looking for server_name
// (0x0000). Unknown extensions are skipped, not rejected. Running out
// of extensions without finding one is ErrNoSniHostName, not
// ErrMalformedClientHello.
func readExtensions(extensions io.Reader) (string, error) {
	for {
		extType, err := readUint16(extensions)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", ErrNoSniHostName
			}
			return "", fmt.Errorf("%w: reading extension type: %v", ErrMalformedClientHello, err)
		}
		extLen, err := readUint16(extensions)
		if err != nil {
			return "", fmt.Errorf("%w: reading extension length: %v", ErrMalformedClientHello, err)
		}

		if extType != extensionTypeServerName {
			if err := skip(extensions, int(extLen)); err != nil {
				return "", fmt.Errorf("%w: skipping extension body: %v", ErrMalformedClientHello, err)
			}
			continue
		}

		serverNameExt := bound(extensions, int(extLen))
		snlLen, err := readUint16(serverNameExt)
		if err != nil {
			return "", fmt.Errorf("%w: reading server name list length: %v", ErrMalformedClientHello, err)
		}
		serverNameList := bound(serverNameExt, int(snlLen))

		hostname, found, err := readServerNameList(serverNameList)
		if err != nil {
			return "", err
		}
		if !found {
			// RFC-illegal (empty server_name extension or a list
			// with no host_name entry) but handled defensively.
			return "", ErrNoSniHostName
		}
		return hostname, nil
	}
}

// readServerNameList walks a ServerNameList looking for the first
// host_name (NameType 0) entry; later entries are never consulted.
func readServerNameList(r io.Reader) (string, bool, error) {
	for {
		nameType, err := readUint8(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", false, nil
			}
			return "", false, fmt.Errorf("%w: reading name type: %v", ErrMalformedClientHello, err)
		}

		nameLen, err := readUint16(r)
		if err != nil {
			return "", false, fmt.Errorf("%w: reading name length: %v", ErrMalformedClientHello, err)
		}

		if nameType != nameTypeHostName {
			if err := skip(r, int(nameLen)); err != nil {
				return "", false, fmt.Errorf("%w: skipping name entry: %v", ErrMalformedClientHello, err)
			}
			continue
		}

		buf := make([]byte, nameLen)
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", false, fmt.Errorf("%w: reading host name: %v", ErrMalformedClientHello, err)
		}
		if !utf8.Valid(buf) {
			return "", false, fmt.Errorf("%w: host name is not valid UTF-8", ErrMalformedClientHello)
		}
		return string(buf), true, nil
	}
}
