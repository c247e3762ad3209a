package clienthello

import "errors"

var (
	// ErrNotClientHello is returned when the handshake message type is
	// not 1 (client_hello).
	ErrNotClientHello = errors.New("clienthello: handshake message is not a ClientHello")

	// ErrMalformedClientHello is returned for truncation, bad UTF-8 in
	// the host name, or any length prefix that does not match the
	// bytes actually available.
	ErrMalformedClientHello = errors.New("clienthello: malformed ClientHello")

	// ErrNoSniHostName is returned when the extensions are fully
	// consumed without finding a server_name host_name entry.
	ErrNoSniHostName = errors.New("clienthello: no SNI host_name extension present")
)

const (
	handshakeTypeClientHello = 1
	extensionTypeServerName  = 0x0000
	nameTypeHostName         = 0x00
)
