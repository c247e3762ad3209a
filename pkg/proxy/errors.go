package proxy

import "errors"

var (
	// ErrUnknownHost is returned when the SNI host name has no entry
	// in HostMapping.
	ErrUnknownHost = errors.New("proxy: SNI host name not present in host mappings")

	// ErrUpstreamDialFailed is returned when connecting to the mapped
	// upstream fails.
	ErrUpstreamDialFailed = errors.New("proxy: failed to dial upstream")
)
