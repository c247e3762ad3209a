//go:build !debug

package proxy

// defaultListenAddr is the release-build listener address: the
// well-known HTTPS port, per spec.
const defaultListenAddr = "0.0.0.0:443"
