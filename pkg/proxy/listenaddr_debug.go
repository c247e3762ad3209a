//go:build debug

package proxy

// defaultListenAddr is the debug-build listener address: an
// unprivileged port so `go run -tags debug` doesn't need root.
const defaultListenAddr = "0.0.0.0:10443"
