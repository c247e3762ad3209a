// Package proxy implements the SpliceOrchestrator: it accepts TLS
// connections, inspects just enough of the ClientHello to learn the
// SNI host name, resolves and dials the mapped upstream, and then
// relays bytes in both directions without touching the TLS content.
package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/dumpmemory/rspd/pkg/clienthello"
	"github.com/dumpmemory/rspd/pkg/netguard"
	"github.com/dumpmemory/rspd/pkg/resolver"
	"github.com/dumpmemory/rspd/pkg/tlsrecord"
)

// Proxy accepts client connections and splices each one to the
// upstream selected by SNI.
type Proxy struct {
	listenAddr        string
	hostMappings      map[string]string
	resolver          *resolver.Resolver
	guard             *netguard.Guard
	inspectionTimeout time.Duration
	dialTimeout       time.Duration

	listener net.Listener
	wg       sync.WaitGroup
}

// New builds a Proxy. listenAddr, if empty, falls back to
// defaultListenAddr (443 release / 10443 debug build).
func New(listenAddr string, hostMappings map[string]string, res *resolver.Resolver, guard *netguard.Guard, inspectionTimeout, dialTimeout time.Duration) *Proxy {
	if listenAddr == "" {
		listenAddr = defaultListenAddr
	}
	return &Proxy{
		listenAddr:        listenAddr,
		hostMappings:      hostMappings,
		resolver:          res,
		guard:             guard,
		inspectionTimeout: inspectionTimeout,
		dialTimeout:       dialTimeout,
	}
}

// Serve binds the listener and accepts connections until ctx is
// cancelled or the listener fails to bind. A bind failure is returned
// to the caller (fatal at startup, per spec); per-connection and
// per-accept errors are logged and never propagated.
func (p *Proxy) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp4", p.listenAddr)
	if err != nil {
		return fmt.Errorf("proxy: binding %s: %w", p.listenAddr, err)
	}
	p.listener = listener
	slog.Info("listening for connections", "address", p.listenAddr)

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				p.wg.Wait()
				return nil
			default:
				slog.Error("accept failed", "error", err)
				continue
			}
		}

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.handleConnection(ctx, conn)
		}()
	}
}

// handleConnection runs the full per-connection lifecycle: inspect,
// resolve, dial, splice.
func (p *Proxy) handleConnection(ctx context.Context, conn net.Conn) {
	peer := conn.RemoteAddr()
	slog.Info("accepted connection", "peer", peer)
	defer conn.Close()

	tape, sni, err := p.inspect(conn)
	if err != nil {
		slog.Info("closed connection", "peer", peer, "status", "error", "error", err)
		return
	}

	upstreamHost, ok := p.hostMappings[sni]
	if !ok {
		slog.Info("closed connection", "peer", peer, "status", "error", "error", fmt.Errorf("%w: %s", ErrUnknownHost, sni))
		return
	}

	resolved, err := p.resolver.Resolve(ctx, upstreamHost)
	if err != nil {
		slog.Info("closed connection", "peer", peer, "status", "error", "error", err)
		return
	}
	if ip := net.ParseIP(resolved); ip != nil {
		if err := p.guard.Check(ip); err != nil {
			slog.Info("closed connection", "peer", peer, "status", "error", "error", err)
			return
		}
	}

	slog.Info("sni resolved", "peer", peer, "sni", sni, "upstream", upstreamHost, "resolved", resolved)

	dialCtx, cancel := context.WithTimeout(ctx, p.dialTimeout)
	defer cancel()
	var dialer net.Dialer
	upstream, err := dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(resolved, "443"))
	if err != nil {
		slog.Info("closed connection", "peer", peer, "status", "error",
			"error", fmt.Errorf("%w: %v", ErrUpstreamDialFailed, err))
		return
	}
	defer upstream.Close()

	err = splice(conn, upstream, tape)
	if err != nil {
		slog.Info("closed connection", "peer", peer, "status", "error", "error", err)
		return
	}
	slog.Info("closed connection", "peer", peer, "status", "ok")
}

// inspect runs RecordingReader -> HandshakeRecordReader ->
// ClientHelloParser under the inspection deadline and returns the
// recorded prefix plus the SNI host name.
func (p *Proxy) inspect(conn net.Conn) (tape []byte, sni string, err error) {
	if err := conn.SetReadDeadline(time.Now().Add(p.inspectionTimeout)); err != nil {
		return nil, "", fmt.Errorf("proxy: setting inspection deadline: %w", err)
	}
	defer conn.SetReadDeadline(time.Time{})

	recording := tlsrecord.NewRecordingReader(conn)
	handshake := tlsrecord.NewHandshakeRecordReader(recording)

	sni, parseErr := clienthello.ParseSNI(handshake)
	_, tape = recording.Deconstruct()
	if parseErr != nil {
		return tape, "", parseErr
	}
	return tape, sni, nil
}

// splice relays bytes between client and upstream in both directions.
// The recorded tape is sent to upstream strictly before any byte read
// from the live client connection: io.MultiReader fully drains the
// tape before ever touching the live reader, which is what makes this
// ordering guarantee hold without extra synchronization.
func splice(client, upstream net.Conn, tape []byte) error {
	errc := make(chan error, 2)

	go func() {
		_, err := io.Copy(upstream, io.MultiReader(bytes.NewReader(tape), client))
		errc <- err
	}()
	go func() {
		_, err := io.Copy(client, upstream)
		errc <- err
	}()

	var first error
	for i := 0; i < 2; i++ {
		if err := <-errc; err != nil && !errors.Is(err, io.EOF) && first == nil {
			first = err
		}
	}
	return first
}
