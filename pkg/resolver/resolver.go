// Package resolver resolves HostMapping upstream values (DNS names or
// literal addresses) to a dialable address at connection time, with a
// small TTL cache so a burst of connections to the same upstream
// doesn't re-query DNS for every one.
package resolver

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/miekg/dns"
)

// entry is one cached resolution.
type entry struct {
	addrs     []string
	expiresAt time.Time
}

// Resolver resolves upstream host names to IP addresses, caching
// results for a bounded TTL. Grounded on the teacher's pkg/dns/cache.go
// DNSCache (RWMutex-guarded map, hit/miss counters) and
// pkg/proxy/resolve.go's custom-DNS-server dial pattern, narrowed down
// to the single "resolve one upstream host" query this proxy needs.
type Resolver struct {
	mu         sync.RWMutex
	cache      map[string]*entry
	ttl        time.Duration
	dnsServers []string // custom DNS servers to query; empty means use the system resolver
	client     *dns.Client

	hits   int64
	misses int64
}

// New builds a Resolver. If dnsServers is empty, resolution falls back
// to net.DefaultResolver (system DNS).
func New(ttl time.Duration, dnsServers []string) *Resolver {
	return &Resolver{
		cache:      make(map[string]*entry),
		ttl:        ttl,
		dnsServers: dnsServers,
		client:     &dns.Client{Timeout: 5 * time.Second},
	}
}

// Resolve returns a dialable IP address for host. Literal IP addresses
// are returned unchanged, without touching the cache or issuing a
// query.
func (r *Resolver) Resolve(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}

	if addr, ok := r.lookup(host); ok {
		return addr, nil
	}

	addrs, err := r.query(ctx, host)
	if err != nil {
		return "", fmt.Errorf("resolver: resolving %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("resolver: no addresses found for %s", host)
	}

	r.store(host, addrs)
	return addrs[0], nil
}

func (r *Resolver) lookup(host string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.cache[host]
	if !ok {
		r.misses++
		return "", false
	}
	if time.Now().After(e.expiresAt) {
		delete(r.cache, host)
		r.misses++
		return "", false
	}
	r.hits++
	return e.addrs[0], true
}

func (r *Resolver) store(host string, addrs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[host] = &entry{addrs: addrs, expiresAt: time.Now().Add(r.ttl)}
}

// query resolves host via the configured custom DNS servers, tried in
// order, falling back to the system resolver if none are configured or
// none of them returns an address.
func (r *Resolver) query(ctx context.Context, host string) ([]string, error) {
	for _, server := range r.dnsServers {
		addrs, err := r.queryServer(host, server)
		if err == nil && len(addrs) > 0 {
			return addrs, nil
		}
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return nil, err
	}
	addrs := make([]string, 0, len(ips))
	for _, ip := range ips {
		addrs = append(addrs, ip.String())
	}
	return addrs, nil
}

func (r *Resolver) queryServer(host, server string) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeA)

	resp, _, err := r.client.Exchange(msg, net.JoinHostPort(server, "53"))
	if err != nil {
		return nil, err
	}

	var addrs []string
	for _, rr := range resp.Answer {
		if a, ok := rr.(*dns.A); ok {
			addrs = append(addrs, a.A.String())
		}
	}
	return addrs, nil
}

// Stats returns the cache hit/miss counters. Nothing in the proxy
// logs them or exports them as metrics; they are read by tests.
func (r *Resolver) Stats() (hits, misses int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hits, r.misses
}
