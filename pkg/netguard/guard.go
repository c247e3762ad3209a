// Package netguard refuses to let the proxy dial resolved addresses
// that fall inside private, loopback, or link-local address space, so
// a misconfigured or attacker-supplied host_name can't turn the proxy
// into a relay into internal network ranges.
package netguard

import (
	"errors"
	"fmt"
	"net"

	"github.com/yl2chen/cidranger"
)

// ErrPrivateUpstream is returned when a resolved dial target falls
// inside a guarded range.
var ErrPrivateUpstream = errors.New("netguard: resolved address is in a private/reserved range")

// defaultGuardedCIDRs mirrors the reserved-range list the teacher
// excludes from its China-IP ranger (pkg/ipdb china_ip.go's
// reservedCIDRs), since those are exactly the ranges a public-facing
// SNI proxy should never dial into.
var defaultGuardedCIDRs = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
	"224.0.0.0/4",
	"240.0.0.0/4",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
}

// Guard reports whether a resolved address is safe to dial.
type Guard struct {
	ranger cidranger.Ranger
}

// New builds a Guard over defaultGuardedCIDRs plus any extra caller-
// supplied CIDRs, which are refused in addition to the defaults (e.g.
// an operator's own internal ranges).
func New(extraCIDRs ...string) (*Guard, error) {
	ranger := cidranger.NewPCTrieRanger()
	for _, cidr := range append(append([]string{}, defaultGuardedCIDRs...), extraCIDRs...) {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("netguard: parsing guarded CIDR %q: %w", cidr, err)
		}
		if err := ranger.Insert(cidranger.NewBasicRangerEntry(*ipNet)); err != nil {
			return nil, fmt.Errorf("netguard: inserting guarded CIDR %q: %w", cidr, err)
		}
	}
	return &Guard{ranger: ranger}, nil
}

// Check returns ErrPrivateUpstream if ip falls inside a guarded range.
func (g *Guard) Check(ip net.IP) error {
	blocked, err := g.ranger.Contains(ip)
	if err != nil {
		return fmt.Errorf("netguard: checking %s: %w", ip, err)
	}
	if blocked {
		return fmt.Errorf("%w: %s", ErrPrivateUpstream, ip)
	}
	return nil
}
