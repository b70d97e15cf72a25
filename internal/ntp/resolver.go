package ntp

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"net"
	"time"

	"github.com/ghewgill/sntpc/pkg/logger"
)

// HostResolver looks up the IP addresses of a host. *net.Resolver
// satisfies it.
type HostResolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

// Resolver turns the configured server name into a single IPv4 address,
// picking uniformly at random when the name has several so that pooled
// servers share the load.
type Resolver struct {
	lookup  HostResolver
	random  io.Reader
	timeout time.Duration
}

// NewResolver creates a resolver backed by the pure Go system resolver
func NewResolver() *Resolver {
	return &Resolver{
		lookup:  &net.Resolver{PreferGo: true},
		random:  rand.Reader,
		timeout: 10 * time.Second,
	}
}

// NewResolverWith creates a resolver using the given lookup and randomness
// sources. A nil random falls back to crypto/rand.
func NewResolverWith(lookup HostResolver, random io.Reader) *Resolver {
	if random == nil {
		random = rand.Reader
	}
	return &Resolver{
		lookup:  lookup,
		random:  random,
		timeout: 10 * time.Second,
	}
}

// Resolve returns one IPv4 address for host. IPv4 literals are returned
// unchanged without a lookup.
func (r *Resolver) Resolve(ctx context.Context, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil && ip.To4() != nil {
		return ip.To4(), nil
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	ips, err := r.lookup.LookupIP(ctx, "ip4", host)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrResolve, host, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("%w %s", ErrNoAddress, host)
	}

	n, err := rand.Int(r.random, big.NewInt(int64(len(ips))))
	if err != nil {
		return nil, fmt.Errorf("%w %s: pick address: %v", ErrResolve, host, err)
	}
	ip := ips[n.Int64()]

	logger.SafeDebug("dns", "Resolved server", map[string]interface{}{
		"hostname":  host,
		"addresses": len(ips),
		"picked":    ip.String(),
	})

	return ip, nil
}
