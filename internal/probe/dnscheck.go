package probe

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"time"
)

// DNSClass buckets a hostname's resolution status, used to annotate
// transport-level HTTP failures with a likely cause.
type DNSClass string

const (
	DNSResolves    DNSClass = "RESOLVES"
	DNSNXDomain    DNSClass = "NXDOMAIN"
	DNSNoARecord   DNSClass = "NO_A_RECORD"
	DNSServFail    DNSClass = "SERVFAIL_or_TIMEOUT"
	DNSInvalidName DNSClass = "INVALID_NAME"
)

var dnsTimeout = 3 * time.Second

// ClassifyDNS resolves the host with the OS resolver and reduces the
// result to a class. Diagnostic only; never used on the probe hot path.
func ClassifyDNS(host string) DNSClass {
	host = strings.TrimSpace(host)
	if host == "" || strings.Contains(host, "://") {
		return DNSInvalidName
	}

	ctx, cancel := context.WithTimeout(context.Background(), dnsTimeout)
	defer cancel()
	r := &net.Resolver{}

	ips, err := r.LookupIP(ctx, "ip", host)
	if err == nil && len(ips) > 0 {
		return DNSResolves
	}

	class := DNSClass("")
	if err != nil {
		var de *net.DNSError
		if errors.As(err, &de) {
			switch {
			case de.IsNotFound:
				class = DNSNXDomain
			case de.IsTemporary || de.Timeout():
				class = DNSServFail
			}
		}
	}

	// a zone with NS records but no address records is a config problem,
	// not a missing domain
	if ns, err := r.LookupNS(ctx, host); err == nil && len(ns) > 0 {
		if class == DNSNXDomain || class == "" {
			return DNSNoARecord
		}
	}
	if class == "" {
		class = DNSNXDomain
	}
	return class
}

// HostOf extracts the hostname from an address for DNS diagnostics.
func HostOf(addr string) string {
	if u, err := url.Parse(addr); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
