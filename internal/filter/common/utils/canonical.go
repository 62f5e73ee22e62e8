package utils

import (
	"net"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// CanonicalHostname normalizes a hostname for rule matching: trims
// whitespace, lower-cases, strips any ":port" suffix and all trailing
// dots. Input is untrusted; malformed values come back best-effort.
func CanonicalHostname(name string) string {
	name = strings.TrimSpace(name)
	name = StripPort(name)
	name = strings.ToLower(name)
	// remove all trailing dots
	for strings.HasSuffix(name, ".") {
		name = strings.TrimSuffix(name, ".")
	}
	return name
}

// StripPort removes a trailing ":port" from host:port forms, handling
// bracketed IPv6 literals. Values without a port pass through
// unchanged.
func StripPort(hostport string) string {
	if !strings.Contains(hostport, ":") {
		return hostport
	}
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	// bare IPv6 literal or malformed value; leave as-is
	return hostport
}

// IsBarePublicSuffix reports whether name is exactly an ICANN public
// suffix (e.g. "com", "co.uk"). A blocklist entry like that matches
// every hostname under the TLD, which is almost never what an
// operator intends.
func IsBarePublicSuffix(name string) bool {
	if name == "" {
		return false
	}
	suffix, icann := publicsuffix.PublicSuffix(name)
	return icann && suffix == name
}
