// Package ipaddr canonicalizes IPv4 and IPv6 address literals.
//
// Every address has exactly one canonical spelling: IPv4 in dotted-decimal
// form, IPv6 fully expanded (eight zero-padded lowercase hex groups, no "::").
// Store keys are always canonical, so lookups are plain string matches.
package ipaddr

import (
	"net/netip"
	"strings"
)

const hexDigits = "0123456789abcdef"

// Normalize returns the canonical form of raw and true, or "" and false when
// raw is neither an IPv4 nor an IPv6 literal. A single pair of enclosing
// square brackets is removed first. Surrounding whitespace is not trimmed.
func Normalize(raw string) (string, bool) {
	s := stripBrackets(raw)

	addr, err := netip.ParseAddr(s)
	if err != nil || addr.Zone() != "" {
		return "", false
	}
	if addr.Is4() {
		return addr.String(), true
	}
	return expand(addr), true
}

// IsValid reports whether raw normalizes to an address.
func IsValid(raw string) bool {
	_, ok := Normalize(raw)
	return ok
}

// IsIPv6 reports whether a canonical address is an IPv6 address.
func IsIPv6(canonical string) bool {
	return strings.Contains(canonical, ":")
}

func stripBrackets(s string) string {
	if len(s) >= 2 && s[0] == '[' && s[len(s)-1] == ']' {
		return s[1 : len(s)-1]
	}
	return s
}

// expand writes all 16 bytes of an IPv6 address as eight 4-digit groups.
// IPv4-mapped addresses are expanded too, never printed in dotted form.
func expand(addr netip.Addr) string {
	b := addr.As16()
	var sb strings.Builder
	sb.Grow(39)
	for i := 0; i < 16; i += 2 {
		if i > 0 {
			sb.WriteByte(':')
		}
		sb.WriteByte(hexDigits[b[i]>>4])
		sb.WriteByte(hexDigits[b[i]&0x0f])
		sb.WriteByte(hexDigits[b[i+1]>>4])
		sb.WriteByte(hexDigits[b[i+1]&0x0f])
	}
	return sb.String()
}
