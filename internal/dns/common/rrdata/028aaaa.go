package rrdata

import (
	"fmt"
	"net"
)

// decodeAAAAData decodes an AAAA record: exactly sixteen octets of IPv6
// address.
func decodeAAAAData(r *reader) ([]byte, string, error) {
	if r.remaining() != 16 {
		return nil, "", fmt.Errorf("%w: AAAA rdata must be 16 octets, got %d", ErrBadRData, r.remaining())
	}
	data := r.rest()
	return data, net.IP(data).String(), nil
}

// encodeAAAAData encodes a textual IPv6 address.
func encodeAAAAData(text string) ([]byte, error) {
	ip := net.ParseIP(text)
	if ip == nil || ip.To4() != nil || ip.To16() == nil {
		return nil, fmt.Errorf("invalid IPv6 address: %s", text)
	}
	return ip.To16(), nil
}
