package rrdata

import (
	"fmt"
	"net"
)

// decodeAData decodes an A record: exactly four octets of IPv4 address.
func decodeAData(r *reader) ([]byte, string, error) {
	if r.remaining() != 4 {
		return nil, "", fmt.Errorf("%w: A rdata must be 4 octets, got %d", ErrBadRData, r.remaining())
	}
	data := r.rest()
	return data, net.IP(data).String(), nil
}

// encodeAData encodes a dotted-quad IPv4 address.
func encodeAData(text string) ([]byte, error) {
	ip := net.ParseIP(text)
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("invalid IPv4 address: %s", text)
	}
	return ip.To4(), nil
}
