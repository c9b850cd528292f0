package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/haukened/rec-dns/internal/dns/domain"
)

// appendOPT writes the OPT pseudo-record that carries the message's EDNS
// state (RFC 6891 §6.1). The record envelope is reinterpreted: root owner,
// class holds the UDP payload size, and the TTL packs extended rcode bits,
// version, and the DO flag.
func appendOPT(data []byte, e *domain.EDNS, rcode domain.RCode) ([]byte, error) {
	udpSize := e.UDPSize
	if udpSize < MinUDPSize {
		udpSize = MinUDPSize
	}
	ttl := uint32(rcode>>4)<<24 | uint32(e.Version)<<16
	if e.Do {
		ttl |= 0x8000
	}

	data = append(data, 0) // root owner name
	data = appendU16(data, uint16(domain.RRTypeOPT))
	data = appendU16(data, udpSize)
	data = appendU32(data, ttl)

	var rdata []byte
	for _, opt := range e.Options {
		if len(opt.Data) > 0xFFFF {
			return nil, fmt.Errorf("EDNS option %d data too long", opt.Code)
		}
		rdata = appendU16(rdata, opt.Code)
		rdata = appendU16(rdata, uint16(len(opt.Data)))
		rdata = append(rdata, opt.Data...)
	}
	if len(rdata) > 0xFFFF {
		return nil, fmt.Errorf("EDNS options exceed %d octets", 0xFFFF)
	}
	data = appendU16(data, uint16(len(rdata)))
	return append(data, rdata...), nil
}

// parseOPT reinterprets a record envelope as EDNS state. The returned
// extended rcode bits are the high 8 bits of the final 12-bit rcode.
func parseOPT(class uint16, ttl uint32, rdata []byte) (*domain.EDNS, uint8, error) {
	e := &domain.EDNS{
		UDPSize:  class,
		ExtRCode: uint8(ttl >> 24),
		Version:  uint8(ttl >> 16),
		Do:       ttl&0x8000 != 0,
	}
	if e.UDPSize < MinUDPSize {
		e.UDPSize = MinUDPSize
	}
	for off := 0; off < len(rdata); {
		if off+4 > len(rdata) {
			return nil, 0, fmt.Errorf("truncated EDNS option header")
		}
		code := binary.BigEndian.Uint16(rdata[off:])
		length := int(binary.BigEndian.Uint16(rdata[off+2:]))
		off += 4
		if off+length > len(rdata) {
			return nil, 0, fmt.Errorf("truncated EDNS option %d", code)
		}
		opt := domain.EDNSOption{Code: code, Data: make([]byte, length)}
		copy(opt.Data, rdata[off:off+length])
		e.Options = append(e.Options, opt)
		off += length
	}
	return e, e.ExtRCode, nil
}
