package rrdata

import (
	"fmt"

	"github.com/haukened/rec-dns/internal/dns/domain"
)

// Decode interprets the RDATA of a record of type t occupying msg[off:end].
// Name fields may point backwards into msg through compression; the returned
// data is the normalized, self-contained form with every name rewritten
// uncompressed, alongside its presentation text. Types without a registered
// codec round-trip opaquely in RFC 3597 form.
func Decode(t domain.RRType, msg []byte, off, end int) ([]byte, string, error) {
	r, err := newReader(msg, off, end)
	if err != nil {
		return nil, "", err
	}

	var data []byte
	var text string
	switch t {
	case domain.RRTypeA: // 1
		data, text, err = decodeAData(r)
	case domain.RRTypeNS: // 2
		data, text, err = decodeNSData(r)
	case domain.RRTypeCNAME: // 5
		data, text, err = decodeCNAMEData(r)
	case domain.RRTypeSOA: // 6
		data, text, err = decodeSOAData(r)
	case domain.RRTypePTR: // 12
		data, text, err = decodePTRData(r)
	case domain.RRTypeHINFO: // 13
		data, text, err = decodeHINFOData(r)
	case domain.RRTypeMX: // 15
		data, text, err = decodeMXData(r)
	case domain.RRTypeTXT: // 16
		data, text, err = decodeTXTData(r)
	case domain.RRTypeSIG: // 24
		data, text, err = decodeSIGData(r)
	case domain.RRTypeKEY: // 25
		data, text, err = decodeKEYData(r)
	case domain.RRTypeAAAA: // 28
		data, text, err = decodeAAAAData(r)
	case domain.RRTypeSRV: // 33
		data, text, err = decodeSRVData(r)
	case domain.RRTypeNAPTR: // 35
		data, text, err = decodeNAPTRData(r)
	case domain.RRTypeDNAME: // 39
		data, text, err = decodeDNAMEData(r)
	case domain.RRTypeDS: // 43
		data, text, err = decodeDSData(r)
	case domain.RRTypeSSHFP: // 44
		data, text, err = decodeSSHFPData(r)
	case domain.RRTypeRRSIG: // 46
		data, text, err = decodeRRSIGData(r)
	case domain.RRTypeNSEC: // 47
		data, text, err = decodeNSECData(r)
	case domain.RRTypeDNSKEY: // 48
		data, text, err = decodeDNSKEYData(r)
	case domain.RRTypeNSEC3: // 50
		data, text, err = decodeNSEC3Data(r)
	case domain.RRTypeNSEC3PARAM: // 51
		data, text, err = decodeNSEC3PARAMData(r)
	case domain.RRTypeTLSA: // 52
		data, text, err = decodeTLSAData(r)
	case domain.RRTypeHIP: // 55
		data, text, err = decodeHIPData(r)
	case domain.RRTypeSPF: // 99
		data, text, err = decodeSPFData(r)
	case domain.RRTypeTKEY: // 249
		data, text, err = decodeTKEYData(r)
	case domain.RRTypeTSIG: // 250
		data, text, err = decodeTSIGData(r)
	case domain.RRTypeCAA: // 257
		data, text, err = decodeCAAData(r)
	default:
		data, text, err = opaque(r)
	}
	if err != nil {
		return nil, "", fmt.Errorf("decoding %s rdata: %w", t, err)
	}
	if !r.empty() {
		return nil, "", fmt.Errorf("decoding %s rdata: %w: %d trailing octets", t, ErrBadRData, r.remaining())
	}
	return data, text, nil
}
