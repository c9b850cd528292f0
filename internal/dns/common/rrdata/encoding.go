package rrdata

import (
	"fmt"
	"strings"

	"github.com/haukened/rec-dns/internal/dns/domain"
)

// Encode parses presentation text into normalized wire RDATA. The RFC 3597
// generic form ("\# <length> <hex>") is accepted for any type; otherwise the
// type's own zone-file syntax applies. Types without a registered codec only
// accept the generic form.
func Encode(t domain.RRType, text string) ([]byte, error) {
	if strings.HasPrefix(strings.TrimSpace(text), `\#`) {
		return parseUnknownText(text)
	}

	var data []byte
	var err error
	switch t {
	case domain.RRTypeA: // 1
		data, err = encodeAData(text)
	case domain.RRTypeNS: // 2
		data, err = encodeNSData(text)
	case domain.RRTypeCNAME: // 5
		data, err = encodeCNAMEData(text)
	case domain.RRTypeSOA: // 6
		data, err = encodeSOAData(text)
	case domain.RRTypePTR: // 12
		data, err = encodePTRData(text)
	case domain.RRTypeHINFO: // 13
		data, err = encodeHINFOData(text)
	case domain.RRTypeMX: // 15
		data, err = encodeMXData(text)
	case domain.RRTypeTXT: // 16
		data, err = encodeTXTData(text)
	case domain.RRTypeSIG: // 24
		data, err = encodeSIGData(text)
	case domain.RRTypeKEY: // 25
		data, err = encodeKEYData(text)
	case domain.RRTypeAAAA: // 28
		data, err = encodeAAAAData(text)
	case domain.RRTypeSRV: // 33
		data, err = encodeSRVData(text)
	case domain.RRTypeNAPTR: // 35
		data, err = encodeNAPTRData(text)
	case domain.RRTypeDNAME: // 39
		data, err = encodeDNAMEData(text)
	case domain.RRTypeDS: // 43
		data, err = encodeDSData(text)
	case domain.RRTypeSSHFP: // 44
		data, err = encodeSSHFPData(text)
	case domain.RRTypeRRSIG: // 46
		data, err = encodeRRSIGData(text)
	case domain.RRTypeNSEC: // 47
		data, err = encodeNSECData(text)
	case domain.RRTypeDNSKEY: // 48
		data, err = encodeDNSKEYData(text)
	case domain.RRTypeNSEC3: // 50
		data, err = encodeNSEC3Data(text)
	case domain.RRTypeNSEC3PARAM: // 51
		data, err = encodeNSEC3PARAMData(text)
	case domain.RRTypeTLSA: // 52
		data, err = encodeTLSAData(text)
	case domain.RRTypeHIP: // 55
		data, err = encodeHIPData(text)
	case domain.RRTypeSPF: // 99
		data, err = encodeSPFData(text)
	case domain.RRTypeTKEY: // 249
		data, err = encodeTKEYData(text)
	case domain.RRTypeTSIG: // 250
		data, err = encodeTSIGData(text)
	case domain.RRTypeCAA: // 257
		data, err = encodeCAAData(text)
	default:
		return nil, fmt.Errorf("%s records only accept the \\# generic form", t)
	}
	if err != nil {
		return nil, fmt.Errorf("encoding %s rdata: %w", t, err)
	}
	return data, nil
}
