package wire

import (
	"fmt"
	"time"

	"github.com/haukened/rec-dns/internal/dns/common/dnsname"
	"github.com/haukened/rec-dns/internal/dns/common/rrdata"
	"github.com/haukened/rec-dns/internal/dns/domain"
)

// Encode serializes m. With a positive maxSize, records are dropped whole
// from the tail of the additional, authority, then answer sections until the
// message fits, setting TC. The OPT and TSIG pseudo-records survive
// truncation.
func (c *codec) Encode(m *domain.Message, maxSize int, now time.Time) ([]byte, error) {
	answers := m.Answers
	authority := m.Authority
	additional := m.Additional
	truncated := m.Truncated

	for {
		data, err := c.encodeOnce(m, answers, authority, additional, truncated, now)
		if err != nil {
			return nil, err
		}
		if maxSize <= 0 || len(data) <= maxSize {
			if truncated && !m.Truncated {
				c.logger.Debug(map[string]any{
					"id":   m.ID,
					"size": len(data),
					"max":  maxSize,
				}, "message truncated to fit")
			}
			return data, nil
		}
		switch {
		case len(additional) > 0:
			additional = additional[:len(additional)-1]
		case len(authority) > 0:
			authority = authority[:len(authority)-1]
		case len(answers) > 0:
			answers = answers[:len(answers)-1]
		default:
			return nil, fmt.Errorf("message does not fit in %d octets even with empty sections", maxSize)
		}
		truncated = true
	}
}

func (c *codec) encodeOnce(m *domain.Message, answers, authority, additional []domain.ResourceRecord, truncated bool, now time.Time) ([]byte, error) {
	if m.RCode > 0xF && m.EDNS == nil {
		return nil, fmt.Errorf("rcode %d requires EDNS extended rcode bits", m.RCode)
	}

	arCount := len(additional)
	if m.EDNS != nil {
		arCount++
	}
	if m.TSIG != nil {
		arCount++
	}
	for _, n := range []int{len(m.Question), len(answers), len(authority), arCount} {
		if n > 0xFFFF {
			return nil, fmt.Errorf("section count %d exceeds uint16", n)
		}
	}

	flags := uint16(m.Opcode&0xF) << 11
	if m.Response {
		flags |= flagQR
	}
	if m.Authoritative {
		flags |= flagAA
	}
	if truncated {
		flags |= flagTC
	}
	if m.RecursionDesired {
		flags |= flagRD
	}
	if m.RecursionAvailable {
		flags |= flagRA
	}
	if m.AuthenticData {
		flags |= flagAD
	}
	if m.CheckingDisabled {
		flags |= flagCD
	}
	flags |= uint16(m.RCode) & 0xF

	data := make([]byte, 0, 512)
	data = appendU16(data, m.ID)
	data = appendU16(data, flags)
	data = appendU16(data, uint16(len(m.Question)))
	data = appendU16(data, uint16(len(answers)))
	data = appendU16(data, uint16(len(authority)))
	data = appendU16(data, uint16(arCount))

	comp := dnsname.NewCompressor()
	var err error
	for _, q := range m.Question {
		if data, err = dnsname.Append(data, q.Name, comp); err != nil {
			return nil, fmt.Errorf("encoding question name: %w", err)
		}
		data = appendU16(data, uint16(q.Type))
		data = appendU16(data, uint16(q.Class))
	}

	for _, section := range [][]domain.ResourceRecord{answers, authority, additional} {
		for _, rr := range section {
			if data, err = c.appendRecord(data, rr, comp, now); err != nil {
				return nil, err
			}
		}
	}

	if m.EDNS != nil {
		if data, err = appendOPT(data, m.EDNS, m.RCode); err != nil {
			return nil, err
		}
	}
	if m.TSIG != nil {
		if data, err = c.appendRecord(data, *m.TSIG, nil, now); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// appendRecord writes one resource record, compressing the owner name and
// any RDATA names the type permits.
func (c *codec) appendRecord(data []byte, rr domain.ResourceRecord, comp *dnsname.Compressor, now time.Time) ([]byte, error) {
	data, err := dnsname.Append(data, rr.Name, comp)
	if err != nil {
		return nil, fmt.Errorf("encoding %s owner name: %w", rr.Type, err)
	}
	data = appendU16(data, uint16(rr.Type))
	data = appendU16(data, uint16(rr.Class))
	data = appendU32(data, rr.TTL(now))

	lenOff := len(data)
	data = appendU16(data, 0) // rdlength placeholder
	data, err = rrdata.AppendRData(data, rr.Type, rr.Data, comp)
	if err != nil {
		return nil, fmt.Errorf("encoding %s rdata: %w", rr.Type, err)
	}
	rdLen := len(data) - lenOff - 2
	if rdLen > 0xFFFF {
		return nil, fmt.Errorf("%s rdata exceeds %d octets", rr.Type, 0xFFFF)
	}
	data[lenOff] = byte(rdLen >> 8)
	data[lenOff+1] = byte(rdLen)
	return data, nil
}

func appendU16(data []byte, v uint16) []byte {
	return append(data, byte(v>>8), byte(v))
}

func appendU32(data []byte, v uint32) []byte {
	return append(data, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func appendU48(data []byte, v uint64) []byte {
	return append(data, byte(v>>40), byte(v>>32), byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
