package wire

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/haukened/rec-dns/internal/dns/common/dnsname"
	"github.com/haukened/rec-dns/internal/dns/common/rrdata"
	"github.com/haukened/rec-dns/internal/dns/domain"
)

// Decode parses a complete wire message. OPT is folded onto Message.EDNS
// (merging the extended rcode bits) and a trailing TSIG onto Message.TSIG;
// neither appears in the decoded additional section.
func (c *codec) Decode(data []byte, now time.Time) (*domain.Message, error) {
	if len(data) < headerLen {
		return nil, fmt.Errorf("message too short: %d octets", len(data))
	}
	flags := binary.BigEndian.Uint16(data[2:4])
	m := &domain.Message{
		ID:                 binary.BigEndian.Uint16(data[0:2]),
		Response:           flags&flagQR != 0,
		Opcode:             domain.Opcode(flags >> 11 & 0xF),
		Authoritative:      flags&flagAA != 0,
		Truncated:          flags&flagTC != 0,
		RecursionDesired:   flags&flagRD != 0,
		RecursionAvailable: flags&flagRA != 0,
		AuthenticData:      flags&flagAD != 0,
		CheckingDisabled:   flags&flagCD != 0,
		RCode:              domain.RCode(flags & 0xF),
	}
	qdCount := int(binary.BigEndian.Uint16(data[4:6]))
	anCount := int(binary.BigEndian.Uint16(data[6:8]))
	nsCount := int(binary.BigEndian.Uint16(data[8:10]))
	arCount := int(binary.BigEndian.Uint16(data[10:12]))

	off := headerLen
	for i := 0; i < qdCount; i++ {
		q, next, err := decodeQuestion(data, off)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		m.Question = append(m.Question, q)
		off = next
	}

	var err error
	if m.Answers, off, err = c.decodeSection(data, off, anCount, now, "answer"); err != nil {
		return nil, err
	}
	if m.Authority, off, err = c.decodeSection(data, off, nsCount, now, "authority"); err != nil {
		return nil, err
	}
	if off, err = c.decodeAdditional(m, data, off, arCount, now); err != nil {
		return nil, err
	}
	if off != len(data) {
		return nil, fmt.Errorf("%d trailing octets after message", len(data)-off)
	}
	return m, nil
}

func decodeQuestion(data []byte, off int) (domain.Question, int, error) {
	name, off, err := dnsname.Decode(data, off)
	if err != nil {
		return domain.Question{}, 0, err
	}
	if off+4 > len(data) {
		return domain.Question{}, 0, fmt.Errorf("truncated question")
	}
	q := domain.Question{
		Name:  name,
		Type:  domain.RRType(binary.BigEndian.Uint16(data[off:])),
		Class: domain.RRClass(binary.BigEndian.Uint16(data[off+2:])),
	}
	return q, off + 4, nil
}

// rawRecord is a record envelope before RDATA interpretation.
type rawRecord struct {
	name  string
	rtype domain.RRType
	class uint16
	ttl   uint32
	rdOff int
	rdEnd int
}

func decodeRawRecord(data []byte, off int) (rawRecord, int, error) {
	name, off, err := dnsname.Decode(data, off)
	if err != nil {
		return rawRecord{}, 0, err
	}
	if off+10 > len(data) {
		return rawRecord{}, 0, fmt.Errorf("truncated record header")
	}
	raw := rawRecord{
		name:  name,
		rtype: domain.RRType(binary.BigEndian.Uint16(data[off:])),
		class: binary.BigEndian.Uint16(data[off+2:]),
		ttl:   binary.BigEndian.Uint32(data[off+4:]),
	}
	rdLen := int(binary.BigEndian.Uint16(data[off+8:]))
	raw.rdOff = off + 10
	raw.rdEnd = raw.rdOff + rdLen
	if raw.rdEnd > len(data) {
		return rawRecord{}, 0, fmt.Errorf("rdata runs past message")
	}
	return raw, raw.rdEnd, nil
}

func (c *codec) decodeRecord(data []byte, raw rawRecord, now time.Time) (domain.ResourceRecord, error) {
	norm, text, err := rrdata.Decode(raw.rtype, data, raw.rdOff, raw.rdEnd)
	if err != nil {
		return domain.ResourceRecord{}, err
	}
	return domain.NewCachedResourceRecord(raw.name, raw.rtype, domain.RRClass(raw.class), raw.ttl, norm, text, now)
}

func (c *codec) decodeSection(data []byte, off, count int, now time.Time, section string) ([]domain.ResourceRecord, int, error) {
	var records []domain.ResourceRecord
	for i := 0; i < count; i++ {
		raw, next, err := decodeRawRecord(data, off)
		if err != nil {
			return nil, 0, fmt.Errorf("%s record %d: %w", section, i, err)
		}
		switch raw.rtype {
		case domain.RRTypeOPT:
			return nil, 0, fmt.Errorf("%s record %d: OPT outside additional section", section, i)
		case domain.RRTypeTSIG:
			return nil, 0, fmt.Errorf("%s record %d: TSIG outside additional section", section, i)
		}
		rr, err := c.decodeRecord(data, raw, now)
		if err != nil {
			return nil, 0, fmt.Errorf("%s record %d: %w", section, i, err)
		}
		records = append(records, rr)
		off = next
	}
	return records, off, nil
}

// decodeAdditional parses the additional section, folding OPT and a trailing
// TSIG out of it. A repeated OPT or a TSIG anywhere but last is an error
// (RFC 6891 §6.1.1, RFC 8945 §5.1).
func (c *codec) decodeAdditional(m *domain.Message, data []byte, off, count int, now time.Time) (int, error) {
	for i := 0; i < count; i++ {
		raw, next, err := decodeRawRecord(data, off)
		if err != nil {
			return 0, fmt.Errorf("additional record %d: %w", i, err)
		}
		switch raw.rtype {
		case domain.RRTypeOPT:
			if m.EDNS != nil {
				return 0, fmt.Errorf("duplicate OPT record")
			}
			if raw.name != "" {
				return 0, fmt.Errorf("OPT owner name must be root")
			}
			edns, ext, err := parseOPT(raw.class, raw.ttl, data[raw.rdOff:raw.rdEnd])
			if err != nil {
				return 0, err
			}
			m.EDNS = edns
			m.RCode |= domain.RCode(ext) << 4
		case domain.RRTypeTSIG:
			if i != count-1 {
				return 0, fmt.Errorf("TSIG record is not last in the message")
			}
			rr, err := c.decodeRecord(data, raw, now)
			if err != nil {
				return 0, fmt.Errorf("tsig record: %w", err)
			}
			m.TSIG = &rr
		default:
			rr, err := c.decodeRecord(data, raw, now)
			if err != nil {
				return 0, fmt.Errorf("additional record %d: %w", i, err)
			}
			m.Additional = append(m.Additional, rr)
		}
		off = next
	}
	return off, nil
}
