package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/haukened/rec-dns/internal/dns/common/rrdata"
	"github.com/haukened/rec-dns/internal/dns/domain"
	"github.com/haukened/rec-dns/internal/dns/gateways/wire"
)

// Transfer performs a full zone transfer (AXFR) of zone from server over
// TCP and returns the records in transfer order. The stream must open with
// the zone's SOA and close with a repeat of it; the closing repeat is not
// returned. When a TSIG key is configured every envelope's signature is
// chained from the previous one.
func (c *Client) Transfer(ctx context.Context, zone string, server string) ([]domain.ResourceRecord, error) {
	ctx, cancel := c.ensureDeadline(ctx)
	defer cancel()

	q := domain.Question{Name: zone, Type: domain.RRTypeAXFR, Class: domain.RRClassIN}
	data, id, requestMAC, err := c.encodeQuery(q)
	if err != nil {
		return nil, err
	}

	conn, err := c.tcp.Dial(ctx, server)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	if err := conn.Send(ctx, data); err != nil {
		return nil, fmt.Errorf("sending transfer request to %s: %w", server, err)
	}

	var records []domain.ResourceRecord
	soaSeen := 0
	envelope := 0
	unsigned := 0
	priorMAC := requestMAC
	for soaSeen < 2 {
		raw, err := conn.Receive(ctx)
		if err != nil {
			return nil, fmt.Errorf("receiving transfer envelope from %s: %w", server, err)
		}
		resp, err := c.codec.Decode(raw, c.clock.Now())
		if err != nil {
			return nil, fmt.Errorf("decoding transfer envelope: %w", err)
		}
		if resp.ID != id || !resp.Response {
			return nil, errors.New(errResponseMismatch)
		}
		if resp.RCode != domain.RCodeNoError {
			return nil, fmt.Errorf("zone transfer refused: %s", resp.RCode.StringIn(resp.EDNS != nil))
		}

		if c.tsigKey != nil {
			if resp.TSIG != nil {
				var ts rrdata.TSIG
				var verr error
				if envelope == 0 {
					ts, _, verr = wire.VerifyMessage(raw, *c.tsigKey, c.clock.Now(), priorMAC)
				} else {
					ts, _, verr = wire.VerifyContinuation(raw, *c.tsigKey, c.clock.Now(), priorMAC)
				}
				if verr != nil {
					return nil, fmt.Errorf("verifying transfer envelope %d: %w", envelope, verr)
				}
				priorMAC = ts.MAC
				unsigned = 0
			} else {
				if envelope == 0 {
					return nil, errors.New(errTransferUnsigned)
				}
				unsigned++
				if unsigned > maxUnsignedEnvelopes {
					return nil, errors.New(errTransferUnsigned)
				}
			}
		}

		if envelope == 0 && (len(resp.Answers) == 0 || resp.Answers[0].Type != domain.RRTypeSOA) {
			return nil, errors.New(errTransferNotStarted)
		}
		for _, rr := range resp.Answers {
			if rr.Type == domain.RRTypeSOA {
				soaSeen++
				if soaSeen == 2 {
					break
				}
			}
			records = append(records, rr)
		}
		envelope++
	}
	// The closing envelope must itself be signed (RFC 8945 §5.3.1).
	if c.tsigKey != nil && unsigned != 0 {
		return nil, errors.New(errTransferUnsigned)
	}

	c.logger.Info(map[string]any{
		"zone":      zone,
		"server":    server,
		"records":   len(records),
		"envelopes": envelope,
	}, "zone transfer complete")
	return records, nil
}
