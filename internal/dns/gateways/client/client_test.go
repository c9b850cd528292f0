package client

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rec-dns/internal/dns/common/log"
	"github.com/haukened/rec-dns/internal/dns/common/rrdata"
	"github.com/haukened/rec-dns/internal/dns/domain"
	"github.com/haukened/rec-dns/internal/dns/gateways/transport"
	"github.com/haukened/rec-dns/internal/dns/gateways/wire"
)

// scriptedConn answers each Send with the datagrams the respond function
// produces for the query.
type scriptedConn struct {
	respond func(query []byte) ([][]byte, error)
	queue   [][]byte
}

func (c *scriptedConn) Send(_ context.Context, data []byte) error {
	out, err := c.respond(data)
	if err != nil {
		return err
	}
	c.queue = append(c.queue, out...)
	return nil
}

func (c *scriptedConn) Receive(_ context.Context) ([]byte, error) {
	if len(c.queue) == 0 {
		return nil, errors.New("no more responses scripted")
	}
	d := c.queue[0]
	c.queue = c.queue[1:]
	return d, nil
}

func (c *scriptedConn) Close() error { return nil }

type scriptedTransport struct {
	respond func(query []byte) ([][]byte, error)
	dialErr error
	dials   int
}

func (t *scriptedTransport) Dial(_ context.Context, _ string) (transport.Conn, error) {
	t.dials++
	if t.dialErr != nil {
		return nil, t.dialErr
	}
	return &scriptedConn{respond: t.respond}, nil
}

var _ transport.ClientTransport = &scriptedTransport{}

func testCodec() wire.MessageCodec {
	return wire.NewCodec(log.NewNoopLogger())
}

func mustQuestion(t *testing.T, name string, rrType domain.RRType) domain.Question {
	t.Helper()
	q, err := domain.NewQuestion(name, rrType, domain.RRClassIN)
	require.NoError(t, err)
	return q
}

func mustARecord(t *testing.T, name, addr string, ttl uint32) domain.ResourceRecord {
	t.Helper()
	data, err := rrdata.Encode(domain.RRTypeA, addr)
	require.NoError(t, err)
	rr, err := domain.NewStaticResourceRecord(name, domain.RRTypeA, domain.RRClassIN, ttl, data, addr)
	require.NoError(t, err)
	return rr
}

// echoResponder decodes the query and answers it with the given records.
func echoResponder(t *testing.T, answers ...domain.ResourceRecord) func([]byte) ([][]byte, error) {
	t.Helper()
	codec := testCodec()
	return func(query []byte) ([][]byte, error) {
		q, err := codec.Decode(query, time.Now())
		if err != nil {
			return nil, err
		}
		resp := &domain.Message{
			ID:       q.ID,
			Response: true,
			Question: q.Question,
			Answers:  answers,
		}
		out, err := codec.Encode(resp, 0, time.Now())
		if err != nil {
			return nil, err
		}
		return [][]byte{out}, nil
	}
}

func TestQueryOverUDP(t *testing.T) {
	rr := mustARecord(t, "example.com", "192.0.2.1", 300)
	udp := &scriptedTransport{respond: echoResponder(t, rr)}

	c := New(Options{
		UDP:              udp,
		TCP:              &scriptedTransport{dialErr: errors.New("tcp must not be used")},
		Logger:           log.NewNoopLogger(),
		ValidateIdentity: true,
		Rand:             rand.New(rand.NewSource(1)),
	})
	resp, err := c.Query(context.Background(), mustQuestion(t, "example.com", domain.RRTypeA), "192.0.2.53:53")
	require.NoError(t, err)
	require.Len(t, resp.Answers, 1)
	assert.Equal(t, "192.0.2.1", resp.Answers[0].Text)
	assert.Equal(t, 1, udp.dials)
}

func TestQueryIgnoresMismatchedID(t *testing.T) {
	codec := testCodec()
	respond := func(query []byte) ([][]byte, error) {
		q, err := codec.Decode(query, time.Now())
		if err != nil {
			return nil, err
		}
		// A forged datagram with the wrong ID arrives first.
		forged := &domain.Message{ID: q.ID ^ 0xFFFF, Response: true, Question: q.Question}
		good := &domain.Message{ID: q.ID, Response: true, Question: q.Question}
		f, err := codec.Encode(forged, 0, time.Now())
		if err != nil {
			return nil, err
		}
		g, err := codec.Encode(good, 0, time.Now())
		if err != nil {
			return nil, err
		}
		return [][]byte{f, g}, nil
	}

	c := New(Options{
		UDP:    &scriptedTransport{respond: respond},
		TCP:    &scriptedTransport{dialErr: errors.New("unused")},
		Logger: log.NewNoopLogger(),
		Rand:   rand.New(rand.NewSource(2)),
	})
	resp, err := c.Query(context.Background(), mustQuestion(t, "example.com", domain.RRTypeA), "192.0.2.53:53")
	require.NoError(t, err)
	assert.True(t, resp.Response)
}

func TestQueryRetriesTruncationOverTCP(t *testing.T) {
	codec := testCodec()
	truncated := func(query []byte) ([][]byte, error) {
		q, err := codec.Decode(query, time.Now())
		if err != nil {
			return nil, err
		}
		resp := &domain.Message{ID: q.ID, Response: true, Truncated: true, Question: q.Question}
		out, err := codec.Encode(resp, 0, time.Now())
		if err != nil {
			return nil, err
		}
		return [][]byte{out}, nil
	}

	rr := mustARecord(t, "example.com", "192.0.2.7", 60)
	udp := &scriptedTransport{respond: truncated}
	tcp := &scriptedTransport{respond: echoResponder(t, rr)}

	c := New(Options{
		UDP:    udp,
		TCP:    tcp,
		Logger: log.NewNoopLogger(),
		Rand:   rand.New(rand.NewSource(3)),
	})
	resp, err := c.Query(context.Background(), mustQuestion(t, "example.com", domain.RRTypeA), "192.0.2.53:53")
	require.NoError(t, err)
	require.Len(t, resp.Answers, 1)
	assert.False(t, resp.Truncated)
	assert.Equal(t, 1, udp.dials)
	assert.Equal(t, 1, tcp.dials)
}

func TestQueryANYGoesStraightToTCP(t *testing.T) {
	rr := mustARecord(t, "example.com", "192.0.2.8", 60)
	udp := &scriptedTransport{dialErr: errors.New("udp must not be used")}
	tcp := &scriptedTransport{respond: echoResponder(t, rr)}

	c := New(Options{
		UDP:    udp,
		TCP:    tcp,
		Logger: log.NewNoopLogger(),
		Rand:   rand.New(rand.NewSource(4)),
	})
	resp, err := c.Query(context.Background(), mustQuestion(t, "example.com", domain.RRTypeANY), "192.0.2.53:53")
	require.NoError(t, err)
	require.Len(t, resp.Answers, 1)
	assert.Equal(t, 0, udp.dials)
	assert.Equal(t, 1, tcp.dials)
}

func TestQueryRejectsCaseMismatchWith0x20(t *testing.T) {
	codec := testCodec()
	// The responder downcases the echoed question, which 0x20 validation
	// must treat as a mismatch.
	respond := func(query []byte) ([][]byte, error) {
		q, err := codec.Decode(query, time.Now())
		if err != nil {
			return nil, err
		}
		lowered, err := domain.NewQuestion("www.example.com", q.Question[0].Type, q.Question[0].Class)
		if err != nil {
			return nil, err
		}
		resp := &domain.Message{ID: q.ID, Response: true, Question: []domain.Question{lowered}}
		out, err := codec.Encode(resp, 0, time.Now())
		if err != nil {
			return nil, err
		}
		return [][]byte{out}, nil
	}

	c := New(Options{
		UDP:              &scriptedTransport{respond: respond},
		TCP:              &scriptedTransport{dialErr: errors.New("unused")},
		Logger:           log.NewNoopLogger(),
		Use0x20:          true,
		ValidateIdentity: true,
		Rand:             rand.New(rand.NewSource(0xC0FFEE)),
	})
	_, err := c.Query(context.Background(), mustQuestion(t, "www.example.com", domain.RRTypeA), "192.0.2.53:53")
	assert.Error(t, err)
}

func TestExchangeFailsOverToNextServer(t *testing.T) {
	rr := mustARecord(t, "example.com", "192.0.2.9", 30)
	attempts := 0
	codec := testCodec()
	respond := func(query []byte) ([][]byte, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("network unreachable")
		}
		q, err := codec.Decode(query, time.Now())
		if err != nil {
			return nil, err
		}
		resp := &domain.Message{ID: q.ID, Response: true, Question: q.Question, Answers: []domain.ResourceRecord{rr}}
		out, err := codec.Encode(resp, 0, time.Now())
		if err != nil {
			return nil, err
		}
		return [][]byte{out}, nil
	}

	c := New(Options{
		UDP:    &scriptedTransport{respond: respond},
		TCP:    &scriptedTransport{dialErr: errors.New("unused")},
		Logger: log.NewNoopLogger(),
		Rand:   rand.New(rand.NewSource(4)),
	})
	resp, err := c.Exchange(context.Background(), mustQuestion(t, "example.com", domain.RRTypeA),
		[]string{"192.0.2.1:53", "192.0.2.2:53"})
	require.NoError(t, err)
	assert.Len(t, resp.Answers, 1)
	assert.Equal(t, 2, attempts)
}

func TestExchangeRequiresServers(t *testing.T) {
	c := New(Options{Logger: log.NewNoopLogger()})
	_, err := c.Exchange(context.Background(), mustQuestion(t, "example.com", domain.RRTypeA), nil)
	assert.ErrorContains(t, err, "no servers")
}

func TestQueryVerifiesTSIG(t *testing.T) {
	key := wire.TSIGKey{
		Name:      "transfer-key.example.com",
		Algorithm: rrdata.TSIGHMACSHA256,
		Secret:    []byte("sixteen byte key"),
	}
	codec := testCodec()
	rr := mustARecord(t, "example.com", "192.0.2.4", 120)
	signer := func(respKey wire.TSIGKey) func([]byte) ([][]byte, error) {
		return func(query []byte) ([][]byte, error) {
			// The server verifies the request before answering.
			_, _, err := wire.VerifyMessage(query, key, time.Now(), nil)
			if err != nil {
				return nil, err
			}
			requestMAC, err := wire.RequestMAC(query)
			if err != nil {
				return nil, err
			}
			q, err := codec.Decode(query, time.Now())
			if err != nil {
				return nil, err
			}
			resp := &domain.Message{ID: q.ID, Response: true, Question: q.Question, Answers: []domain.ResourceRecord{rr}}
			out, err := codec.Encode(resp, 0, time.Now())
			if err != nil {
				return nil, err
			}
			signed, err := wire.SignMessage(out, respKey, time.Now(), 300, requestMAC)
			if err != nil {
				return nil, err
			}
			return [][]byte{signed}, nil
		}
	}

	goodClient := New(Options{
		UDP:     &scriptedTransport{respond: signer(key)},
		TCP:     &scriptedTransport{dialErr: errors.New("unused")},
		Logger:  log.NewNoopLogger(),
		TSIGKey: &key,
		Rand:    rand.New(rand.NewSource(5)),
	})
	resp, err := goodClient.Query(context.Background(), mustQuestion(t, "example.com", domain.RRTypeA), "192.0.2.53:53")
	require.NoError(t, err)
	assert.Len(t, resp.Answers, 1)

	wrongKey := key
	wrongKey.Secret = []byte("a different secret")
	badClient := New(Options{
		UDP:     &scriptedTransport{respond: signer(wrongKey)},
		TCP:     &scriptedTransport{dialErr: errors.New("unused")},
		Logger:  log.NewNoopLogger(),
		TSIGKey: &key,
		Rand:    rand.New(rand.NewSource(6)),
	})
	_, err = badClient.Query(context.Background(), mustQuestion(t, "example.com", domain.RRTypeA), "192.0.2.53:53")
	assert.ErrorIs(t, err, wire.ErrTSIGBadSig)
}
