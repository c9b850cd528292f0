// Package client implements the single-query engine: it encodes a question,
// exchanges it with one server over UDP or TCP, and hands back the decoded
// response after identity and TSIG checks. Retry across servers, referral
// walking and caching live in higher layers.
package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/haukened/rec-dns/internal/dns/common/clock"
	"github.com/haukened/rec-dns/internal/dns/common/dnsname"
	"github.com/haukened/rec-dns/internal/dns/common/log"
	"github.com/haukened/rec-dns/internal/dns/domain"
	"github.com/haukened/rec-dns/internal/dns/gateways/transport"
	"github.com/haukened/rec-dns/internal/dns/gateways/wire"
)

// Error message constants for consistent error reporting.
const (
	errNoServersProvided  = "no servers provided"
	errAllServersFailed   = "all servers failed"
	errResponseMismatch   = "response does not match query"
	errTransferNotStarted = "zone transfer does not begin with SOA"
	errTransferUnsigned   = "zone transfer envelope missing required TSIG"
)

const (
	defaultTimeout = 5 * time.Second
	defaultUDPSize = 1232

	// A signer may leave up to 99 unsigned envelopes between signed ones
	// in a multi-message transfer (RFC 8945 §5.3.1).
	maxUnsignedEnvelopes = 99
)

// Options configures a Client. Zero values select working defaults; the
// transport, codec, clock and rand fields exist for test injection.
type Options struct {
	// Timeout bounds a whole exchange when the caller's context carries no
	// deadline of its own.
	Timeout time.Duration
	// UDPSize is the EDNS payload size advertised in queries.
	UDPSize uint16
	// DNSSEC sets the DO bit, asking servers to include RRSIG and related
	// records.
	DNSSEC bool
	// Use0x20 randomizes the case of query names and requires responses to
	// echo it exactly, narrowing the blind-spoofing window.
	Use0x20 bool
	// ValidateIdentity rejects responses whose question section does not
	// echo the query.
	ValidateIdentity bool
	// RecursionDesired sets the RD bit. Off for iterative resolution.
	RecursionDesired bool
	// CheckingDisabled sets the CD bit, telling servers to hand back data
	// that failed their own validation so we can judge it ourselves.
	CheckingDisabled bool
	// EDNSOptions are attached to every query's OPT record, e.g. the
	// algorithm-understood options of RFC 6975.
	EDNSOptions []domain.EDNSOption
	// TSIGKey, when set, signs every query and makes responses that fail
	// TSIG verification fatal.
	TSIGKey *wire.TSIGKey
	// TSIGFudge is the permitted clock skew in seconds on signed messages.
	TSIGFudge uint16

	UDP    transport.ClientTransport
	TCP    transport.ClientTransport
	Codec  wire.MessageCodec
	Clock  clock.Clock
	Rand   *rand.Rand
	Logger log.Logger
}

// Client exchanges single DNS queries with servers.
type Client struct {
	udp    transport.ClientTransport
	tcp    transport.ClientTransport
	codec  wire.MessageCodec
	clock  clock.Clock
	logger log.Logger

	timeout          time.Duration
	udpSize          uint16
	dnssec           bool
	use0x20          bool
	validateIdentity bool
	recursionDesired bool
	checkingDisabled bool
	ednsOptions      []domain.EDNSOption
	tsigKey          *wire.TSIGKey
	tsigFudge        uint16

	// rand.Rand is not safe for concurrent use.
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Client from opts, filling in defaults for anything unset.
func New(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.UDPSize == 0 {
		opts.UDPSize = defaultUDPSize
	}
	if opts.TSIGFudge == 0 {
		opts.TSIGFudge = 300
	}
	if opts.Codec == nil {
		opts.Codec = wire.NewCodec(opts.Logger)
	}
	if opts.UDP == nil {
		opts.UDP = transport.NewUDPTransport(nil, int(opts.UDPSize), opts.Logger)
	}
	if opts.TCP == nil {
		opts.TCP = transport.NewTCPTransport(nil, opts.Logger)
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Client{
		udp:              opts.UDP,
		tcp:              opts.TCP,
		codec:            opts.Codec,
		clock:            opts.Clock,
		logger:           opts.Logger,
		timeout:          opts.Timeout,
		udpSize:          opts.UDPSize,
		dnssec:           opts.DNSSEC,
		use0x20:          opts.Use0x20,
		validateIdentity: opts.ValidateIdentity,
		recursionDesired: opts.RecursionDesired,
		checkingDisabled: opts.CheckingDisabled,
		ednsOptions:      opts.EDNSOptions,
		tsigKey:          opts.TSIGKey,
		tsigFudge:        opts.TSIGFudge,
		rng:              opts.Rand,
	}
}

// Exchange queries servers in order until one returns a usable response.
func (c *Client) Exchange(ctx context.Context, q domain.Question, servers []string) (*domain.Message, error) {
	if len(servers) == 0 {
		return nil, errors.New(errNoServersProvided)
	}
	var lastErr error
	for _, server := range servers {
		resp, err := c.Query(ctx, q, server)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		c.logger.Debug(map[string]any{
			"server": server,
			"name":   q.Name,
			"type":   q.Type.String(),
			"error":  err.Error(),
		}, "server failed, trying next")
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("%s: %w", errAllServersFailed, lastErr)
}

// Query performs one exchange with a single server. Queries go over UDP
// first; a truncated response is retried over TCP with the same message.
// Transfer-class and ANY queries go straight to TCP: their answers rarely
// fit a datagram, so UDP would only buy a truncated round trip.
func (c *Client) Query(ctx context.Context, q domain.Question, server string) (*domain.Message, error) {
	ctx, cancel := c.ensureDeadline(ctx)
	defer cancel()

	sent := q
	if c.use0x20 {
		sent.Name = c.randomizeCase(q.Name)
	}
	data, id, requestMAC, err := c.encodeQuery(sent)
	if err != nil {
		return nil, err
	}

	if q.Type == domain.RRTypeAXFR || q.Type == domain.RRTypeIXFR || q.Type == domain.RRTypeANY {
		resp, _, err := c.queryTCP(ctx, server, data, id, sent, requestMAC)
		return resp, err
	}

	resp, err := c.queryUDP(ctx, server, data, id, sent, requestMAC)
	if err != nil {
		return nil, err
	}
	if resp.Truncated {
		c.logger.Debug(map[string]any{
			"server": server,
			"name":   q.Name,
			"type":   q.Type.String(),
		}, "response truncated, retrying over TCP")
		resp, _, err = c.queryTCP(ctx, server, data, id, sent, requestMAC)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// encodeQuery builds and encodes the outbound message, signing it when a
// TSIG key is configured. The returned MAC chains into response
// verification.
func (c *Client) encodeQuery(q domain.Question) ([]byte, uint16, []byte, error) {
	id := c.randomID()
	msg := domain.NewQueryMessage(id, q, c.recursionDesired)
	msg.CheckingDisabled = c.checkingDisabled
	msg.EDNS = &domain.EDNS{UDPSize: c.udpSize, Do: c.dnssec, Options: c.ednsOptions}

	now := c.clock.Now()
	data, err := c.codec.Encode(msg, 0, now)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("encoding query: %w", err)
	}
	var requestMAC []byte
	if c.tsigKey != nil {
		data, err = wire.SignMessage(data, *c.tsigKey, now, c.tsigFudge, nil)
		if err != nil {
			return nil, 0, nil, fmt.Errorf("signing query: %w", err)
		}
		requestMAC, err = wire.RequestMAC(data)
		if err != nil {
			return nil, 0, nil, err
		}
	}
	return data, id, requestMAC, nil
}

// queryUDP sends the query and reads datagrams until one matches it.
// Datagrams that fail to decode or to match are discarded and the read
// continues: a mismatch may be a stale or forged answer while the real one
// is still in flight. A TSIG failure on a matching response is fatal.
func (c *Client) queryUDP(ctx context.Context, server string, data []byte, id uint16, sent domain.Question, requestMAC []byte) (*domain.Message, error) {
	conn, err := c.udp.Dial(ctx, server)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	if err := conn.Send(ctx, data); err != nil {
		return nil, fmt.Errorf("sending query to %s: %w", server, err)
	}
	for {
		raw, err := conn.Receive(ctx)
		if err != nil {
			return nil, fmt.Errorf("receiving from %s: %w", server, err)
		}
		resp, err := c.codec.Decode(raw, c.clock.Now())
		if err != nil {
			c.logger.Warn(map[string]any{
				"server": server,
				"error":  err.Error(),
			}, "discarding undecodable datagram")
			continue
		}
		if err := c.matchesQuery(resp, id, sent); err != nil {
			c.logger.Warn(map[string]any{
				"server": server,
				"id":     resp.ID,
				"error":  err.Error(),
			}, "discarding mismatched datagram")
			continue
		}
		if c.tsigKey != nil {
			if _, _, err := wire.VerifyMessage(raw, *c.tsigKey, c.clock.Now(), requestMAC); err != nil {
				return nil, fmt.Errorf("verifying response from %s: %w", server, err)
			}
		}
		return resp, nil
	}
}

// queryTCP sends the query over a stream and reads exactly one response.
// Unlike UDP there is no spoofing concern, so a mismatch is an error rather
// than a reason to keep reading.
func (c *Client) queryTCP(ctx context.Context, server string, data []byte, id uint16, sent domain.Question, requestMAC []byte) (*domain.Message, []byte, error) {
	conn, err := c.tcp.Dial(ctx, server)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = conn.Close() }()

	if err := conn.Send(ctx, data); err != nil {
		return nil, nil, fmt.Errorf("sending query to %s: %w", server, err)
	}
	raw, err := conn.Receive(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("receiving from %s: %w", server, err)
	}
	resp, err := c.codec.Decode(raw, c.clock.Now())
	if err != nil {
		return nil, nil, fmt.Errorf("decoding response from %s: %w", server, err)
	}
	if err := c.matchesQuery(resp, id, sent); err != nil {
		return nil, nil, err
	}
	if c.tsigKey != nil {
		if _, _, err := wire.VerifyMessage(raw, *c.tsigKey, c.clock.Now(), requestMAC); err != nil {
			return nil, nil, fmt.Errorf("verifying response from %s: %w", server, err)
		}
	}
	return resp, raw, nil
}

// matchesQuery checks that a decoded message is a response to the query we
// sent: same ID and, when identity validation is on, an exactly echoed
// question. With 0x20 active the echo must preserve our randomized case.
func (c *Client) matchesQuery(resp *domain.Message, id uint16, sent domain.Question) error {
	if !resp.Response {
		return fmt.Errorf("%s: not a response", errResponseMismatch)
	}
	if resp.ID != id {
		return fmt.Errorf("%s: id %d, want %d", errResponseMismatch, resp.ID, id)
	}
	if len(resp.Question) == 0 {
		// Some servers answer FORMERR with an empty question section.
		if c.validateIdentity && resp.RCode == domain.RCodeNoError {
			return fmt.Errorf("%s: empty question section", errResponseMismatch)
		}
		return nil
	}
	echo := resp.Question[0]
	if echo.Type != sent.Type || echo.Class != sent.Class {
		return fmt.Errorf("%s: question %s %s", errResponseMismatch, echo.Type, echo.Class)
	}
	if c.use0x20 && c.validateIdentity {
		if !dnsname.Match0x20(sent.Name, echo.Name) {
			return fmt.Errorf("%s: name case not preserved", errResponseMismatch)
		}
		return nil
	}
	if !dnsname.Equal(echo.Name, sent.Name) {
		return fmt.Errorf("%s: name %q", errResponseMismatch, echo.Name)
	}
	return nil
}

func (c *Client) randomID() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uint16(c.rngLocked().Intn(0x10000))
}

func (c *Client) randomizeCase(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return dnsname.Randomize0x20(name, c.rngLocked())
}

// rngLocked returns the shared rand source; callers must hold mu.
func (c *Client) rngLocked() *rand.Rand {
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return c.rng
}

func (c *Client) ensureDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}
