// Package transport moves encoded DNS messages over UDP and TCP. The client
// side dials servers and exchanges raw messages (with TCP length framing and
// multi-response streams for zone transfers); the server side binds sockets
// and hands incoming messages to the service layer. Wire format
// interpretation stays in the wire package.
package transport

import (
	"context"
	"net"
	"time"

	"golang.org/x/net/proxy"

	"github.com/haukened/rec-dns/internal/dns/domain"
)

// Kind selects a transport protocol.
type Kind string

const (
	// KindUDP is standard DNS over UDP (RFC 1035 §4.2.1).
	KindUDP Kind = "udp"

	// KindTCP is DNS over TCP with two-octet length framing (RFC 7766).
	KindTCP Kind = "tcp"
)

// Dialer is the contract for opening outbound connections. net.Dialer
// satisfies it, as do SOCKS proxies and test doubles.
type Dialer = proxy.ContextDialer

// Conn is a single client conversation with one server. Send writes an
// encoded message; Receive returns the next encoded response. On TCP a
// conversation may carry several queries and, for zone transfers, several
// responses per query. Both respect the context's deadline.
type Conn interface {
	Send(ctx context.Context, data []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// ClientTransport dials DNS servers.
type ClientTransport interface {
	Dial(ctx context.Context, addr string) (Conn, error)
}

// Handler is how the service layer receives inbound queries. It returns the
// response to send, or nil to drop the query silently.
type Handler interface {
	Handle(ctx context.Context, query *domain.Message, from net.Addr) *domain.Message
}

// ServerTransport is a bound listener feeding queries to a Handler.
type ServerTransport interface {
	// Start binds the socket and begins the receive loop.
	Start(ctx context.Context, handler Handler) error

	// Stop shuts the transport down, closing the socket and any open
	// connections.
	Stop() error

	// Address returns the address the transport is bound to.
	Address() string
}

// maxMessageSize bounds a single DNS message on any transport: TCP framing
// cannot express more than 65535 octets.
const maxMessageSize = 0xFFFF

// defaultDialer builds the dialer used when none is supplied. The KeepAlive
// interval keeps reused TCP conversations alive between queries; the Timeout
// bounds connection establishment separately from per-exchange deadlines.
func defaultDialer(timeout, keepAlive time.Duration) Dialer {
	return &net.Dialer{Timeout: timeout, KeepAlive: keepAlive}
}

// deadlineFrom applies the context deadline, if any, to a connection before
// an I/O operation.
func deadlineFrom(ctx context.Context, conn net.Conn) error {
	if deadline, ok := ctx.Deadline(); ok {
		return conn.SetDeadline(deadline)
	}
	return conn.SetDeadline(time.Time{})
}
