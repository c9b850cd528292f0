package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/haukened/rec-dns/internal/dns/common/log"
	"github.com/haukened/rec-dns/internal/dns/gateways/wire"
)

// TCPTransport dials servers for framed stream exchanges. Connections may
// be held open across queries; the dialer's keep-alive maintains them.
type TCPTransport struct {
	dialer Dialer
	logger log.Logger
}

// NewTCPTransport creates a client TCP transport. A nil dialer uses the
// default with a 5s connect timeout and 30s keep-alive.
func NewTCPTransport(dialer Dialer, logger log.Logger) *TCPTransport {
	if dialer == nil {
		dialer = defaultDialer(5*time.Second, 30*time.Second)
	}
	return &TCPTransport{dialer: dialer, logger: logger}
}

// Dial opens a TCP stream to addr.
func (t *TCPTransport) Dial(ctx context.Context, addr string) (Conn, error) {
	conn, err := t.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing tcp %s: %w", addr, err)
	}
	return &tcpConn{conn: conn}, nil
}

var _ ClientTransport = &TCPTransport{}

type tcpConn struct {
	conn net.Conn
}

// Send writes one message with its two-octet big-endian length prefix
// (RFC 1035 §4.2.2).
func (c *tcpConn) Send(ctx context.Context, data []byte) error {
	if len(data) > maxMessageSize {
		return fmt.Errorf("message of %d octets exceeds transport limit", len(data))
	}
	if err := deadlineFrom(ctx, c.conn); err != nil {
		return err
	}
	framed := make([]byte, 2+len(data))
	binary.BigEndian.PutUint16(framed, uint16(len(data)))
	copy(framed[2:], data)
	_, err := c.conn.Write(framed)
	return err
}

// Receive reads the next framed message: first the length prefix, then
// exactly that many octets. Repeated calls drain multi-message streams such
// as zone transfers.
func (c *tcpConn) Receive(ctx context.Context) ([]byte, error) {
	if err := deadlineFrom(ctx, c.conn); err != nil {
		return nil, err
	}
	var prefix [2]byte
	if _, err := io.ReadFull(c.conn, prefix[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint16(prefix[:])
	if length == 0 {
		return nil, fmt.Errorf("zero-length message frame")
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(c.conn, data); err != nil {
		return nil, fmt.Errorf("reading %d-octet frame: %w", length, err)
	}
	return data, nil
}

func (c *tcpConn) Close() error {
	return c.conn.Close()
}

// TCPServer is a bound TCP listener feeding queries to a Handler. Each
// accepted connection is served on its own goroutine and may carry multiple
// queries (RFC 7766 §6.2.1).
type TCPServer struct {
	addr        string
	codec       wire.MessageCodec
	logger      log.Logger
	idleTimeout time.Duration

	mu       sync.RWMutex
	listener net.Listener
	running  bool
	stopCh   chan struct{}
}

// NewTCPServer creates a TCP server transport bound to addr when started.
// idleTimeout bounds how long a quiet client connection is held open.
func NewTCPServer(addr string, codec wire.MessageCodec, idleTimeout time.Duration, logger log.Logger) *TCPServer {
	if idleTimeout <= 0 {
		idleTimeout = 10 * time.Second
	}
	return &TCPServer{
		addr:        addr,
		codec:       codec,
		logger:      logger,
		idleTimeout: idleTimeout,
		stopCh:      make(chan struct{}),
	}
}

var _ ServerTransport = &TCPServer{}

// Start binds the listener and begins accepting connections.
func (s *TCPServer) Start(ctx context.Context, handler Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("TCP server already running")
	}
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("binding TCP listener on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.running = true

	s.logger.Info(map[string]any{
		"transport": "tcp",
		"address":   s.addr,
	}, "server transport started")

	go s.acceptLoop(ctx, handler)
	return nil
}

// Stop closes the listener and ends the accept loop.
func (s *TCPServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	close(s.stopCh)
	var closeErr error
	if s.listener != nil {
		closeErr = s.listener.Close()
	}
	s.running = false

	s.logger.Info(map[string]any{
		"transport": "tcp",
		"address":   s.addr,
	}, "server transport stopped")
	return closeErr
}

// Address returns the bound address.
func (s *TCPServer) Address() string {
	return s.addr
}

func (s *TCPServer) acceptLoop(ctx context.Context, handler Handler) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.RLock()
			running := s.running
			s.mu.RUnlock()
			if !running {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			default:
			}
			s.logger.Warn(map[string]any{
				"error": err.Error(),
			}, "failed to accept TCP connection")
			continue
		}
		go s.serveConn(ctx, conn, handler)
	}
}

// serveConn reads framed queries from one client connection until it goes
// quiet or closes.
func (s *TCPServer) serveConn(ctx context.Context, conn net.Conn, handler Handler) {
	defer func() { _ = conn.Close() }()
	stream := &tcpConn{conn: conn}

	for {
		idleCtx, cancel := context.WithTimeout(ctx, s.idleTimeout)
		data, err := stream.Receive(idleCtx)
		cancel()
		if err != nil {
			return
		}

		now := time.Now()
		query, err := s.codec.Decode(data, now)
		if err != nil {
			s.logger.Warn(map[string]any{
				"client": conn.RemoteAddr().String(),
				"error":  err.Error(),
			}, "failed to decode query")
			return
		}

		response := handler.Handle(ctx, query, conn.RemoteAddr())
		if response == nil {
			continue
		}
		// No size pressure on TCP beyond the frame limit.
		out, err := s.codec.Encode(response, maxMessageSize, now)
		if err != nil {
			s.logger.Error(map[string]any{
				"client": conn.RemoteAddr().String(),
				"id":     response.ID,
				"error":  err.Error(),
			}, "failed to encode response")
			return
		}
		if err := stream.Send(ctx, out); err != nil {
			s.logger.Error(map[string]any{
				"client": conn.RemoteAddr().String(),
				"id":     response.ID,
				"error":  err.Error(),
			}, "failed to send response")
			return
		}
	}
}
