package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/haukened/rec-dns/internal/dns/common/log"
	"github.com/haukened/rec-dns/internal/dns/gateways/wire"
)

// UDPTransport dials servers for one-shot datagram exchanges.
type UDPTransport struct {
	dialer  Dialer
	bufSize int
	logger  log.Logger
}

// NewUDPTransport creates a client UDP transport. bufSize caps the largest
// datagram a Receive will accept; it should be at least the EDNS payload
// size advertised in queries. A nil dialer uses the default.
func NewUDPTransport(dialer Dialer, bufSize int, logger log.Logger) *UDPTransport {
	if dialer == nil {
		dialer = defaultDialer(5*time.Second, 0)
	}
	if bufSize <= 0 || bufSize > maxMessageSize {
		bufSize = maxMessageSize
	}
	return &UDPTransport{dialer: dialer, bufSize: bufSize, logger: logger}
}

// Dial opens a connected UDP socket to addr.
func (t *UDPTransport) Dial(ctx context.Context, addr string) (Conn, error) {
	conn, err := t.dialer.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing udp %s: %w", addr, err)
	}
	return &udpConn{conn: conn, bufSize: t.bufSize}, nil
}

var _ ClientTransport = &UDPTransport{}

type udpConn struct {
	conn    net.Conn
	bufSize int
}

func (c *udpConn) Send(ctx context.Context, data []byte) error {
	if len(data) > maxMessageSize {
		return fmt.Errorf("message of %d octets exceeds transport limit", len(data))
	}
	if err := deadlineFrom(ctx, c.conn); err != nil {
		return err
	}
	_, err := c.conn.Write(data)
	return err
}

// Receive returns the next datagram. Datagrams larger than the buffer are
// silently cut off by the kernel, so the buffer must cover the advertised
// payload size.
func (c *udpConn) Receive(ctx context.Context) ([]byte, error) {
	if err := deadlineFrom(ctx, c.conn); err != nil {
		return nil, err
	}
	buf := make([]byte, c.bufSize)
	n, err := c.conn.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func (c *udpConn) Close() error {
	return c.conn.Close()
}

// UDPServer is a bound UDP listener feeding queries to a Handler.
type UDPServer struct {
	addr   string
	codec  wire.MessageCodec
	logger log.Logger

	mu      sync.RWMutex
	conn    *net.UDPConn
	running bool
	stopCh  chan struct{}
}

// NewUDPServer creates a UDP server transport bound to addr when started.
func NewUDPServer(addr string, codec wire.MessageCodec, logger log.Logger) *UDPServer {
	return &UDPServer{
		addr:   addr,
		codec:  codec,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

var _ ServerTransport = &UDPServer{}

// Start binds the UDP socket and begins the receive loop.
func (s *UDPServer) Start(ctx context.Context, handler Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("UDP server already running")
	}
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return fmt.Errorf("resolving UDP address %s: %w", s.addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("binding UDP socket on %s: %w", s.addr, err)
	}
	s.conn = conn
	s.running = true

	s.logger.Info(map[string]any{
		"transport": "udp",
		"address":   s.addr,
	}, "server transport started")

	go s.receiveLoop(ctx, handler)
	return nil
}

// Stop closes the socket and ends the receive loop.
func (s *UDPServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	close(s.stopCh)
	var closeErr error
	if s.conn != nil {
		closeErr = s.conn.Close()
	}
	s.running = false

	s.logger.Info(map[string]any{
		"transport": "udp",
		"address":   s.addr,
	}, "server transport stopped")
	return closeErr
}

// Address returns the bound address.
func (s *UDPServer) Address() string {
	return s.addr
}

func (s *UDPServer) receiveLoop(ctx context.Context, handler Handler) {
	buffer := make([]byte, maxMessageSize)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
			n, clientAddr, err := s.conn.ReadFromUDP(buffer)
			if err != nil {
				s.mu.RLock()
				running := s.running
				s.mu.RUnlock()
				if !running {
					return
				}
				s.logger.Warn(map[string]any{
					"error": err.Error(),
				}, "failed to read UDP packet")
				continue
			}
			packet := make([]byte, n)
			copy(packet, buffer[:n])
			go s.handlePacket(ctx, packet, clientAddr, handler)
		}
	}
}

func (s *UDPServer) handlePacket(ctx context.Context, data []byte, clientAddr *net.UDPAddr, handler Handler) {
	now := time.Now()
	query, err := s.codec.Decode(data, now)
	if err != nil {
		s.logger.Warn(map[string]any{
			"client": clientAddr.String(),
			"error":  err.Error(),
			"size":   len(data),
		}, "failed to decode query")
		return
	}

	response := handler.Handle(ctx, query, clientAddr)
	if response == nil {
		return
	}

	// Responses over UDP honor the client's advertised payload size.
	maxSize := wire.MinUDPSize
	if query.EDNS != nil {
		maxSize = int(query.EDNS.UDPSize)
	}
	out, err := s.codec.Encode(response, maxSize, now)
	if err != nil {
		s.logger.Error(map[string]any{
			"client": clientAddr.String(),
			"id":     response.ID,
			"error":  err.Error(),
		}, "failed to encode response")
		return
	}
	if _, err := s.conn.WriteToUDP(out, clientAddr); err != nil {
		s.logger.Error(map[string]any{
			"client": clientAddr.String(),
			"id":     response.ID,
			"error":  err.Error(),
		}, "failed to send response")
	}
}
