package transport

import (
	"fmt"
	"time"

	"github.com/haukened/rec-dns/internal/dns/common/log"
	"github.com/haukened/rec-dns/internal/dns/gateways/wire"
)

// NewClientTransport creates a client transport of the given kind. bufSize
// only applies to UDP; pass the EDNS payload size queries will advertise.
func NewClientTransport(kind Kind, dialer Dialer, bufSize int, logger log.Logger) (ClientTransport, error) {
	switch kind {
	case KindUDP:
		return NewUDPTransport(dialer, bufSize, logger), nil
	case KindTCP:
		return NewTCPTransport(dialer, logger), nil
	default:
		return nil, fmt.Errorf("unsupported transport kind: %s", kind)
	}
}

// NewServerTransport creates a server transport of the given kind bound to
// addr when started.
func NewServerTransport(kind Kind, addr string, codec wire.MessageCodec, logger log.Logger) (ServerTransport, error) {
	switch kind {
	case KindUDP:
		return NewUDPServer(addr, codec, logger), nil
	case KindTCP:
		return NewTCPServer(addr, codec, 10*time.Second, logger), nil
	default:
		return nil, fmt.Errorf("unsupported transport kind: %s", kind)
	}
}

// SupportedKinds lists the transport kinds this build can create.
func SupportedKinds() []Kind {
	return []Kind{KindUDP, KindTCP}
}
