package model

import (
	"context"
	"net"
)

// SecurityLayer opens listeners, with or without TLS.
type SecurityLayer interface {
	Listen(protocol, addr string) (net.Listener, error)
}

// Server is a network server with a managed lifecycle.
type Server interface {
	Start(securityLayer SecurityLayer) error
	Stop(ctx context.Context) error
	Address() string
}

// Pinger checks that a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
