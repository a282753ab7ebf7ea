package transport

import (
	"errors"
	"fmt"
	"net"

	"github.com/puzpuzpuz/xsync/v3"
)

var (
	// ErrMemPortExists is returned by ListenMem when the name is already taken.
	ErrMemPortExists = errors.New("transport: memory port already exists")
	// ErrMemPortNotFound is returned by DialMem when no port listens on the name.
	ErrMemPortNotFound = errors.New("transport: memory port not found")
)

// memPorts holds the dial side of every listening memory port.
var memPorts = xsync.NewMapOf[string, *MemPort]()

// MemPort is one end of a synchronous in-memory port pair.
//
// Writes block until the other end reads, like net.Pipe.
type MemPort struct {
	net.Conn
	name string
}

var _ Port = (*MemPort)(nil)

// Name returns the registry name.
func (p *MemPort) Name() string { return p.name }

// ListenMem creates a port pair registered under name and returns the
// listening end. The other end is handed out once by DialMem.
func ListenMem(name string) (*MemPort, error) {
	local, remote := net.Pipe()
	peer := &MemPort{Conn: remote, name: name}

	if _, loaded := memPorts.LoadOrStore(name, peer); loaded {
		_ = local.Close()
		_ = remote.Close()

		return nil, fmt.Errorf("%w: %q", ErrMemPortExists, name)
	}

	return &MemPort{Conn: local, name: name}, nil
}

// DialMem connects to the port listening on name. The name is free again
// once dialed.
func DialMem(name string) (*MemPort, error) {
	peer, ok := memPorts.LoadAndDelete(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMemPortNotFound, name)
	}

	return peer, nil
}

// MemPortCount returns the number of memory ports waiting to be dialed.
func MemPortCount() int {
	return memPorts.Size()
}
