// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package ctlsock is the RPC transport between the whitelist CLI and the
// running daemon: a net/rpc server over a unix socket, the same shape
// internal/ctlplane's Server/Client pair uses, trimmed to the two
// whitelist operations (add, del) instead of the teacher's
// whole-config/zone/backup surface.
package ctlsock

import (
	"net"
	"net/rpc"
	"os"

	"flowgate.dev/flowgate/internal/classify"
	"flowgate.dev/flowgate/internal/errors"
	"flowgate.dev/flowgate/internal/logging"
)

// DefaultSocketPath is where Server listens and Client dials by default,
// mirroring internal/ctlplane.SocketPath's role as the one well-known
// rendezvous point between CLI and daemon.
const DefaultSocketPath = "/run/flowgate/ctl.sock"

// WhitelistArgs is the net/rpc argument type for Server.WhitelistAdd and
// Server.WhitelistDel.
type WhitelistArgs struct {
	Addr string
}

// WhitelistReply is intentionally empty: success is "no error", matching
// the CLI's add/del contract (original_source/scripts/wl.c exits 0 on
// success and prints an error otherwise).
type WhitelistReply struct{}

// Server exposes classify.Tables' whitelist mutators over net/rpc. It
// registers itself under the name "Server" so a Client's method names
// read as "Server.WhitelistAdd", matching internal/ctlplane's convention.
type Server struct {
	tables   *classify.Tables
	logger   *logging.Logger
	listener net.Listener
}

// NewServer constructs a Server bound to tables. Call Serve to start
// accepting connections.
func NewServer(tables *classify.Tables, logger *logging.Logger) *Server {
	return &Server{tables: tables, logger: logger}
}

// Serve listens on socketPath and serves RPC requests until the listener
// is closed. A stale socket file from a prior crashed run is removed
// first, the same pre-bind cleanup internal/ctlplane.Server's Start does.
func (s *Server) Serve(socketPath string) error {
	_ = os.Remove(socketPath)

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return errors.Wrapf(err, errors.KindUnavailable, "listen on %s", socketPath)
	}
	s.listener = ln

	if err := rpc.Register(s); err != nil {
		ln.Close()
		return errors.Wrap(err, errors.KindInternal, "register control-socket RPC server")
	}

	s.logger.Info("control socket listening", "path", socketPath)
	rpc.Accept(ln)
	return nil
}

// Close stops accepting new control-socket connections.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// WhitelistAdd is the RPC-exported whitelist add operation.
func (s *Server) WhitelistAdd(args *WhitelistArgs, reply *WhitelistReply) error {
	return addWhitelist(s.tables, args.Addr)
}

// WhitelistDel is the RPC-exported whitelist delete operation.
func (s *Server) WhitelistDel(args *WhitelistArgs, reply *WhitelistReply) error {
	return delWhitelist(s.tables, args.Addr)
}

// Client dials a running Server and exposes the same two operations as
// plain Go method calls, hiding net/rpc from cmd/flowgate-wl entirely.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to a Server listening on socketPath.
func Dial(socketPath string) (*Client, error) {
	c, err := rpc.Dial("unix", socketPath)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindUnavailable, "connect to control socket %s", socketPath)
	}
	return &Client{rpc: c}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error { return c.rpc.Close() }

// WhitelistAdd adds addr to the running daemon's whitelist table.
func (c *Client) WhitelistAdd(addr string) error {
	return c.rpc.Call("Server.WhitelistAdd", &WhitelistArgs{Addr: addr}, &WhitelistReply{})
}

// WhitelistDel removes addr from the running daemon's whitelist table.
func (c *Client) WhitelistDel(addr string) error {
	return c.rpc.Call("Server.WhitelistDel", &WhitelistArgs{Addr: addr}, &WhitelistReply{})
}

// addWhitelist and delWhitelist resolve addr's family the same way
// internal/controlplane.addAddr does and dispatch to the matching
// classify.Tables mutator; kept here (not imported from controlplane) so
// ctlsock doesn't need to depend on the HCL config loader.
func addWhitelist(t *classify.Tables, addr string) error {
	return dispatchAddr(t.WhitelistAddV4, t.WhitelistAddV6, addr)
}

func delWhitelist(t *classify.Tables, addr string) error {
	return dispatchAddr(t.WhitelistDelV4, t.WhitelistDelV6, addr)
}

func dispatchAddr(v4 func(uint32), v6 func([16]byte), addr string) error {
	ip := net.ParseIP(addr)
	if ip == nil {
		return errors.Errorf(errors.KindValidation, "invalid IP address %q", addr)
	}
	if b4 := ip.To4(); b4 != nil {
		v4(uint32(b4[0])<<24 | uint32(b4[1])<<16 | uint32(b4[2])<<8 | uint32(b4[3]))
		return nil
	}
	var b [16]byte
	copy(b[:], ip.To16())
	v6(b)
	return nil
}
