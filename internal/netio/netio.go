// Package netio owns the UDP transport pair the onboard software speaks
// over: a connected TX socket toward ground control and a bound RX socket
// for inbound command uplinks, per spec §5.
package netio

import (
	"context"
	"fmt"
	"net"
	"time"
)

// readPollInterval bounds each blocking read in ReadLoop so cancellation is
// observed even when no datagrams arrive.
const readPollInterval = 500 * time.Millisecond

// Sockets bundles the TX (connected to ground control) and RX (bound for
// inbound commands) UDP sockets.
type Sockets struct {
	TX *net.UDPConn
	RX *net.UDPConn
}

// Dial opens the TX socket on an ephemeral local port connected to gcsAddr,
// and the RX socket bound to bindAddr.
func Dial(gcsAddr, bindAddr string) (*Sockets, error) {
	gcs, err := net.ResolveUDPAddr("udp", gcsAddr)
	if err != nil {
		return nil, fmt.Errorf("netio: resolve gcs_addr: %w", err)
	}
	tx, err := net.DialUDP("udp", nil, gcs)
	if err != nil {
		return nil, fmt.Errorf("netio: dial tx socket: %w", err)
	}

	bind, err := net.ResolveUDPAddr("udp", bindAddr)
	if err != nil {
		tx.Close()
		return nil, fmt.Errorf("netio: resolve bind_addr: %w", err)
	}
	rx, err := net.ListenUDP("udp", bind)
	if err != nil {
		tx.Close()
		return nil, fmt.Errorf("netio: listen rx socket: %w", err)
	}

	return &Sockets{TX: tx, RX: rx}, nil
}

// Close closes both sockets.
func (s *Sockets) Close() error {
	txErr := s.TX.Close()
	rxErr := s.RX.Close()
	if txErr != nil {
		return txErr
	}
	return rxErr
}

// Send writes a fully-framed byte slice on the TX socket.
func (s *Sockets) Send(b []byte) error {
	_, err := s.TX.Write(b)
	return err
}

// ReadLoop reads datagrams off RX until ctx is cancelled, invoking handle
// for each. A read deadline keeps the loop responsive to cancellation.
func (s *Sockets) ReadLoop(ctx context.Context, handle func([]byte)) {
	buf := make([]byte, 65536)
	for {
		if ctx.Err() != nil {
			return
		}
		_ = s.RX.SetReadDeadline(time.Now().Add(readPollInterval))
		n, _, err := s.RX.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		pkt := make([]byte, n)
		copy(pkt, buf[:n])
		handle(pkt)
	}
}
