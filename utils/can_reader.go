package utils

import (
	"context"
	"fmt"
	"net"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

// CANReader defines the interface for reading CAN frames
type CANReader interface {
	ReadFrame(ctx context.Context) (can.Frame, error)
	Close() error
}

// SocketCANReader implements CANReader using Einride's socketcan
type SocketCANReader struct {
	iface string
	conn  net.Conn
	recv  *socketcan.Receiver
}

// NewSocketCANReader creates a new SocketCAN reader
func NewSocketCANReader(ctx context.Context, iface string) (*SocketCANReader, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, fmt.Errorf("socketcan dial %s: %w", iface, err)
	}

	return &SocketCANReader{
		iface: iface,
		conn:  conn,
		recv:  socketcan.NewReceiver(conn),
	}, nil
}

// ReadFrame blocks until the next data frame arrives. Cancelling ctx closes
// the socket, so the reader is single use after that.
func (r *SocketCANReader) ReadFrame(ctx context.Context) (can.Frame, error) {
	stop := context.AfterFunc(ctx, func() { _ = r.conn.Close() })
	defer stop()

	for r.recv.Receive() {
		if r.recv.HasErrorFrame() {
			continue
		}
		return r.recv.Frame(), nil
	}
	if ctx.Err() != nil {
		return can.Frame{}, ctx.Err()
	}
	if err := r.recv.Err(); err != nil {
		return can.Frame{}, fmt.Errorf("receive on %s: %w", r.iface, err)
	}
	return can.Frame{}, fmt.Errorf("receive on %s: socket closed", r.iface)
}

// Close closes the CAN socket
func (r *SocketCANReader) Close() error {
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
