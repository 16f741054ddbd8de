package test

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/twopc-ecdsa/pkg/stream"
)

// Network returns the two ends of a connected stream.
type Network func(t testing.TB) (stream.Stream, stream.Stream)

// Pipe is a Network in memory.
func Pipe(testing.TB) (stream.Stream, stream.Stream) {
	return stream.Pipe()
}

// TCP is a Network over a loopback TCP connection.
func TCP(t testing.TB) (stream.Stream, stream.Stream) {
	return socketPair(t, "tcp", "127.0.0.1:0")
}

// Unix is a Network over a unix socket in a temporary directory.
func Unix(t testing.TB) (stream.Stream, stream.Stream) {
	return socketPair(t, "unix", filepath.Join(t.TempDir(), "twopc.sock"))
}

func socketPair(t testing.TB, network, address string) (stream.Stream, stream.Stream) {
	l, err := net.Listen(network, address)
	require.NoError(t, err)
	defer l.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		defer close(accepted)
		if c, err := l.Accept(); err == nil {
			accepted <- c
		}
	}()
	dialed, err := net.Dial(network, l.Addr().String())
	require.NoError(t, err)
	c, ok := <-accepted
	require.True(t, ok, "accept failed")
	t.Cleanup(func() {
		_ = dialed.Close()
		_ = c.Close()
		if network == "unix" {
			_ = os.Remove(address)
		}
	})
	return stream.NewConn(dialed), stream.NewConn(c)
}

// Networks lists every Network, by name.
func Networks() map[string]Network {
	return map[string]Network{
		"pipe": Pipe,
		"tcp":  TCP,
		"unix": Unix,
	}
}
