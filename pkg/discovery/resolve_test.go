package discovery

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listenEphemeral(t *testing.T) (net.Listener, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()
	return ln, ln.Addr().(*net.TCPAddr).Port
}

func TestResolve_PicksReachableCandidate(t *testing.T) {
	ln, port := listenEphemeral(t)
	defer ln.Close()

	peer := Peer{
		ServiceName:    "test-device",
		Port:           port,
		candidateHosts: []string{"127.0.0.2", "127.0.0.1"}, // 127.0.0.2 has nothing listening: fast refusal
	}

	resolved, err := Resolve(context.Background(), peer)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", resolved.Host)
}

func TestResolve_AllUnreachableFails(t *testing.T) {
	peer := Peer{
		ServiceName:    "test-device",
		Port:           1,
		candidateHosts: []string{"127.0.0.1"},
	}

	_, err := Resolve(context.Background(), peer)
	assert.IsType(t, &ResolutionFailed{}, err)
}

func TestResolve_FallsBackToHostWhenNoCandidates(t *testing.T) {
	ln, port := listenEphemeral(t)
	defer ln.Close()

	peer := Peer{ServiceName: "test-device", Host: "127.0.0.1", Port: port}

	resolved, err := Resolve(context.Background(), peer)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", resolved.Host)
}
