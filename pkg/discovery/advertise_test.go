package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRejectConnections_ClosesImmediately(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go rejectConnections(ln)

	conn, err := net.DialTimeout("tcp", ln.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	assert.Error(t, err) // connection closed by the server, read fails
}

func TestBuildTXTRecords_IncludesVersionAndPlatform(t *testing.T) {
	records := buildTXTRecords(map[string]string{"books": "3"})

	var hasVersion, hasPlatform, hasBooks bool
	for _, r := range records {
		switch {
		case len(r) >= 8 && r[:8] == "version=":
			hasVersion = true
		case len(r) >= 9 && r[:9] == "platform=":
			hasPlatform = true
		case r == "books=3":
			hasBooks = true
		}
	}
	assert.True(t, hasVersion)
	assert.True(t, hasPlatform)
	assert.True(t, hasBooks)
}
