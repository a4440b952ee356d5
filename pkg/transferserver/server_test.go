package transferserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliobooks/folio/pkg/conversioncache"
	"github.com/foliobooks/folio/pkg/converter"
)

func TestServer_StartBindsAndPublishesURL(t *testing.T) {
	provider := newFakeProvider()
	conv := converter.New(func() string { return "job" })
	cache := conversioncache.New(t.TempDir())

	s, err := New(provider, conv, cache, nil, Config{PortRangeStart: 18080, PortRangeEnd: 18090})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Start(ctx))
	defer s.Shutdown(context.Background())

	assert.True(t, s.Port() >= 18080 && s.Port() <= 18090)
	assert.Contains(t, s.URL(), "http://")
	assert.True(t, s.IsRunning())

	resp, err := http.Get(s.URL() + "/api/books")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ShutdownStopsServing(t *testing.T) {
	provider := newFakeProvider()
	conv := converter.New(func() string { return "job" })
	cache := conversioncache.New(t.TempDir())

	s, err := New(provider, conv, cache, nil, Config{PortRangeStart: 18091, PortRangeEnd: 18095})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Shutdown(ctx))

	assert.False(t, s.IsRunning())
}

func TestServer_StartReturnsPortUnavailableWhenRangeExhausted(t *testing.T) {
	const rangeStart, rangeEnd = 18200, 18202

	var listeners []net.Listener
	for port := rangeStart; port <= rangeEnd; port++ {
		ln, err := net.Listen("tcp4", fmt.Sprintf(":%d", port))
		require.NoError(t, err)
		listeners = append(listeners, ln)
	}
	defer func() {
		for _, ln := range listeners {
			ln.Close()
		}
	}()

	provider := newFakeProvider()
	conv := converter.New(func() string { return "job" })
	cache := conversioncache.New(t.TempDir())

	s, err := New(provider, conv, cache, nil, Config{PortRangeStart: rangeStart, PortRangeEnd: rangeEnd})
	require.NoError(t, err)

	err = s.Start(context.Background())
	require.Error(t, err)
	assert.IsType(t, &PortUnavailable{}, err)
	assert.False(t, s.IsRunning())
}

func TestPortUnavailable_Error(t *testing.T) {
	err := &PortUnavailable{RangeStart: 1, RangeEnd: 2}
	assert.Contains(t, err.Error(), "1-2")
}

func TestLanIPv4_NeverPanicsAndReturnsNonEmpty(t *testing.T) {
	assert.NotEmpty(t, lanIPv4())
}
