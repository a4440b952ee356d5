package smtpclient

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadResponse_SingleLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("250 OK\r\n"))
	resp, err := readResponse(r)
	require.NoError(t, err)
	assert.Equal(t, 250, resp.Code)
	assert.Equal(t, []string{"OK"}, resp.Lines)
	assert.False(t, resp.IsError())
}

func TestReadResponse_MultiLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("250-PIPELINING\r\n250-SIZE 10240000\r\n250 STARTTLS\r\n"))
	resp, err := readResponse(r)
	require.NoError(t, err)
	assert.Equal(t, 250, resp.Code)
	assert.Equal(t, []string{"PIPELINING", "SIZE 10240000", "STARTTLS"}, resp.Lines)
}

func TestReadResponse_ErrorCode(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("550 Mailbox unavailable\r\n"))
	resp, err := readResponse(r)
	require.NoError(t, err)
	assert.True(t, resp.IsError())
}

func TestReadResponse_Malformed(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("bad\r\n"))
	_, err := readResponse(r)
	assert.Error(t, err)
}
