package discovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTXT_OnlyWellKnownKeys(t *testing.T) {
	got := parseTXT([]string{"version=1.0.0", "platform=darwin", "books=42", "secretKey=should-be-dropped", "malformed"})
	assert.Equal(t, map[string]string{"version": "1.0.0", "platform": "darwin", "books": "42"}, got)
}

func TestParseTXT_Empty(t *testing.T) {
	got := parseTXT(nil)
	assert.Empty(t, got)
}

func TestTTLWithGrace_UsesDefaultWhenZero(t *testing.T) {
	got := ttlWithGrace(0)
	assert.Equal(t, 120*time.Second+staleSweepInterval, got)
}

func TestTTLWithGrace_AddsGraceWindow(t *testing.T) {
	got := ttlWithGrace(60)
	assert.Equal(t, 60*time.Second+staleSweepInterval, got)
}
