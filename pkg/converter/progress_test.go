package converter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampPercent(t *testing.T) {
	assert.Equal(t, 0, clampPercent(-5))
	assert.Equal(t, 0, clampPercent(0))
	assert.Equal(t, 100, clampPercent(100))
	assert.Equal(t, 100, clampPercent(150))
	assert.Equal(t, 42, clampPercent(42))
}

func TestScanProgress_ParsesPercentAndOperation(t *testing.T) {
	input := "12% Converting input to HTML\n57% Parsing all content\nnot a progress line\n100% Done\n"

	var got []Progress
	scanProgress(strings.NewReader(input), "job-1", time.Now(), func(p Progress) {
		got = append(got, p)
	})

	require.Len(t, got, 3)
	assert.Equal(t, 12, got[0].Percent)
	assert.Equal(t, "Converting input to HTML", got[0].Operation)
	assert.Equal(t, 57, got[1].Percent)
	assert.Equal(t, 100, got[2].Percent)
	assert.Equal(t, "Done", got[2].Operation)
	for _, p := range got {
		assert.Equal(t, "job-1", p.JobID)
	}
}

func TestScanProgress_DefaultsOperationWhenBlank(t *testing.T) {
	var got []Progress
	scanProgress(strings.NewReader("33%\n"), "job-2", time.Now(), func(p Progress) {
		got = append(got, p)
	})

	require.Len(t, got, 1)
	assert.Equal(t, "Converting...", got[0].Operation)
}

func TestScanProgress_ClampsOutOfRangePercent(t *testing.T) {
	var got []Progress
	scanProgress(strings.NewReader("150% Too much\n"), "job-3", time.Now(), func(p Progress) {
		got = append(got, p)
	})

	require.Len(t, got, 1)
	assert.Equal(t, 100, got[0].Percent)
}
