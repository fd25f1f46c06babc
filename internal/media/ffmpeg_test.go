package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrameRate(t *testing.T) {
	assert.InDelta(t, 29.97, parseFrameRate("30000/1001"), 0.001)
	assert.Equal(t, 25.0, parseFrameRate("25/1"))
	assert.Equal(t, 24.0, parseFrameRate("24"))
	assert.Equal(t, 0.0, parseFrameRate("0/0"))
	assert.Equal(t, 0.0, parseFrameRate(""))
	assert.Equal(t, 0.0, parseFrameRate("abc"))
}

func TestParseProbeOutput(t *testing.T) {
	info, err := parseProbeOutput([]byte(`{"streams":[{"width":1920,"height":1080,"r_frame_rate":"0/0","avg_frame_rate":"25/1"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 1920, info.width)
	assert.Equal(t, 1080, info.height)
	assert.Equal(t, 25.0, info.fps)

	_, err = parseProbeOutput([]byte(`{"streams":[]}`))
	assert.Error(t, err)

	_, err = parseProbeOutput([]byte(`not json`))
	assert.Error(t, err)
}
