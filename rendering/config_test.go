package rendering

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())
	require.Equal(t, RecordEveryFrame, config.RecordMode)
	require.Equal(t, mgl32.Vec4{0, 0, 0, 1}, config.ClearColor)
	require.NotNil(t, config.logger())
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(c *Config)
	}{
		{"NoApplicationName", func(c *Config) { c.ApplicationName = "" }},
		{"UnknownRecordMode", func(c *Config) { c.RecordMode = RecordMode(7) }},
		{"NegativeStatsInterval", func(c *Config) { c.StatsInterval = -1 }},
		{"ClearColorAboveOne", func(c *Config) { c.ClearColor = mgl32.Vec4{0, 1.5, 0, 1} }},
		{"ClearColorBelowZero", func(c *Config) { c.ClearColor = mgl32.Vec4{0, 0, -0.1, 1} }},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			config := DefaultConfig()
			testCase.modify(&config)
			require.Error(t, config.Validate())
		})
	}
}

func TestParseRecordMode(t *testing.T) {
	for _, mode := range []RecordMode{RecordEveryFrame, RecordOnChange} {
		parsed, err := ParseRecordMode(mode.String())
		require.NoError(t, err)
		require.Equal(t, mode, parsed)
	}

	parsed, err := ParseRecordMode("On-Change")
	require.NoError(t, err)
	require.Equal(t, RecordOnChange, parsed)

	_, err = ParseRecordMode("sometimes")
	require.Error(t, err)
	require.Equal(t, "unknown", RecordMode(7).String())
}
