package rendering

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func TestFrameStats(t *testing.T) {
	var stats FrameStats
	require.Zero(t, stats.Mean())

	stats.Observe(4 * time.Millisecond)
	stats.Observe(2 * time.Millisecond)
	stats.Observe(6 * time.Millisecond)

	require.Equal(t, 3, stats.Frames())
	require.Equal(t, 4*time.Millisecond, stats.Mean())
	require.Equal(t, 2*time.Millisecond, stats.Min())
	require.Equal(t, 6*time.Millisecond, stats.Max())
	require.Equal(t, 6*time.Millisecond, stats.Last())

	stats.Reset()
	require.Zero(t, stats.Frames())
	require.Zero(t, stats.Max())
}

func TestRendererReportsStats(t *testing.T) {
	var out bytes.Buffer
	config := DefaultConfig()
	config.StatsInterval = 2
	config.Logger = slog.New(slog.NewTextHandler(&out, nil))

	backend := &fakeBackend{images: 3}
	renderer := &Renderer{config: config, logger: config.logger()}
	renderer.scheduler.backend = backend

	require.NoError(t, renderer.Render())
	require.Equal(t, 1, renderer.Stats().Frames())
	require.Equal(t, 1, renderer.CurrentFrame())

	require.NoError(t, renderer.Render())
	require.Zero(t, renderer.Stats().Frames())
	require.Equal(t, 0, renderer.CurrentFrame())
	require.Contains(t, out.String(), "frame times")
	require.Contains(t, out.String(), "stats.frames=2")
}

func TestRendererRenderFailure(t *testing.T) {
	backend := &fakeBackend{images: 3, failAt: "submit"}
	renderer := &Renderer{config: DefaultConfig(), logger: slog.Default()}
	renderer.scheduler.backend = backend

	require.Error(t, renderer.Render())
	require.Zero(t, renderer.Stats().Frames())
	require.Equal(t, 0, renderer.CurrentFrame())
}

func TestRendererClosed(t *testing.T) {
	renderer := &Renderer{closed: true}
	require.Error(t, renderer.Render())
	renderer.Close()
}
