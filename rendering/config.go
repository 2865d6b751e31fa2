package rendering

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/common"
	"golang.org/x/exp/slog"
)

// RecordMode decides when a frame's command buffer is recorded.
type RecordMode int

const (
	// RecordEveryFrame records every frame from scratch into one-time
	// submit buffers.
	RecordEveryFrame RecordMode = iota
	// RecordOnChange reuses a frame slot's buffer when it would be
	// recorded with the same image, render states and payloads again.
	RecordOnChange
)

var recordModeNames = map[RecordMode]string{
	RecordEveryFrame: "every-frame",
	RecordOnChange:   "on-change",
}

func (m RecordMode) String() string {
	name, ok := recordModeNames[m]
	if !ok {
		return "unknown"
	}
	return name
}

func ParseRecordMode(s string) (RecordMode, error) {
	for mode, name := range recordModeNames {
		if strings.EqualFold(s, name) {
			return mode, nil
		}
	}
	return 0, errors.Newf("unknown record mode %q", s)
}

// Config is everything the renderer is built from.
type Config struct {
	ApplicationName    string
	ApplicationVersion common.Version

	// Debug turns on the validation layer.
	Debug bool
	Vsync bool

	RecordMode RecordMode
	ClearColor mgl32.Vec4

	// StatsInterval is how many frames pass between two frame time
	// reports. Zero disables reporting.
	StatsInterval int

	Logger *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		ApplicationName:    "Magmacraft",
		ApplicationVersion: common.CreateVersion(0, 1, 0),
		RecordMode:         RecordEveryFrame,
		ClearColor:         mgl32.Vec4{0, 0, 0, 1},
	}
}

func (c Config) Validate() error {
	if c.ApplicationName == "" {
		return errors.New("config: application name is required")
	}
	if _, ok := recordModeNames[c.RecordMode]; !ok {
		return errors.Newf("config: unknown record mode %d", c.RecordMode)
	}
	if c.StatsInterval < 0 {
		return errors.Newf("config: stats interval %d is negative", c.StatsInterval)
	}
	for i, component := range c.ClearColor {
		if component < 0 || component > 1 {
			return errors.Newf("config: clear color component %d is %f, outside [0, 1]", i, component)
		}
	}
	return nil
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
