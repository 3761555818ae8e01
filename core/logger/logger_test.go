package logger

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	coreconfig "github.com/m3rciful/walletbot/core/config"
)

func TestResolveSettings(t *testing.T) {
	tests := []struct {
		name   string
		lc     coreconfig.LoggingConfig
		level  slog.Level
		format logFormat
		ratio  [2]int
	}{
		{name: "defaults", lc: coreconfig.LoggingConfig{}, level: slog.LevelInfo, format: formatJSON, ratio: [2]int{1, 50}},
		{name: "debug profile reads as kv", lc: coreconfig.LoggingConfig{Profile: "Debug", Level: "debug"}, level: slog.LevelDebug, format: formatKV, ratio: [2]int{1, 50}},
		{name: "explicit format wins", lc: coreconfig.LoggingConfig{Profile: "dev", Format: "json", Level: "warning"}, level: slog.LevelWarn, format: formatJSON, ratio: [2]int{1, 50}},
		{name: "sampling disabled", lc: coreconfig.LoggingConfig{DebugSample: "0"}, level: slog.LevelInfo, format: formatJSON, ratio: [2]int{0, 0}},
		{name: "sampling ratio", lc: coreconfig.LoggingConfig{DebugSample: "3/10", Level: "error"}, level: slog.LevelError, format: formatJSON, ratio: [2]int{3, 10}},
		{name: "bad sampling keeps default", lc: coreconfig.LoggingConfig{DebugSample: "often"}, level: slog.LevelInfo, format: formatJSON, ratio: [2]int{1, 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := resolve(tt.lc)
			assert.Equal(t, tt.level, st.level)
			assert.Equal(t, tt.format, st.format)
			assert.Equal(t, tt.ratio, [2]int{st.num, st.den})
		})
	}
}

func TestSplitKeyOrder(t *testing.T) {
	assert.Equal(t, defaultKeyOrder, splitKeyOrder(""))
	assert.Equal(t, defaultKeyOrder, splitKeyOrder("default"))
	assert.Equal(t, []string{"ts", "event"}, splitKeyOrder(" ts, ,event "))
}
