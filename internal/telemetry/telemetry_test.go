package telemetry

import (
	"testing"
	"time"

	"battery-arbitrage/internal/lp"
	"battery-arbitrage/internal/optimizer"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	for _, tt := range []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	} {
		logger, err := NewLogger(tt.level, "console")
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(tt.want), tt.level)
		if tt.want > zapcore.DebugLevel {
			assert.False(t, logger.Core().Enabled(tt.want-1), tt.level)
		}
	}
}

func TestObserveRun(t *testing.T) {
	counter := RunsTotal.WithLabelValues(string(optimizer.StateExtracted), string(lp.StatusOptimal))
	before := testutil.ToFloat64(counter)

	ObserveRun(&optimizer.Run{State: optimizer.StateExtracted, Status: lp.StatusOptimal, SolveDuration: time.Millisecond, Periods: 48})
	ObserveRun(nil)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
