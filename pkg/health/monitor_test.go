package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ok(context.Context) error { return nil }

func failing(context.Context) error { return errors.New("connection refused") }

func TestMonitor_ReportStatus(t *testing.T) {
	tests := []struct {
		name     string
		database CheckFunc
		redis    CheckFunc
		want     Status
	}{
		{"all healthy", ok, ok, StatusHealthy},
		{"optional down", ok, failing, StatusDegraded},
		{"critical down", failing, ok, StatusUnhealthy},
		{"both down", failing, failing, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(time.Minute, zap.NewNop())
			m.Register("database", true, tt.database)
			m.Register("redis", false, tt.redis)

			report := m.Report(context.Background())
			assert.Equal(t, tt.want, report.Status)
			require.Len(t, report.Components, 2)
			assert.Equal(t, "database", report.Components[0].Name)
		})
	}
}

func TestMonitor_CountsFailures(t *testing.T) {
	var calls atomic.Int32
	m := NewMonitor(time.Minute, zap.NewNop())
	m.Register("rabbitmq", false, func(context.Context) error {
		if calls.Add(1)%2 == 0 {
			return errors.New("down")
		}
		return nil
	})

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		m.CheckAll(ctx)
	}

	result, ok := m.GetResult("rabbitmq")
	require.True(t, ok)
	assert.Equal(t, 4, result.CheckCount)
	assert.Equal(t, 2, result.FailureCount)
	assert.Equal(t, "down", result.LastError)

	_, ok = m.GetResult("missing")
	assert.False(t, ok)
}

func TestMonitor_StartStop(t *testing.T) {
	var calls atomic.Int32
	m := NewMonitor(10*time.Millisecond, zap.NewNop())
	m.Register("database", true, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	m.Start()
	m.Start()
	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	m.Stop()
	m.Stop()

	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
}

func TestStatus_MarshalText(t *testing.T) {
	text, err := StatusDegraded.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "DEGRADED", string(text))
}
