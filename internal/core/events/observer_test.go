package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeusync/zeusengine/internal/core/events/bus"
	"github.com/zeusync/zeusengine/internal/core/observability/log"
)

func TestLogObserverReportsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	b := bus.New()
	b.AddObserver(NewLogObserver(log.FromZap(zap.New(core), log.LevelDebug)))

	_, err := b.Subscribe(SystemStopped, func(bus.Event) error { return errors.New("handler down") })
	require.NoError(t, err)

	assert.Error(t, Publish(b, SystemStopped, "runner", SystemStatus{System: "move"}))
	require.NoError(t, Publish(b, StateLoaded, "director", StateChange{Name: "demo"}))

	warns := logs.FilterMessage("event handler failed").All()
	require.Len(t, warns, 1)
	assert.Equal(t, SystemStopped, warns[0].ContextMap()["event"])
	assert.Equal(t, 1, logs.FilterMessage("event delivered").Len())
	assert.NoError(t, Publish(nil, StateLoaded, "director", nil))
}
