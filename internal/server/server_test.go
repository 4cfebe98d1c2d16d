package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/zeusengine/internal/core/ecs"
	"github.com/zeusync/zeusengine/internal/core/events"
	"github.com/zeusync/zeusengine/internal/core/events/bus"
	"github.com/zeusync/zeusengine/internal/core/state"
	"github.com/zeusync/zeusengine/internal/core/systems"
)

type marker struct{}

var markerFamily = ecs.FamilyFor[marker]()

func newTestServer(t *testing.T, states StateSource) (*Server, bus.EventBus, *httptest.Server) {
	t.Helper()
	b := bus.New()
	srv := NewServer(DefaultServerConfig(), states, b, nil)
	require.NoError(t, srv.Attach())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, b, ts
}

func TestEventsAreStreamed(t *testing.T) {
	srv, b, ts := newTestServer(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/events", nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	require.Eventually(t, func() bool { return srv.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, events.Publish(b, events.StateLoaded, "director", events.StateChange{StateID: "s1", Name: "demo"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type   string         `json:"type"`
		Source string         `json:"source"`
		Data   map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, events.StateLoaded, msg.Type)
	assert.Equal(t, "director", msg.Source)
	assert.NotEmpty(t, msg.Data)

	_ = conn.Close()
	assert.Eventually(t, func() bool { return srv.Clients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestStateView(t *testing.T) {
	d := state.NewDirector(nil)
	defer func() { _ = d.Shutdown(context.Background()) }()
	_, _, ts := newTestServer(t, d)

	resp, err := http.Get(ts.URL + "/state")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var ticks atomic.Int64
	st, err := d.LoadState(context.Background(), state.Descriptor{
		Name: "demo",
		Systems: []systems.System{&systems.Funcs{
			SystemName: "count",
			Fam:        markerFamily,
			Every:      time.Millisecond,
			After: func(*systems.Tick) error {
				ticks.Add(1)
				return nil
			},
		}},
	})
	require.NoError(t, err)
	e := st.CreateEntity()
	e.Add(&marker{})
	require.Eventually(t, func() bool { return ticks.Load() > 0 }, time.Second, time.Millisecond)

	resp, err = http.Get(ts.URL + "/state")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view StateView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, st.ID(), view.ID)
	assert.Equal(t, "demo", view.Name)
	assert.Equal(t, 1, view.Entities)
	assert.Equal(t, 1, view.Families[markerFamily.Name()])
	require.Len(t, view.Systems, 1)
	assert.Equal(t, "count", view.Systems[0].Name)
	assert.Equal(t, "running", view.Systems[0].State)
}

func TestStartStop(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	srv := NewServer(cfg, nil, bus.New(), nil)

	require.NoError(t, srv.Start(context.Background()))
	assert.ErrorIs(t, srv.Start(context.Background()), ErrServerAlreadyRunning)
	require.NoError(t, srv.Stop(context.Background()))
	assert.ErrorIs(t, srv.Stop(context.Background()), ErrServerNotRunning)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultServerConfig().Validate())

	cfg := DefaultServerConfig()
	cfg.ListenAddr = ""
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultServerConfig()
	cfg.ClientBuffer = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestBusView(t *testing.T) {
	_, b, ts := newTestServer(t, nil)
	require.NoError(t, events.Publish(b, events.StoreReaped, "state", events.Reaped{Removed: 2}))

	resp, err := http.Get(ts.URL + "/bus")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var view BusView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.EqualValues(t, 1, view.Published)
	assert.EqualValues(t, 1, view.SubscribersActive)
	assert.Zero(t, view.Clients)
}
