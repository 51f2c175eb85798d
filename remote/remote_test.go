package remote

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/npillmayer/tourpath"
	"github.com/npillmayer/tourpath/playback"
	"github.com/npillmayer/tourpath/timing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// two segments of 0.5s each
func twoSteps() *timing.SegmentTimingMap {
	return timing.MustBuildTimingMap([]timing.Waypoint{
		{ID: "a", Pos: tourpath.P(0, 0), Major: true},
		{ID: "b", Pos: tourpath.P(100, 0), Major: true},
		{ID: "c", Pos: tourpath.P(100, 100), Major: true},
	}, timing.Config{Mode: timing.ConstantSpeed, BaseSpeed: 200}, nil)
}

func TestDecodeCommand(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	cmd, err := DecodeCommand([]byte(`{"type":"play"}`))
	require.NoError(t, err)
	assert.Equal(t, Command{Type: CmdPlay}, cmd)
	cmd, err = DecodeCommand([]byte(`{"type":"seekToStep","payload":{"step":3}}`))
	require.NoError(t, err)
	assert.Equal(t, 3, cmd.Step)
	cmd, err = DecodeCommand([]byte(`{"type":"setSpeed","payload":{"speed":2.5}}`))
	require.NoError(t, err)
	assert.Equal(t, 2.5, cmd.Speed)

	_, err = DecodeCommand([]byte(`{"type":"seekToStep"}`))
	assert.True(t, errors.Is(err, ErrBadPayload), "got %v", err)
	_, err = DecodeCommand([]byte(`{"type":"setSpeed","payload":{"speed":"fast"}}`))
	assert.True(t, errors.Is(err, ErrBadPayload), "got %v", err)
	_, err = DecodeCommand([]byte(`{"type":`))
	assert.True(t, errors.Is(err, ErrBadPayload), "got %v", err)
	_, err = DecodeCommand([]byte(`{"type":"rewind"}`))
	assert.True(t, errors.Is(err, ErrUnknownCommand), "got %v", err)
}

func TestMessageEncoding(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	msg := Message{Type: EvState, Step: 2, Speed: 1}
	assert.Equal(t, `{"type":"state","step":2,"playing":false,"speed":1}`, string(msg.Encode()))
	ready := MessageFromEvent(playback.Event{Kind: playback.EventReady,
		State: playback.State{Segment: -1, Speed: 1}}, 4)
	assert.Equal(t, Message{Type: EvReady, Step: 0, Speed: 1, Steps: 4}, ready)
}

func TestController(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	rt := playback.New(30)
	var msgs []Message
	c := NewController(rt, func(m Message) { msgs = append(msgs, m) })
	assert.True(t, errors.Is(c.Apply(Command{Type: CmdPlay}), ErrNotReady))
	require.NoError(t, c.Apply(Command{Type: CmdSetSpeed, Speed: 2}))
	assert.Empty(t, msgs)

	assert.Equal(t, []Message{{Type: EvState, Step: 0, Speed: 2}}, c.Greeting(), "no ready without a map")

	rt.SetTimingMap(twoSteps())
	require.Len(t, msgs, 1)
	assert.Equal(t, []Message{
		{Type: EvReady, Step: 0, Speed: 2, Steps: 2},
		{Type: EvState, Step: 0, Speed: 2},
	}, c.Greeting())
	assert.Equal(t, Message{Type: EvReady, Step: 0, Speed: 2, Steps: 2}, msgs[0])
	assert.True(t, errors.Is(c.Apply(Command{Type: "jump"}), ErrUnknownCommand))

	require.NoError(t, c.Apply(Command{Type: CmdSeekToStep, Step: 1}))
	require.Len(t, msgs, 2)
	assert.Equal(t, Message{Type: EvState, Step: 1, Speed: 2}, msgs[1], "synchronous with the seek")

	require.NoError(t, c.Apply(Command{Type: CmdPlay}))
	require.Len(t, msgs, 3)
	assert.True(t, msgs[2].Playing)
	for rt.State().Playing {
		rt.Step()
	}
	last := msgs[len(msgs)-1]
	assert.Equal(t, EvEnded, last.Type)
	assert.Equal(t, 1, last.Step)
	assert.False(t, last.Playing)
	assert.Equal(t, Message{Type: EvState, Step: 1, Playing: false, Speed: 2}, c.Snapshot())

	c.Close()
	n := len(msgs)
	rt.Play()
	assert.Len(t, msgs, n)
}

func TestServer(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	rt := playback.New(30)
	rt.SetTimingMap(twoSteps())
	s := NewServer(rt, 2*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()
	ts := httptest.NewServer(s)
	defer ts.Close()
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	read := func() Message {
		t.Helper()
		var m Message
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		require.NoError(t, conn.ReadJSON(&m))
		return m
	}
	send := func(s string) {
		t.Helper()
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(s)))
	}

	assert.Equal(t, Message{Type: EvReady, Step: 0, Speed: 1, Steps: 2}, read(), "ready first")
	assert.Equal(t, Message{Type: EvState, Step: 0, Speed: 1}, read(), "then a snapshot")
	send(`{"type":"seekToStep","payload":{"step":1}}`)
	assert.Equal(t, Message{Type: EvState, Step: 1, Speed: 1}, read())
	send(`{"type":"bogus"}`)
	send(`{"type":"setSpeed","payload":{"speed":20}}`)
	assert.Equal(t, Message{Type: EvState, Step: 1, Speed: playback.MaxSpeed}, read())
	send(`{"type":"play"}`)
	m := read()
	assert.True(t, m.Playing)
	for i := 0; i < 10 && m.Type != EvEnded; i++ {
		m = read()
	}
	assert.Equal(t, EvEnded, m.Type)

	cancel()
	assert.True(t, errors.Is(<-errc, context.Canceled))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "connection is closed when the server stops")
}
