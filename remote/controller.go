package remote

import (
	"github.com/npillmayer/tourpath/playback"
)

// Controller applies remote commands to a runtime and reports the runtime's
// events as protocol messages. Like the runtime, a controller is owned by a
// single goroutine.
type Controller struct {
	rt     *playback.Runtime
	emit   func(Message)
	cancel func()
}

// NewController subscribes to rt. Every runtime event is passed to emit as
// a message, from inside the transition which caused it.
func NewController(rt *playback.Runtime, emit func(Message)) *Controller {
	c := &Controller{rt: rt, emit: emit}
	c.cancel = rt.Subscribe(func(ev playback.Event) {
		c.emit(MessageFromEvent(ev, c.steps()))
	})
	return c
}

func (c *Controller) steps() int {
	if m := c.rt.TimingMap(); m != nil {
		return len(m.Segments)
	}
	return 0
}

// Close unsubscribes from the runtime.
func (c *Controller) Close() {
	c.cancel()
}

// Snapshot returns a state message for the current runtime state.
func (c *Controller) Snapshot() Message {
	return MessageFromEvent(playback.Event{Kind: playback.EventState, State: c.rt.State()}, c.steps())
}

// Greeting returns the messages for a newly connected client: a ready
// message carrying the number of steps if a timing map is installed, then a
// state snapshot.
func (c *Controller) Greeting() []Message {
	snap := c.Snapshot()
	if c.rt.TimingMap() == nil {
		return []Message{snap}
	}
	ready := MessageFromEvent(playback.Event{Kind: playback.EventReady, State: c.rt.State()}, c.steps())
	return []Message{ready, snap}
}

// Apply executes a command. Commands other than setSpeed are rejected with
// ErrNotReady while no timing map is installed.
func (c *Controller) Apply(cmd Command) error {
	tracer().Debugf("command %s", cmd.Type)
	if cmd.Type == CmdSetSpeed {
		c.rt.SetSpeed(cmd.Speed)
		return nil
	}
	if c.rt.TimingMap() == nil {
		return ErrNotReady
	}
	switch cmd.Type {
	case CmdPlay:
		c.rt.Play()
	case CmdPause:
		c.rt.Pause()
	case CmdSeekToStep:
		c.rt.SeekToStep(cmd.Step)
	default:
		return ErrUnknownCommand
	}
	return nil
}
