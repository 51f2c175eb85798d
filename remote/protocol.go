/*
Package remote exposes a playback runtime to an embedding page or a remote
controller.

Clients send commands (play, pause, seekToStep, setSpeed) and receive events
(ready, state, ended) as JSON text messages:

	→ {"type":"seekToStep","payload":{"step":2}}
	← {"type":"state","step":2,"playing":false,"speed":1}

Events are derived from runtime transitions and are produced synchronously
with the transition which caused them.
*/
package remote

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/tourpath/playback"
)

// tracer writes to trace with key 'remote'
func tracer() tracing.Trace {
	return tracing.Select("remote")
}

var (
	// ErrUnknownCommand indicates a command type not part of the protocol.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrBadPayload indicates a command with a missing or malformed payload.
	ErrBadPayload = errors.New("malformed command payload")
	// ErrNotReady indicates a command sent before a timing map is installed.
	ErrNotReady = errors.New("runtime not ready")
)

// Command types.
const (
	CmdPlay       = "play"
	CmdPause      = "pause"
	CmdSeekToStep = "seekToStep"
	CmdSetSpeed   = "setSpeed"
)

// Event types.
const (
	EvReady = "ready"
	EvState = "state"
	EvEnded = "ended"
)

// Command is a decoded client command.
type Command struct {
	Type  string
	Step  int     // seekToStep only
	Speed float64 // setSpeed only
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type stepPayload struct {
	Step *int `json:"step"`
}

type speedPayload struct {
	Speed *float64 `json:"speed"`
}

// DecodeCommand parses a command message.
func DecodeCommand(data []byte) (Command, error) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	cmd := Command{Type: msg.Type}
	switch msg.Type {
	case CmdPlay, CmdPause:
	case CmdSeekToStep:
		var p stepPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.Step == nil {
			return Command{}, fmt.Errorf("%w: %s needs a step", ErrBadPayload, msg.Type)
		}
		cmd.Step = *p.Step
	case CmdSetSpeed:
		var p speedPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.Speed == nil {
			return Command{}, fmt.Errorf("%w: %s needs a speed", ErrBadPayload, msg.Type)
		}
		cmd.Speed = *p.Speed
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, msg.Type)
	}
	return cmd, nil
}

// Message is an outbound event.
type Message struct {
	Type    string  `json:"type"`
	Step    int     `json:"step"`
	Playing bool    `json:"playing"`
	Speed   float64 `json:"speed"`
	Steps   int     `json:"steps,omitempty"` // number of steps, ready only
}

// Encode serializes a message.
func (m Message) Encode() []byte {
	data, _ := json.Marshal(m) // plain struct of scalars
	return data
}

// MessageFromEvent converts a runtime event. steps is the number of
// segments of the runtime's timing map.
func MessageFromEvent(ev playback.Event, steps int) Message {
	msg := Message{
		Step:    max(ev.State.Segment, 0),
		Playing: ev.State.Playing,
		Speed:   ev.State.Speed,
	}
	switch ev.Kind {
	case playback.EventReady:
		msg.Type = EvReady
		msg.Steps = steps
	case playback.EventEnded:
		msg.Type = EvEnded
	default:
		msg.Type = EvState
	}
	return msg
}
