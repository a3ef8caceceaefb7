// Package frame defines the values that flow through the capture pipeline:
// audio frames, the in-band capture error sentinel, and control signals.
package frame

// Type tags a frame for pipeline dispatch.
type Type string

const (
	TypeAudioInput   Type = "audio-input"
	TypeAudioOutput  Type = "audio-output"
	TypeCaptureError Type = "capture-error"

	TypeSystemStart Type = "system/start"
	TypeSystemStop  Type = "system/stop"
)

// Frame is a single unit of pipeline data: raw PCM for audio types, the
// error text for a capture-error sentinel, empty for control signals.
type Frame struct {
	Type    Type
	Payload []byte
}

// AudioInput wraps captured PCM heading into the pipeline.
func AudioInput(payload []byte) Frame {
	return Frame{Type: TypeAudioInput, Payload: payload}
}

// AudioOutput wraps PCM heading out toward the wire.
func AudioOutput(payload []byte) Frame {
	return Frame{Type: TypeAudioOutput, Payload: payload}
}

// CaptureError wraps a device failure as a frame so the consumer observes it
// in-band, after whatever audio was queued before the failure.
func CaptureError(err error) Frame {
	return Frame{Type: TypeCaptureError, Payload: []byte(err.Error())}
}

// Signal is the closed set of control signals the dispatcher acts on.
type Signal int

const (
	SignalStart Signal = iota
	SignalStop
	SignalOther
)

// SignalOf maps a frame type onto the control signal set. Any type the
// dispatcher does not recognize is SignalOther and routes to cleanup.
func SignalOf(t Type) Signal {
	switch t {
	case TypeSystemStart:
		return SignalStart
	case TypeSystemStop:
		return SignalStop
	default:
		return SignalOther
	}
}
