package wire

import (
	"encoding/base64"
	"encoding/json"

	"github.com/antonholmquist/jason"

	"github.com/petems/micbridge/internal/frame"
)

const mediaEvent = "media"

// Telephony serializes audio frames as telephony media-stream messages
// bound to one stream SID. Outbound audio becomes a media envelope; inbound
// media envelopes become audio-input frames; every other event is accepted
// syntactically and ignored.
type Telephony struct {
	streamSID string
}

func NewTelephony(streamSID string) *Telephony {
	return &Telephony{streamSID: streamSID}
}

type mediaEnvelope struct {
	Event     string       `json:"event"`
	StreamSID string       `json:"streamSid"`
	Media     mediaPayload `json:"media"`
}

type mediaPayload struct {
	Payload string `json:"payload"`
}

func (t *Telephony) Serialize(f frame.Frame) ([]byte, bool) {
	if f.Type != frame.TypeAudioOutput {
		return nil, false
	}
	data, err := json.Marshal(mediaEnvelope{
		Event:     mediaEvent,
		StreamSID: t.streamSID,
		Media:     mediaPayload{Payload: base64.StdEncoding.EncodeToString(f.Payload)},
	})
	if err != nil {
		return nil, false
	}
	return data, true
}

func (t *Telephony) Deserialize(raw []byte) (frame.Frame, bool) {
	obj, err := jason.NewObjectFromBytes(raw)
	if err != nil {
		return frame.Frame{}, false
	}
	event, err := obj.GetString("event")
	if err != nil || event != mediaEvent {
		return frame.Frame{}, false
	}
	payload, err := obj.GetString("media", "payload")
	if err != nil {
		return frame.Frame{}, false
	}
	pcm, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return frame.Frame{}, false
	}
	return frame.AudioInput(pcm), true
}
