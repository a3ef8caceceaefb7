// Package wire translates pipeline frames to and from external media
// envelopes. Each transport profile implements Serializer; the envelope
// shape is profile-specific.
package wire

import "github.com/petems/micbridge/internal/frame"

// Serializer is a stateless bidirectional adapter bound to one external
// session. Implementations must be safe for concurrent use.
type Serializer interface {
	// Serialize returns the wire form of f. ok is false when this profile
	// does not carry frames of f's type; that is not an error.
	Serialize(f frame.Frame) ([]byte, bool)

	// Deserialize parses a raw inbound message into a pipeline frame. ok is
	// false when the message is malformed or carries an event this profile
	// ignores; callers drop such messages silently.
	Deserialize(raw []byte) (frame.Frame, bool)
}
