// Package device abstracts platform audio input devices behind an
// Opener/Line pair so the capture loop never touches a backend directly.
package device

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned by Open when the device cannot satisfy
// the requested format. No device resources are allocated in that case.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Format describes the PCM layout of a capture session. Immutable once a
// line has been opened with it.
type Format struct {
	SampleRate    int
	BitsPerSample int
	Channels      int
}

// DefaultFormat is 16 kHz mono 16-bit PCM.
func DefaultFormat() Format {
	return Format{SampleRate: 16000, BitsPerSample: 16, Channels: 1}
}

func (f Format) Validate() error {
	if f.SampleRate <= 0 || f.BitsPerSample <= 0 || f.Channels <= 0 {
		return fmt.Errorf("%w: %d Hz, %d bit, %d channel(s)", ErrUnsupportedFormat, f.SampleRate, f.BitsPerSample, f.Channels)
	}
	if f.BitsPerSample%8 != 0 {
		return fmt.Errorf("%w: %d bits per sample is not byte aligned", ErrUnsupportedFormat, f.BitsPerSample)
	}
	return nil
}

// BytesPerSample is the width of one sample across all channels.
func (f Format) BytesPerSample() int {
	return f.BitsPerSample / 8 * f.Channels
}

// BytesPerInterval is the byte count spanning a 10 ms read window, the fixed
// buffer size used by the capture loop. 16000 Hz / 16 bit / mono gives 320.
func (f Format) BytesPerInterval() int {
	return f.BytesPerSample() * (f.SampleRate / 100)
}

// Line is one open input stream. Read blocks for roughly one buffer interval
// and may return n <= 0 with a nil error when no data is available; that is
// not a failure. The owner must call Stop and Close exactly once.
type Line interface {
	Start() error
	Read(buf []byte) (int, error)
	Stop() error
	Close() error
}

// Opener validates a format and opens a capture line for it.
type Opener interface {
	Open(format Format) (Line, error)
}

// Info describes an available input device.
type Info struct {
	ID      string
	Name    string
	Default bool
}
