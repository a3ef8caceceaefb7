package device

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Host owns the PortAudio runtime and opens capture lines on one input
// device (the system default when deviceID is empty).
type Host struct {
	deviceID string
}

// NewHost initializes PortAudio. Close must be called to release it.
func NewHost(deviceID string) (*Host, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &Host{deviceID: deviceID}, nil
}

// Open validates the format against the selected device before any stream is
// created, so an unsupported format never allocates device resources.
func (h *Host) Open(format Format) (Line, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if format.BitsPerSample != 16 {
		return nil, fmt.Errorf("%w: this backend captures 16-bit PCM only, got %d bits", ErrUnsupportedFormat, format.BitsPerSample)
	}

	dev, err := h.inputDevice()
	if err != nil {
		return nil, err
	}
	if format.Channels > dev.MaxInputChannels {
		return nil, fmt.Errorf("%w: device %q supports at most %d input channel(s)", ErrUnsupportedFormat, dev.Name, dev.MaxInputChannels)
	}

	framesPerBuffer := format.SampleRate / 100
	samples := make([]int16, framesPerBuffer*format.Channels)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: format.Channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(format.SampleRate),
		FramesPerBuffer: framesPerBuffer,
	}

	if err := portaudio.IsFormatSupported(params, samples); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	stream, err := portaudio.OpenStream(params, samples)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}

	return &paLine{stream: stream, samples: samples}, nil
}

// ListDevices enumerates capture-capable devices.
func (h *Host) ListDevices() ([]Info, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	defaultDevice, _ := portaudio.DefaultInputDevice()

	result := make([]Info, 0, len(devices))
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			result = append(result, Info{
				ID:      d.Name,
				Name:    d.Name,
				Default: d == defaultDevice,
			})
		}
	}
	return result, nil
}

// Close terminates PortAudio. Any open lines must be closed first.
func (h *Host) Close() error {
	return portaudio.Terminate()
}

func (h *Host) inputDevice() (*portaudio.DeviceInfo, error) {
	if h.deviceID == "" {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("failed to get default input device: %w", err)
		}
		return dev, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, d := range devices {
		if d.Name == h.deviceID && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("input device not found: %s", h.deviceID)
}

type paLine struct {
	stream  *portaudio.Stream
	samples []int16
}

func (l *paLine) Start() error {
	if err := l.stream.Start(); err != nil {
		return fmt.Errorf("failed to start audio stream: %w", err)
	}
	return nil
}

// Read blocks for one buffer interval and copies the device's samples into
// buf as little-endian bytes. An input overflow discards data upstream but
// is not a line failure, so it reports an empty cycle.
func (l *paLine) Read(buf []byte) (int, error) {
	if err := l.stream.Read(); err != nil {
		if errors.Is(err, portaudio.InputOverflowed) {
			return 0, nil
		}
		return 0, fmt.Errorf("device read: %w", err)
	}

	n := 0
	for _, s := range l.samples {
		if n+2 > len(buf) {
			break
		}
		binary.LittleEndian.PutUint16(buf[n:], uint16(s))
		n += 2
	}
	return n, nil
}

func (l *paLine) Stop() error {
	return l.stream.Stop()
}

func (l *paLine) Close() error {
	return l.stream.Close()
}
