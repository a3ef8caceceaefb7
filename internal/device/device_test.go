package device

import (
	"errors"
	"testing"
)

func TestBytesPerInterval(t *testing.T) {
	cases := []struct {
		name   string
		format Format
		want   int
	}{
		{"default 16k mono", Format{SampleRate: 16000, BitsPerSample: 16, Channels: 1}, 320},
		{"8k mono", Format{SampleRate: 8000, BitsPerSample: 16, Channels: 1}, 160},
		{"48k stereo", Format{SampleRate: 48000, BitsPerSample: 16, Channels: 2}, 1920},
		{"8-bit", Format{SampleRate: 16000, BitsPerSample: 8, Channels: 1}, 160},
	}

	for _, c := range cases {
		if got := c.format.BytesPerInterval(); got != c.want {
			t.Errorf("%s: BytesPerInterval() = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestFormatValidate(t *testing.T) {
	if err := DefaultFormat().Validate(); err != nil {
		t.Errorf("default format should validate, got %v", err)
	}

	bad := []Format{
		{SampleRate: 0, BitsPerSample: 16, Channels: 1},
		{SampleRate: 16000, BitsPerSample: 0, Channels: 1},
		{SampleRate: 16000, BitsPerSample: 16, Channels: 0},
		{SampleRate: -16000, BitsPerSample: 16, Channels: 1},
		{SampleRate: 16000, BitsPerSample: 12, Channels: 1},
	}
	for _, f := range bad {
		err := f.Validate()
		if err == nil {
			t.Errorf("Validate(%+v) should fail", f)
			continue
		}
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("Validate(%+v) = %v, want ErrUnsupportedFormat", f, err)
		}
	}
}
