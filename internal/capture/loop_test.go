package capture

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petems/micbridge/internal/device"
	"github.com/petems/micbridge/internal/frame"
)

// fakeLine plays back scripted read results and counts lifecycle calls.
type fakeLine struct {
	mu      sync.Mutex
	reads   [][]byte // next payloads; a nil entry is an empty cycle
	readErr error    // returned once the script is exhausted, if set
	bufLens []int

	starts atomic.Int32
	stops  atomic.Int32
	closes atomic.Int32
}

func (l *fakeLine) Start() error {
	l.starts.Add(1)
	return nil
}

func (l *fakeLine) Read(buf []byte) (int, error) {
	l.mu.Lock()
	l.bufLens = append(l.bufLens, len(buf))
	if len(l.reads) == 0 {
		err := l.readErr
		l.mu.Unlock()
		if err != nil {
			return 0, err
		}
		// Idle device: no data this cycle.
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	chunk := l.reads[0]
	l.reads = l.reads[1:]
	l.mu.Unlock()
	return copy(buf, chunk), nil
}

func (l *fakeLine) Stop() error {
	l.stops.Add(1)
	return nil
}

func (l *fakeLine) Close() error {
	l.closes.Add(1)
	return nil
}

type fakeOpener struct {
	mu       sync.Mutex
	next     *fakeLine
	openErr  error
	startErr error
	lines    []*fakeLine
}

func (o *fakeOpener) Open(f device.Format) (device.Line, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.openErr != nil {
		return nil, o.openErr
	}
	line := o.next
	if line == nil {
		line = &fakeLine{}
	}
	o.next = nil
	o.lines = append(o.lines, line)
	if o.startErr != nil {
		return &failingStartLine{fakeLine: line, err: o.startErr}, nil
	}
	return line, nil
}

func (o *fakeOpener) opened() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.lines)
}

type failingStartLine struct {
	*fakeLine
	err error
}

func (l *failingStartLine) Start() error {
	return l.err
}

func TestLoopProducesFrames(t *testing.T) {
	line := &fakeLine{reads: [][]byte{{0x01, 0x02}, nil, {0x03}}}
	opener := &fakeOpener{next: line}

	loop, err := Start(opener, device.DefaultFormat())
	require.NoError(t, err)

	f, ok := loop.Queue().Receive()
	require.True(t, ok)
	assert.Equal(t, frame.TypeAudioInput, f.Type)
	assert.Equal(t, []byte{0x01, 0x02}, f.Payload)

	// The empty cycle in between produced no frame.
	f, ok = loop.Queue().Receive()
	require.True(t, ok)
	assert.Equal(t, []byte{0x03}, f.Payload)

	loop.Cancel()
	<-loop.Done()

	assert.Equal(t, int32(1), line.starts.Load())
	assert.Equal(t, int32(1), line.stops.Load())
	assert.Equal(t, int32(1), line.closes.Load())
}

func TestLoopReadBufferSize(t *testing.T) {
	line := &fakeLine{reads: [][]byte{{0xff}}}
	opener := &fakeOpener{next: line}

	loop, err := Start(opener, device.Format{SampleRate: 16000, BitsPerSample: 16, Channels: 1})
	require.NoError(t, err)

	_, ok := loop.Queue().Receive()
	require.True(t, ok)

	loop.Cancel()
	<-loop.Done()

	line.mu.Lock()
	defer line.mu.Unlock()
	require.NotEmpty(t, line.bufLens)
	assert.Equal(t, 320, line.bufLens[0], "10 ms of 16 kHz 16-bit mono PCM")
}

func TestLoopReadFailure(t *testing.T) {
	line := &fakeLine{
		reads:   [][]byte{{0x01}},
		readErr: errors.New("device unplugged"),
	}
	opener := &fakeOpener{next: line}

	loop, err := Start(opener, device.DefaultFormat())
	require.NoError(t, err)

	// Queued audio is still delivered ahead of the sentinel.
	f, ok := loop.Queue().Receive()
	require.True(t, ok)
	assert.Equal(t, frame.TypeAudioInput, f.Type)

	f, ok = loop.Queue().Receive()
	require.True(t, ok)
	assert.Equal(t, frame.TypeCaptureError, f.Type)
	assert.Contains(t, string(f.Payload), "device unplugged")

	_, ok = loop.Queue().Receive()
	assert.False(t, ok, "queue closes after the sentinel")

	<-loop.Done()
	assert.Equal(t, int32(1), line.stops.Load(), "teardown ran exactly once")
	assert.Equal(t, int32(1), line.closes.Load())
}

func TestLoopCancelIdempotent(t *testing.T) {
	line := &fakeLine{}
	opener := &fakeOpener{next: line}

	loop, err := Start(opener, device.DefaultFormat())
	require.NoError(t, err)

	loop.Cancel()
	loop.Cancel()
	<-loop.Done()

	assert.Equal(t, int32(1), line.stops.Load())
	assert.Equal(t, int32(1), line.closes.Load())
}

func TestLoopOpenFailure(t *testing.T) {
	opener := &fakeOpener{
		openErr: fmt.Errorf("%w: 12 bits", device.ErrUnsupportedFormat),
	}

	loop, err := Start(opener, device.DefaultFormat())
	require.Error(t, err)
	assert.Nil(t, loop)
	assert.ErrorIs(t, err, device.ErrUnsupportedFormat)
	assert.Equal(t, 0, opener.opened(), "no line allocated on open failure")
}

func TestLoopStartFailure(t *testing.T) {
	line := &fakeLine{}
	opener := &fakeOpener{next: line, startErr: errors.New("stream busy")}

	loop, err := Start(opener, device.DefaultFormat())
	require.Error(t, err)
	assert.Nil(t, loop)
	assert.Equal(t, int32(1), line.closes.Load(), "opened line is released")
	assert.Equal(t, int32(0), line.stops.Load())
}

func TestLoopInvalidInterval(t *testing.T) {
	opener := &fakeOpener{}
	loop, err := Start(opener, device.Format{SampleRate: 50, BitsPerSample: 16, Channels: 1})
	require.Error(t, err)
	assert.Nil(t, loop)
	assert.ErrorIs(t, err, device.ErrUnsupportedFormat)
}
