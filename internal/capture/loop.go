// Package capture runs the background device read loop and the bounded
// frame queue that hands its output to the pipeline.
package capture

import (
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/petems/micbridge/internal/device"
	"github.com/petems/micbridge/internal/frame"
	"github.com/petems/micbridge/internal/metrics"
)

type options struct {
	queueCapacity int
	log           zerolog.Logger
	met           *metrics.Metrics
}

type Option func(*options)

func WithQueueCapacity(n int) Option {
	return func(o *options) { o.queueCapacity = n }
}

func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.met = m }
}

// Loop owns one device line for its lifetime. A dedicated goroutine reads
// fixed 10 ms chunks, frames them onto the queue, and runs the single
// teardown path (stop line, close line, close queue) on every exit, whether
// triggered by Cancel or by a device failure. Device reads block natively,
// which is why the loop gets its own goroutine rather than a pipeline task.
type Loop struct {
	queue *Queue
	alive atomic.Bool
	done  chan struct{}
	log   zerolog.Logger
	met   *metrics.Metrics
}

// Start opens and starts a device line for format, then launches the read
// loop. An open failure aborts before anything is allocated on the device,
// leaving the caller's state untouched.
func Start(opener device.Opener, format device.Format, opts ...Option) (*Loop, error) {
	o := options{queueCapacity: DefaultQueueCapacity, log: zerolog.Nop()}
	for _, fn := range opts {
		fn(&o)
	}

	bufSize := format.BytesPerInterval()
	if bufSize <= 0 {
		return nil, fmt.Errorf("%w: read interval is zero bytes", device.ErrUnsupportedFormat)
	}

	line, err := opener.Open(format)
	if err != nil {
		return nil, err
	}
	if err := line.Start(); err != nil {
		// The line never streamed, so teardown here is just the close.
		if cerr := line.Close(); cerr != nil {
			o.log.Error().Err(cerr).Msg("Failed to close device line")
		}
		return nil, fmt.Errorf("failed to start device line: %w", err)
	}

	l := &Loop{
		queue: NewQueue(o.queueCapacity),
		done:  make(chan struct{}),
		log:   o.log,
		met:   o.met,
	}
	l.alive.Store(true)

	go l.run(line, bufSize)

	return l, nil
}

func (l *Loop) run(line device.Line, bufSize int) {
	defer close(l.done)
	defer func() {
		if err := line.Stop(); err != nil {
			l.log.Error().Err(err).Msg("Failed to stop device line")
		}
		if err := line.Close(); err != nil {
			l.log.Error().Err(err).Msg("Failed to close device line")
		}
		l.queue.Close()
	}()

	buf := make([]byte, bufSize)
	for l.alive.Load() {
		n, err := line.Read(buf)
		if err != nil {
			l.log.Error().Err(err).Msg("Device read failed, stopping capture")
			if l.met != nil {
				l.met.CaptureErrors.Inc()
			}
			// Best effort: the consumer sees the failure in-band.
			l.queue.TrySend(frame.CaptureError(err))
			return
		}
		if n <= 0 {
			continue
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])
		if l.queue.TrySend(frame.AudioInput(payload)) {
			if l.met != nil {
				l.met.FramesCaptured.Inc()
			}
		} else if l.met != nil {
			l.met.FramesDropped.Inc()
		}
	}
}

// Cancel clears the liveness flag and closes the queue. The device is not
// touched here: the loop goroutine observes the flag on its next read cycle
// and runs the one teardown path, so stop latency is about one read
// interval. Safe to call more than once.
func (l *Loop) Cancel() {
	l.alive.Store(false)
	l.queue.Close()
}

// Done is closed once the read loop has exited and teardown has completed.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) Queue() *Queue {
	return l.queue
}
