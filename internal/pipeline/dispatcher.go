// Package pipeline drives the per-processor capture state machine and
// relays captured frames into the main pipeline stream.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/petems/micbridge/internal/capture"
	"github.com/petems/micbridge/internal/device"
	"github.com/petems/micbridge/internal/frame"
	"github.com/petems/micbridge/internal/metrics"
)

type Config struct {
	State         *State // optional; a fresh one is created when nil
	Opener        device.Opener
	Format        device.Format
	QueueCapacity int
	Out           chan<- frame.Frame
	Logger        zerolog.Logger
	Metrics       *metrics.Metrics
}

// Dispatcher moves each processor between Idle and Capturing in response to
// control signals. A start opens a capture loop and launches a relay that
// drains its queue into Out; a stop (or any unrecognized signal) cancels the
// loop. At most one loop runs per processor at any time.
type Dispatcher struct {
	state    *State
	opener   device.Opener
	format   device.Format
	queueCap int
	out      chan<- frame.Frame
	log      zerolog.Logger
	met      *metrics.Metrics

	wg sync.WaitGroup
}

func New(cfg Config) *Dispatcher {
	st := cfg.State
	if st == nil {
		st = NewState()
	}
	return &Dispatcher{
		state:    st,
		opener:   cfg.Opener,
		format:   cfg.Format,
		queueCap: cfg.QueueCapacity,
		out:      cfg.Out,
		log:      cfg.Logger,
		met:      cfg.Metrics,
	}
}

func (d *Dispatcher) State() *State {
	return d.state
}

// HandleSignal applies a control signal to the named processor. Signals
// other than start and stop route to the stop path, so an unexpected signal
// never leaves a capture running.
func (d *Dispatcher) HandleSignal(proc string, f frame.Frame) error {
	switch frame.SignalOf(f.Type) {
	case frame.SignalStart:
		return d.startCapture(proc)
	case frame.SignalStop:
		d.stopCapture(proc)
	default:
		d.log.Debug().Str("processor", proc).Str("type", string(f.Type)).Msg("Unrecognized signal, routing to cleanup")
		d.stopCapture(proc)
	}
	return nil
}

func (d *Dispatcher) startCapture(proc string) error {
	ps := d.state.processor(proc)
	if ps.handle.Load() != nil {
		d.log.Warn().Str("processor", proc).Msg("Capture already running, ignoring start")
		return nil
	}

	loop, err := capture.Start(d.opener, d.format,
		capture.WithQueueCapacity(d.queueCap),
		capture.WithLogger(d.log),
		capture.WithMetrics(d.met),
	)
	if err != nil {
		return fmt.Errorf("failed to start capture for %q: %w", proc, err)
	}

	if !ps.handle.CompareAndSwap(nil, loop) {
		// Lost a race with a concurrent start; the earlier loop keeps running.
		loop.Cancel()
		<-loop.Done()
		d.log.Warn().Str("processor", proc).Msg("Concurrent start, discarded duplicate capture")
		return nil
	}

	d.log.Info().
		Str("processor", proc).
		Int("sample_rate", d.format.SampleRate).
		Int("bits", d.format.BitsPerSample).
		Int("channels", d.format.Channels).
		Msg("Capture started")

	d.wg.Add(1)
	go d.relay(ps, loop)
	return nil
}

// stopCapture is a no-op when no capture is running, so stop signals are
// idempotent and never reach the device twice.
func (d *Dispatcher) stopCapture(proc string) {
	ps := d.state.processor(proc)
	loop := ps.handle.Swap(nil)
	if loop == nil {
		return
	}
	loop.Cancel()
	d.log.Info().Str("processor", proc).Msg("Capture stopped")
}

// relay drains the loop's queue into the pipeline stream until the queue
// closes, then joins the capture goroutine so its device teardown has
// completed before the relay is considered finished. If the loop tore
// itself down after a device failure, the handle is still set; clearing it
// here keeps handle presence equal to loop liveness.
func (d *Dispatcher) relay(ps *processorState, loop *capture.Loop) {
	defer d.wg.Done()
	for {
		f, ok := loop.Queue().Receive()
		if !ok {
			break
		}
		if f.Type == frame.TypeCaptureError {
			d.log.Error().Str("error", string(f.Payload)).Msg("Capture loop reported device failure")
			continue
		}
		d.out <- f
		if d.met != nil {
			d.met.FramesRelayed.Inc()
		}
	}
	<-loop.Done()
	ps.handle.CompareAndSwap(loop, nil)
}

// Shutdown stops every processor and waits for the relay tasks to finish
// draining, bounded by ctx.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	for _, id := range d.state.ids() {
		d.stopCapture(id)
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown incomplete: %w", ctx.Err())
	}
}
