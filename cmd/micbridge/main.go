package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/petems/micbridge/internal/config"
	"github.com/petems/micbridge/internal/device"
	"github.com/petems/micbridge/internal/frame"
	"github.com/petems/micbridge/internal/logging"
	"github.com/petems/micbridge/internal/metrics"
	"github.com/petems/micbridge/internal/pipeline"
	"github.com/petems/micbridge/internal/wire"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

// processorID names the single microphone processor this binary drives.
const processorID = "mic"

func main() {
	var cfgFile string

	root := &cobra.Command{
		Use:     "micbridge",
		Short:   "Bridge microphone audio onto a telephony media stream",
		Version: fmt.Sprintf("%s (%s)", Version, Commit),
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	root.AddCommand(runCmd(&cfgFile), devicesCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd(cfgFile *string) *cobra.Command {
	var trace bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Capture microphone audio and relay it through the pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return err
			}
			log := logging.NewWithLevel(cfg.LogLevel)

			host, err := device.NewHost(cfg.Audio.Device)
			if err != nil {
				return err
			}
			defer host.Close()

			met := metrics.New()
			if cfg.MetricsAddr != "" {
				go func() {
					mux := http.NewServeMux()
					mux.Handle("/metrics", met.Handler())
					if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
						log.Error().Err(err).Msg("Metrics listener failed")
					}
				}()
			}

			sid := cfg.StreamSID
			if sid == "" {
				sid = "MS" + uuid.NewString()
			}
			serializer := wire.NewTelephony(sid)

			stream := make(chan frame.Frame, 64)
			dispatcher := pipeline.New(pipeline.Config{
				Opener:        host,
				Format:        cfg.Format(),
				QueueCapacity: cfg.QueueCapacity,
				Out:           stream,
				Logger:        log,
				Metrics:       met,
			})

			if err := dispatcher.HandleSignal(processorID, frame.Frame{Type: frame.TypeSystemStart}); err != nil {
				return err
			}
			log.Info().Str("stream_sid", sid).Msg("micbridge capturing")

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			go func() {
				<-sigChan
				log.Info().Msg("Shutting down...")
				dispatcher.HandleSignal(processorID, frame.Frame{Type: frame.TypeSystemStop})
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := dispatcher.Shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Shutdown error")
				}
				// Relays have drained; nothing sends on stream anymore.
				close(stream)
			}()

			var frames uint64
			for f := range stream {
				if f.Type != frame.TypeAudioInput {
					continue
				}
				frames++
				if trace {
					// Mic audio leaves the pipeline toward the call as output.
					if msg, ok := serializer.Serialize(frame.AudioOutput(f.Payload)); ok {
						fmt.Fprintln(cmd.OutOrStdout(), string(msg))
					}
				}
			}

			log.Info().Uint64("frames", frames).Msg("Capture finished")
			return nil
		},
	}

	cmd.Flags().BoolVar(&trace, "trace", false, "print outbound media envelopes to stdout")
	return cmd
}

func devicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available audio input devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			host, err := device.NewHost("")
			if err != nil {
				return err
			}
			defer host.Close()

			devices, err := host.ListDevices()
			if err != nil {
				return err
			}
			for _, d := range devices {
				marker := " "
				if d.Default {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, d.Name)
			}
			return nil
		},
	}
}
