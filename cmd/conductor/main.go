// Command conductor listens to the audio input and tells lightd and ferrod
// what to do.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/realtime-ai/ferrolight/pkg/capture"
	"github.com/realtime-ai/ferrolight/pkg/config"
	"github.com/realtime-ai/ferrolight/pkg/control"
	"github.com/realtime-ai/ferrolight/pkg/dispatch"
	"github.com/realtime-ai/ferrolight/pkg/engine"
	"github.com/realtime-ai/ferrolight/pkg/onset"
	"github.com/realtime-ai/ferrolight/pkg/trace"
)

// timeoutCommander bounds each request so a stalled rig cannot stall analysis.
type timeoutCommander struct {
	c       dispatch.Commander
	timeout time.Duration
}

func (t timeoutCommander) Send(ctx context.Context, cmd engine.Command) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.c.Send(ctx, cmd)
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("conductor: %v", err)
	}
}

func run() error {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := trace.Initialize(ctx, cfg.TraceConfig("conductor")); err != nil {
		return err
	}
	defer func() {
		if err := trace.Shutdown(context.Background()); err != nil {
			log.Printf("Failed to shutdown tracing: %v", err)
		}
	}()

	var lightCmd, ferroCmd dispatch.Commander
	if c, err := control.Dial(ctx, cfg.LightURL); err != nil {
		log.Printf("[conductor] light unavailable: %v", err)
	} else {
		defer c.Close()
		lightCmd = timeoutCommander{c: c, timeout: cfg.ReplyTimeout}
	}
	if c, err := control.Dial(ctx, cfg.FerroURL); err != nil {
		log.Printf("[conductor] ferro unavailable: %v", err)
	} else {
		defer c.Close()
		ferroCmd = timeoutCommander{c: c, timeout: cfg.ReplyTimeout}
	}
	if lightCmd == nil && ferroCmd == nil {
		return errors.New("no rig reachable")
	}

	var tempo onset.TempoEstimator = onset.FixedTempo(onset.DefaultTempo)
	if cfg.TempoEstimator == config.TempoAutocorr {
		tempo = onset.DefaultAutocorrTempo()
	}
	acfg := onset.DefaultAnalyzerConfig()
	acfg.ModeChangeWraps = cfg.ModeChangeWraps
	analyzer := onset.NewAnalyzer(acfg, nil, tempo)

	dcfg := dispatch.DefaultConfig()
	dcfg.FerroFollowsMode = cfg.FerroFollowsMode
	d := dispatch.New(dcfg, analyzer, dispatch.NewModeSampler(cfg.Rand()), lightCmd, ferroCmd)

	ccfg := capture.DefaultConfig()
	ccfg.DeviceName = cfg.CaptureDevice
	src := capture.NewSource(ccfg)
	if err := trace.WithSpan(ctx, "capture.start", src.Start); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			log.Printf("[conductor] %v, shutting down", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	d.Prime(ctx)
	err := d.Run(ctx, src.Hops())
	_ = src.Stop()

	// rigs are stopped even though ctx is already cancelled
	d.Close(context.Background())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
