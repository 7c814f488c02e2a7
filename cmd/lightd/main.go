// Command lightd drives the WS2812 strip and accepts control requests on
// LIGHT_ADDR.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/realtime-ai/ferrolight/pkg/config"
	"github.com/realtime-ai/ferrolight/pkg/control"
	"github.com/realtime-ai/ferrolight/pkg/engine"
	"github.com/realtime-ai/ferrolight/pkg/light"
	"github.com/realtime-ai/ferrolight/pkg/trace"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("lightd: %v", err)
	}
}

func run() error {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := trace.Initialize(ctx, cfg.TraceConfig("lightd")); err != nil {
		return err
	}
	defer func() {
		if err := trace.Shutdown(context.Background()); err != nil {
			log.Printf("Failed to shutdown tracing: %v", err)
		}
	}()

	rig := light.NewRig(cfg.LightConfig())

	var driver engine.Driver[light.Frame]
	strip, err := light.OpenSPIStrip(cfg.SPIDevice, cfg.SPISpeedHz)
	if err != nil {
		log.Printf("[lightd] no strip (%v), frames are discarded", err)
	} else {
		defer strip.Close()
		driver = strip
	}

	eng := engine.New[light.Scene, light.Frame](rig, driver, engine.Options{
		Name: "light",
		Tick: rig.Config().Tick,
		Rand: cfg.Rand(),
	})
	if err := eng.Start(ctx); err != nil {
		return err
	}
	defer eng.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			log.Printf("[lightd] %v, shutting down", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	srv := control.NewServer(control.DefaultConfig(cfg.LightAddr), eng)
	return srv.Serve(ctx)
}
