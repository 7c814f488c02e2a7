// Command ferrod drives the ferrofluid coils and accepts control requests on
// FERRO_ADDR.
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
	"github.com/realtime-ai/ferrolight/pkg/ferro"
	"github.com/realtime-ai/ferrolight/pkg/trace"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("ferrod: %v", err)
	}
}

func run() error {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := trace.Initialize(ctx, cfg.TraceConfig("ferrod")); err != nil {
		return err
	}
	defer func() {
		if err := trace.Shutdown(context.Background()); err != nil {
			log.Printf("Failed to shutdown tracing: %v", err)
		}
	}()

	rig := ferro.NewRig(ferro.DefaultConfig())

	var driver engine.Driver[ferro.Duty]
	pwm, err := ferro.OpenSysfsPWM(cfg.PWMConfig())
	if err != nil {
		log.Printf("[ferrod] no PWM (%v), duties are discarded", err)
	} else {
		defer pwm.Close()
		driver = pwm
	}

	eng := engine.New[ferro.Scene, ferro.Duty](rig, driver, engine.Options{
		Name: "ferro",
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
			log.Printf("[ferrod] %v, shutting down", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	srv := control.NewServer(control.DefaultConfig(cfg.FerroAddr), eng)
	return srv.Serve(ctx)
}
