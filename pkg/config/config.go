// Package config loads process settings from the environment and an optional
// .env file.
package config

import (
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/realtime-ai/ferrolight/pkg/ferro"
	"github.com/realtime-ai/ferrolight/pkg/light"
	"github.com/realtime-ai/ferrolight/pkg/trace"
)

// Tempo estimator names accepted in TEMPO_ESTIMATOR.
const (
	TempoFixed    = "fixed"
	TempoAutocorr = "autocorr"
)

// Config holds the settings of all three binaries.
type Config struct {
	// Rig servers
	LightAddr string
	FerroAddr string

	// Conductor targets
	LightURL string
	FerroURL string

	// Light strip
	SPIDevice       string
	SPISpeedHz      uint32
	LightPixels     int
	LightBrightness uint8

	// Ferro coils
	PWMChip      string
	PWMChannels  [ferro.NumCoils]int
	PWMFrequency int

	// Analysis
	CaptureDevice    string
	TempoEstimator   string
	ModeChangeWraps  int
	FerroFollowsMode bool
	Seed             int64 // 0 seeds from the clock
	ReplyTimeout     time.Duration

	// Tracing
	TraceExporter string
	OTLPEndpoint  string
	Environment   string
}

// Default returns the settings used when no variable is set.
func Default() Config {
	lc := light.DefaultConfig()
	pc := ferro.DefaultPWMConfig()
	return Config{
		LightAddr:       ":5555",
		FerroAddr:       ":5556",
		LightURL:        "ws://localhost:5555/control",
		FerroURL:        "ws://localhost:5556/control",
		SPIDevice:       light.DefaultSPIDevice,
		SPISpeedHz:      light.DefaultSPISpeedHz,
		LightPixels:     lc.Pixels,
		LightBrightness: lc.Brightness,
		PWMChip:         pc.Chip,
		PWMChannels:     pc.Channels,
		PWMFrequency:    pc.Frequency,
		TempoEstimator:  TempoFixed,
		ModeChangeWraps: 100,
		ReplyTimeout:    5 * time.Second,
		TraceExporter:   "none",
		OTLPEndpoint:    "localhost:4317",
		Environment:     "development",
	}
}

// Load reads .env if present, then the environment, falling back to Default
// for anything unset or unparsable.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[Config] error loading .env file: %v", err)
	}

	cfg := Default()
	cfg.LightAddr = getEnv("LIGHT_ADDR", cfg.LightAddr)
	cfg.FerroAddr = getEnv("FERRO_ADDR", cfg.FerroAddr)
	cfg.LightURL = getEnv("LIGHT_URL", cfg.LightURL)
	cfg.FerroURL = getEnv("FERRO_URL", cfg.FerroURL)

	cfg.SPIDevice = getEnv("SPI_DEVICE", cfg.SPIDevice)
	cfg.SPISpeedHz = uint32(getEnvInt("SPI_SPEED_HZ", int(cfg.SPISpeedHz)))
	cfg.LightPixels = getEnvInt("LIGHT_PIXELS", cfg.LightPixels)
	if b := getEnvInt("LIGHT_BRIGHTNESS", int(cfg.LightBrightness)); b >= 0 && b <= 255 {
		cfg.LightBrightness = uint8(b)
	} else {
		log.Printf("[Config] Warning: LIGHT_BRIGHTNESS=%d out of range, using %d", b, cfg.LightBrightness)
	}

	cfg.PWMChip = getEnv("PWM_CHIP", cfg.PWMChip)
	cfg.PWMChannels = getEnvChannels("PWM_CHANNELS", cfg.PWMChannels)
	cfg.PWMFrequency = getEnvInt("PWM_FREQUENCY", cfg.PWMFrequency)

	cfg.CaptureDevice = getEnv("CAPTURE_DEVICE", cfg.CaptureDevice)
	switch est := getEnv("TEMPO_ESTIMATOR", cfg.TempoEstimator); est {
	case TempoFixed, TempoAutocorr:
		cfg.TempoEstimator = est
	default:
		log.Printf("[Config] Warning: unknown TEMPO_ESTIMATOR %q, using %q", est, cfg.TempoEstimator)
	}
	cfg.ModeChangeWraps = getEnvInt("MODE_CHANGE_WRAPS", cfg.ModeChangeWraps)
	cfg.FerroFollowsMode = getEnvBool("FERRO_FOLLOWS_MODE", cfg.FerroFollowsMode)
	cfg.Seed = int64(getEnvInt("SEED", int(cfg.Seed)))
	cfg.ReplyTimeout = getEnvDuration("REPLY_TIMEOUT", cfg.ReplyTimeout)

	cfg.TraceExporter = getEnv("TRACE_EXPORTER", cfg.TraceExporter)
	cfg.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)

	log.Printf("[Config] light=%s ferro=%s tempo=%s trace=%s", cfg.LightAddr, cfg.FerroAddr, cfg.TempoEstimator, cfg.TraceExporter)
	return cfg
}

// TraceConfig returns the tracing setup for one binary.
func (c Config) TraceConfig(serviceName string) *trace.Config {
	tc := trace.DefaultConfig(serviceName)
	tc.ExporterType = c.TraceExporter
	tc.OTLPEndpoint = c.OTLPEndpoint
	tc.Environment = c.Environment
	return tc
}

// LightConfig applies the strip settings to the light defaults.
func (c Config) LightConfig() light.Config {
	lc := light.DefaultConfig()
	lc.Pixels = c.LightPixels
	lc.Brightness = c.LightBrightness
	return lc
}

// PWMConfig returns the coil channel mapping.
func (c Config) PWMConfig() ferro.PWMConfig {
	return ferro.PWMConfig{
		Chip:      c.PWMChip,
		Channels:  c.PWMChannels,
		Frequency: c.PWMFrequency,
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[Config] Warning: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[Config] Warning: invalid %s=%q, using %t", key, v, def)
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("[Config] Warning: invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

// getEnvChannels parses a comma separated list of one channel per coil.
func getEnvChannels(key string, def [ferro.NumCoils]int) [ferro.NumCoils]int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	if len(parts) != ferro.NumCoils {
		log.Printf("[Config] Warning: %s needs %d channels, got %q", key, ferro.NumCoils, v)
		return def
	}
	var out [ferro.NumCoils]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			log.Printf("[Config] Warning: invalid %s=%q", key, v)
			return def
		}
		out[i] = n
	}
	return out
}

// Rand returns the random source for one process, seeded from Seed or the clock.
func (c Config) Rand() *rand.Rand {
	seed := c.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
