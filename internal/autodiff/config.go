package autodiff

import (
	"os"
	"strconv"

	"k8s.io/klog/v2"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvDebug         = "SEGMENTGRAD_DEBUG"
	EnvCheckNumerics = "SEGMENTGRAD_CHECK_NUMERICS"
)

// Config holds engine settings.
type Config struct {
	// Debug logs every kernel dispatch, independent of klog verbosity.
	Debug bool

	// CheckNumerics fails RunKernel when a floating point result holds NaN or Inf.
	CheckNumerics bool
}

// Option configures an Engine.
type Option func(*Config)

// WithDebug toggles per-kernel logging.
func WithDebug(on bool) Option {
	return func(c *Config) { c.Debug = on }
}

// WithCheckNumerics toggles NaN/Inf checks on kernel outputs.
func WithCheckNumerics(on bool) Option {
	return func(c *Config) { c.CheckNumerics = on }
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(c *Config) { *c = cfg }
}

// ConfigFromEnv builds a Config from SEGMENTGRAD_* environment variables.
// Unparsable values are ignored with a warning.
func ConfigFromEnv() Config {
	return Config{
		Debug:         envBool(EnvDebug),
		CheckNumerics: envBool(EnvCheckNumerics),
	}
}

func envBool(name string) bool {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		klog.Warningf("ignoring %s=%q: %v", name, v, err)
		return false
	}
	return b
}
