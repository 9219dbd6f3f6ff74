package autodiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvDebug, "true")
	t.Setenv(EnvCheckNumerics, "1")
	assert.Equal(t, Config{Debug: true, CheckNumerics: true}, ConfigFromEnv())

	t.Setenv(EnvDebug, "not-a-bool")
	t.Setenv(EnvCheckNumerics, "")
	assert.Equal(t, Config{}, ConfigFromEnv())
}

func TestOptions(t *testing.T) {
	var cfg Config
	WithDebug(true)(&cfg)
	WithCheckNumerics(true)(&cfg)
	assert.Equal(t, Config{Debug: true, CheckNumerics: true}, cfg)

	WithConfig(Config{CheckNumerics: true})(&cfg)
	assert.Equal(t, Config{CheckNumerics: true}, cfg)
}

func TestMemoryInfo_String(t *testing.T) {
	info := MemoryInfo{NumTensors: 1234, NumBytes: 2048, NumScopes: 1, NumTapeEntries: 5}
	assert.Equal(t, "1,234 tensors (2.0 KiB), 1 scope(s), 5 tape entries", info.String())
}
