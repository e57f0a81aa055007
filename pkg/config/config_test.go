package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCSV(t *testing.T) {
	assert.Nil(t, CSV(""))
	assert.Equal(t, []string{"a:9092", "b:9092"}, CSV(" a:9092, ,b:9092 "))
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("CFG_STR", "value")
	t.Setenv("CFG_INT", "42")
	t.Setenv("CFG_BAD_INT", "x")
	t.Setenv("CFG_BOOL", "true")
	t.Setenv("CFG_DUR", "5")
	t.Setenv("CFG_NEG_DUR", "-1")

	assert.Equal(t, "value", EnvDefault("CFG_STR", "def"))
	assert.Equal(t, "def", EnvDefault("CFG_MISSING", "def"))

	assert.Equal(t, 42, EnvIntDefault("CFG_INT", 1))
	assert.Equal(t, 1, EnvIntDefault("CFG_BAD_INT", 1))
	assert.Equal(t, 1, EnvIntDefault("CFG_MISSING", 1))

	assert.True(t, EnvBoolDefault("CFG_BOOL", false))
	assert.False(t, EnvBoolDefault("CFG_MISSING", false))

	assert.Equal(t, 5*time.Minute, EnvDurationDefault("CFG_DUR", time.Minute, time.Hour))
	assert.Equal(t, time.Hour, EnvDurationDefault("CFG_NEG_DUR", time.Minute, time.Hour))
	assert.Equal(t, time.Hour, EnvDurationDefault("CFG_MISSING", time.Minute, time.Hour))
}
