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

func TestEnvDefaults(t *testing.T) {
	t.Setenv("SF_STR", "value")
	t.Setenv("SF_INT", "12")
	t.Setenv("SF_BAD_INT", "twelve")
	t.Setenv("SF_DUR", "150ms")
	t.Setenv("SF_NEG_DUR", "-1s")
	t.Setenv("SF_BOOL", "false")

	assert.Equal(t, "value", EnvDefault("SF_STR", "def"))
	assert.Equal(t, "def", EnvDefault("SF_MISSING", "def"))
	assert.Equal(t, 12, EnvIntDefault("SF_INT", 1))
	assert.Equal(t, 1, EnvIntDefault("SF_BAD_INT", 1))
	assert.Equal(t, 150*time.Millisecond, EnvDurationDefault("SF_DUR", time.Second))
	assert.Equal(t, time.Second, EnvDurationDefault("SF_NEG_DUR", time.Second))
	assert.False(t, EnvBoolDefault("SF_BOOL", true))
	assert.True(t, EnvBoolDefault("SF_MISSING", true))
}

func TestLoad(t *testing.T) {
	t.Setenv("IDENTITY_HS256_SECRET", "secret")
	t.Setenv("BACKEND_URL", "http://backend")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg := Load()
	assert.Equal(t, []byte("secret"), cfg.IdentitySecret)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, 300*time.Millisecond, cfg.CartDebounce)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "/signin", cfg.SignInPath)
	assert.Equal(t, "/dashboard", cfg.LandingPath)
}
