package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 45*time.Second, cfg.JudgeTimeout)
	assert.Equal(t, "admissions-scoring", cfg.OTELServiceName)
	assert.True(t, cfg.IsDev())
	assert.False(t, cfg.IsProd())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("JUDGE_TIMEOUT", "10s")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProd())
	assert.Equal(t, 10*time.Second, cfg.JudgeTimeout)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
}
