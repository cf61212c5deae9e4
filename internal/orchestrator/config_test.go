package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Defaults(t *testing.T) {
	cfg, err := Config{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultMaxAttempts, cfg.MaxAttempts)
}

func TestNormalize_DeadlineOnlyStaysUncapped(t *testing.T) {
	cfg, err := Config{Deadline: time.Minute}.Normalize()
	require.NoError(t, err)
	assert.Zero(t, cfg.MaxAttempts)
	assert.Equal(t, time.Minute, cfg.Deadline)
}

func TestNormalize_KeepsExplicitValues(t *testing.T) {
	in := Config{PollInterval: time.Second, MaxAttempts: 3, RequestTimeout: 2 * time.Second}
	cfg, err := in.Normalize()
	require.NoError(t, err)
	assert.Equal(t, in, cfg)
}

func TestNormalize_RejectsNegative(t *testing.T) {
	for name, cfg := range map[string]Config{
		"interval": {PollInterval: -time.Second},
		"attempts": {MaxAttempts: -1},
		"timeout":  {RequestTimeout: -time.Second},
		"deadline": {Deadline: -time.Second},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := cfg.Normalize()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultMaxAttempts, cfg.MaxAttempts)
}

func TestConfigMaxWait(t *testing.T) {
	tests := map[string]struct {
		cfg  Config
		want time.Duration
	}{
		"attempts":         {Config{PollInterval: 5 * time.Second, MaxAttempts: 60}, 295 * time.Second},
		"single attempt":   {Config{PollInterval: time.Minute, MaxAttempts: 1}, 0},
		"deadline only":    {Config{PollInterval: time.Second, Deadline: time.Hour}, time.Hour},
		"deadline tighter": {Config{PollInterval: time.Minute, MaxAttempts: 100, Deadline: 10 * time.Minute}, 10 * time.Minute},
		"attempts tighter": {Config{PollInterval: time.Second, MaxAttempts: 3, Deadline: time.Hour}, 2 * time.Second},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.MaxWait())
		})
	}
}
