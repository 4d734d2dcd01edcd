package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/synth-evolve/preference"
	"github.com/lixenwraith/synth-evolve/search"
)

func TestDefaultIsBaseline(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.Validate(), "defaults need no correction")
	assert.Equal(t, "baseline", cfg.Tag())
	assert.Equal(t, preference.ModalityGenome, cfg.Modality())

	sc := cfg.SearchConfig()
	d := search.DefaultConfig()
	assert.Equal(t, d, sc)
	assert.False(t, sc.Adaptive)
	assert.False(t, sc.Novelty)
}

func TestTag(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"baseline", func(*Config) {}, "baseline"},
		{"adaptive", func(c *Config) { c.Exploration.Adaptive = true }, "adaptive"},
		{"novelty", func(c *Config) { c.Novelty.Enabled = true }, "novelty"},
		{"all", func(c *Config) {
			c.Model.Input = InputAudio
			c.Exploration.Adaptive = true
			c.Novelty.Enabled = true
			c.Novelty.MultiObjective = true
		}, "audio+adaptive+novelty+multiobjective"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Equal(t, tt.want, cfg.Tag())
		})
	}
}

func TestApplyExperiment(t *testing.T) {
	for _, name := range Experiments {
		cfg := Default()
		require.NoError(t, cfg.ApplyExperiment(name))
		assert.Equal(t, name, cfg.Experiment())
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyExperiment(ExperimentAll))
	assert.Equal(t, "adaptive+novelty+multiobjective", cfg.Tag())

	require.NoError(t, cfg.ApplyExperiment(ExperimentBaseline))
	assert.Equal(t, "baseline", cfg.Tag())

	assert.ErrorIs(t, cfg.ApplyExperiment("turbo"), ErrUnknownExperiment)

	cfg.Novelty.MultiObjective = true
	assert.Empty(t, cfg.Experiment(), "custom toggles match no preset")
}

func TestValidateRepairs(t *testing.T) {
	cfg := Default()
	cfg.Search.PopulationSize = 0
	cfg.Search.MutationRate = 3
	cfg.Exploration.Min = 0.4
	cfg.Exploration.Max = 0.1
	cfg.Novelty.K = 0
	cfg.Model.Input = " AUDIO "
	cfg.Model.Store = "redis"
	cfg.Audio.SampleRate = 10

	fixes := cfg.Validate()
	d := Default()

	assert.Len(t, fixes, 6)
	assert.Equal(t, d.Search.PopulationSize, cfg.Search.PopulationSize)
	assert.Equal(t, d.Search.MutationRate, cfg.Search.MutationRate)
	assert.Equal(t, 0.4, cfg.Exploration.Min)
	assert.GreaterOrEqual(t, cfg.Exploration.Max, cfg.Exploration.Min)
	assert.Equal(t, d.Novelty.K, cfg.Novelty.K)
	assert.Equal(t, InputAudio, cfg.Model.Input, "input is normalized, not rejected")
	assert.Equal(t, d.Model.Store, cfg.Model.Store)
	assert.Equal(t, d.Audio.SampleRate, cfg.Audio.SampleRate)
}

func TestLoad(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		cfg, fixes, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
		require.NoError(t, err)
		assert.Empty(t, fixes)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("overlay", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), DefaultFileName)
		require.NoError(t, os.WriteFile(path, []byte(`
[exploration]
adaptive = true

[novelty]
enabled = true
k = 7

[model]
input = "audio"
`), 0644))

		cfg, fixes, err := Load(path)
		require.NoError(t, err)
		assert.Empty(t, fixes)
		assert.True(t, cfg.Exploration.Adaptive)
		assert.Equal(t, 7, cfg.Novelty.K)
		assert.Equal(t, preference.ModalityAudio, cfg.Modality())
		assert.Equal(t, Default().Search, cfg.Search, "unset sections keep defaults")
		assert.Equal(t, "audio+adaptive+novelty", cfg.Tag())
	})

	t.Run("malformed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), DefaultFileName)
		require.NoError(t, os.WriteFile(path, []byte("[search\n"), 0644))
		cfg, _, err := Load(path)
		assert.Error(t, err)
		assert.Equal(t, Default(), cfg)
	})
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	cfg := Default()
	cfg.Search.Seed = 99
	cfg.Novelty.MultiObjective = true
	require.NoError(t, Save(path, cfg))

	got, fixes, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, fixes)
	assert.Equal(t, cfg, got)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SYNTH_EVOLVE_ADAPTIVE":    "true",
		"SYNTH_EVOLVE_EPSILON":     "0.4",
		"SYNTH_EVOLVE_SEED":        "17",
		"SYNTH_EVOLVE_VOLUME":      "150",
		"SYNTH_EVOLVE_SAMPLE_RATE": "not-a-number",
		"SYNTH_EVOLVE_STORE":       "sqlite",
	}
	cfg := Default()
	cfg.applyEnv(func(k string) string { return env[k] })

	assert.True(t, cfg.Exploration.Adaptive)
	assert.Equal(t, 0.4, cfg.Search.Epsilon)
	assert.Equal(t, uint64(17), cfg.Search.Seed)
	assert.Equal(t, 1.0, cfg.Audio.Volume)
	assert.Equal(t, Default().Audio.SampleRate, cfg.Audio.SampleRate)
	assert.Equal(t, "sqlite", cfg.Model.Store)
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	require.NoError(t, Save(path, Default()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, nil, func(c Config) { got <- c })
	}()

	// Let the watcher register before writing
	time.Sleep(100 * time.Millisecond)

	next := Default()
	next.Novelty.Enabled = true
	require.NoError(t, Save(path, next))

	select {
	case c := <-got:
		assert.True(t, c.Novelty.Enabled)
	case <-time.After(3 * time.Second):
		t.Fatal("config change not delivered")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
