package config

// Package config loads the user-facing configuration surface
// 1. Defaults reproduce baseline behaviour: constant exploration, no novelty, genome modality
// 2. A TOML file overlays defaults, then SYNTH_EVOLVE_* environment variables overlay the file
// 3. Validate repairs invalid values and reports what it changed; loading never fails on a bad value

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/lixenwraith/synth-evolve/parameter"
	"github.com/lixenwraith/synth-evolve/preference"
	"github.com/lixenwraith/synth-evolve/search"
	"github.com/lixenwraith/synth-evolve/storage"
)

// Input modalities for the preference model
const (
	InputGenome = "genome"
	InputAudio  = "audio"
)

// DefaultFileName is the config file looked up in the data directory
const DefaultFileName = "synth-evolve.toml"

// Experiment presets switch the exploration and novelty toggles together
const (
	ExperimentBaseline = "baseline"
	ExperimentAdaptive = "adaptive"
	ExperimentNovelty  = "novelty"
	ExperimentAll      = "all"
)

// Experiments lists presets in selection order
var Experiments = []string{ExperimentBaseline, ExperimentAdaptive, ExperimentNovelty, ExperimentAll}

// ErrUnknownExperiment is returned by ApplyExperiment for names outside Experiments
var ErrUnknownExperiment = errors.New("unknown experiment preset")

// Config is the complete configuration surface
type Config struct {
	Search      SearchConfig      `toml:"search"`
	Exploration ExplorationConfig `toml:"exploration"`
	Novelty     NoveltyConfig     `toml:"novelty"`
	Model       ModelConfig       `toml:"model"`
	Audio       AudioConfig       `toml:"audio"`
}

// SearchConfig holds population and operator settings
type SearchConfig struct {
	PopulationSize   int     `toml:"population_size"`
	Offspring        int     `toml:"offspring"`
	TournamentSize   int     `toml:"tournament_size"`
	MutationRate     float64 `toml:"mutation_rate"`
	MutationStrength float64 `toml:"mutation_strength"`
	Epsilon          float64 `toml:"epsilon"`
	Seed             uint64  `toml:"seed"`
}

// ExplorationConfig toggles adaptive epsilon decay
type ExplorationConfig struct {
	Adaptive bool    `toml:"adaptive"`
	Min      float64 `toml:"epsilon_min"`
	Max      float64 `toml:"epsilon_max"`
	Decay    float64 `toml:"epsilon_decay"`
}

// NoveltyConfig toggles the diversity term
type NoveltyConfig struct {
	Enabled        bool    `toml:"enabled"`
	K              int     `toml:"k"`
	MultiObjective bool    `toml:"multi_objective"`
	Weight         float64 `toml:"weight"`
}

// ModelConfig configures the preference model and its persistence
type ModelConfig struct {
	Input        string  `toml:"input"`
	LearningRate float64 `toml:"learning_rate"`
	ReplayBatch  int     `toml:"replay_batch"`
	DataDir      string  `toml:"data_dir"`
	Store        string  `toml:"store"`
}

// AudioConfig configures rendering and playback
type AudioConfig struct {
	SampleRate int     `toml:"sample_rate"`
	Playback   bool    `toml:"playback"`
	Volume     float64 `toml:"volume"`
}

// Default returns the baseline configuration
func Default() Config {
	s := search.DefaultConfig()
	return Config{
		Search: SearchConfig{
			PopulationSize:   s.PopulationSize,
			Offspring:        s.OffspringPerGeneration,
			TournamentSize:   s.TournamentSize,
			MutationRate:     s.MutationRate,
			MutationStrength: s.MutationStrength,
			Epsilon:          s.Epsilon,
		},
		Exploration: ExplorationConfig{
			Min:   s.EpsilonMin,
			Max:   s.EpsilonMax,
			Decay: s.EpsilonDecay,
		},
		Novelty: NoveltyConfig{
			K:      s.NoveltyK,
			Weight: s.NoveltyWeight,
		},
		Model: ModelConfig{
			Input:        InputGenome,
			LearningRate: parameter.MLPLearningRate,
			ReplayBatch:  parameter.ReplayBatchSize,
			DataDir:      ".",
			Store:        storage.BackendFile,
		},
		Audio: AudioConfig{
			SampleRate: parameter.AudioSampleRate,
			Playback:   true,
			Volume:     parameter.AudioDefaultVolume,
		},
	}
}

// Load overlays the TOML file at path and the environment on defaults, then validates
// A missing file is not an error; corrections lists every repaired value
func Load(path string) (cfg Config, corrections []string, err error) {
	cfg = Default()
	if path != "" {
		data, rerr := os.ReadFile(path)
		switch {
		case errors.Is(rerr, fs.ErrNotExist):
		case rerr != nil:
			return cfg, nil, fmt.Errorf("read config %s: %w", path, rerr)
		default:
			if uerr := toml.Unmarshal(data, &cfg); uerr != nil {
				return Default(), nil, fmt.Errorf("parse config %s: %w", path, uerr)
			}
		}
	}
	cfg.applyEnv(os.Getenv)
	corrections = cfg.Validate()
	return cfg, corrections, nil
}

// Save writes cfg as TOML to path
func Save(path string, cfg Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Marshal encodes cfg as TOML
func Marshal(cfg Config) ([]byte, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

// Validate replaces invalid values with defaults and returns a description of each change
func (c *Config) Validate() []string {
	d := Default()
	var fixes []string
	fix := func(name string, bad bool, apply func(), value any) {
		if bad {
			fixes = append(fixes, fmt.Sprintf("%s: invalid value %v, using default", name, value))
			apply()
		}
	}

	s := &c.Search
	fix("search.population_size", s.PopulationSize < 2, func() { s.PopulationSize = d.Search.PopulationSize }, s.PopulationSize)
	fix("search.offspring", s.Offspring < 1 || s.Offspring > s.PopulationSize, func() { s.Offspring = min(d.Search.Offspring, s.PopulationSize) }, s.Offspring)
	fix("search.tournament_size", s.TournamentSize < 1, func() { s.TournamentSize = d.Search.TournamentSize }, s.TournamentSize)
	fix("search.mutation_rate", !unit(s.MutationRate), func() { s.MutationRate = d.Search.MutationRate }, s.MutationRate)
	fix("search.mutation_strength", !unit(s.MutationStrength), func() { s.MutationStrength = d.Search.MutationStrength }, s.MutationStrength)
	fix("search.epsilon", !unit(s.Epsilon), func() { s.Epsilon = d.Search.Epsilon }, s.Epsilon)

	e := &c.Exploration
	fix("exploration.epsilon_min", !unit(e.Min), func() { e.Min = d.Exploration.Min }, e.Min)
	fix("exploration.epsilon_max", !unit(e.Max) || e.Max < e.Min, func() { e.Max = max(d.Exploration.Max, e.Min) }, e.Max)
	fix("exploration.epsilon_decay", e.Decay <= 0 || e.Decay > 1, func() { e.Decay = d.Exploration.Decay }, e.Decay)

	n := &c.Novelty
	fix("novelty.k", n.K < 1, func() { n.K = d.Novelty.K }, n.K)
	fix("novelty.weight", !unit(n.Weight), func() { n.Weight = d.Novelty.Weight }, n.Weight)

	m := &c.Model
	m.Input = strings.ToLower(strings.TrimSpace(m.Input))
	fix("model.input", m.Input != InputGenome && m.Input != InputAudio, func() { m.Input = d.Model.Input }, m.Input)
	fix("model.learning_rate", m.LearningRate <= 0 || m.LearningRate > 1, func() { m.LearningRate = d.Model.LearningRate }, m.LearningRate)
	fix("model.replay_batch", m.ReplayBatch < 0 || m.ReplayBatch > parameter.ReplayCapacity, func() { m.ReplayBatch = d.Model.ReplayBatch }, m.ReplayBatch)
	fix("model.data_dir", m.DataDir == "", func() { m.DataDir = d.Model.DataDir }, m.DataDir)
	switch m.Store {
	case storage.BackendFile, storage.BackendSQLite, storage.BackendMemory:
	default:
		fix("model.store", true, func() { m.Store = d.Model.Store }, m.Store)
	}

	a := &c.Audio
	fix("audio.sample_rate", a.SampleRate < 8000 || a.SampleRate > 192000, func() { a.SampleRate = d.Audio.SampleRate }, a.SampleRate)
	fix("audio.volume", !unit(a.Volume), func() { a.Volume = d.Audio.Volume }, a.Volume)

	return fixes
}

// Tag is the configuration label recorded with every feedback sample
// Baseline, or the enabled features joined by '+'
func (c Config) Tag() string {
	var parts []string
	if c.Model.Input == InputAudio {
		parts = append(parts, "audio")
	}
	if c.Exploration.Adaptive {
		parts = append(parts, "adaptive")
	}
	if c.Novelty.Enabled {
		parts = append(parts, "novelty")
	}
	if c.Novelty.MultiObjective {
		parts = append(parts, "multiobjective")
	}
	if len(parts) == 0 {
		return "baseline"
	}
	return strings.Join(parts, "+")
}

// ApplyExperiment sets the exploration and novelty toggles for a preset
// Numeric settings such as epsilon bounds and k are left untouched
func (c *Config) ApplyExperiment(name string) error {
	var adaptive, novelty bool
	switch name {
	case ExperimentBaseline:
	case ExperimentAdaptive:
		adaptive = true
	case ExperimentNovelty:
		novelty = true
	case ExperimentAll:
		adaptive, novelty = true, true
	default:
		return fmt.Errorf("%w: %q", ErrUnknownExperiment, name)
	}
	c.Exploration.Adaptive = adaptive
	c.Novelty.Enabled = novelty
	c.Novelty.MultiObjective = name == ExperimentAll
	return nil
}

// Experiment names the preset matching the current toggles, empty for custom combinations
func (c Config) Experiment() string {
	for _, name := range Experiments {
		probe := c
		_ = probe.ApplyExperiment(name)
		if probe.Exploration == c.Exploration && probe.Novelty == c.Novelty {
			return name
		}
	}
	return ""
}

// SearchConfig converts to scheduler settings
func (c Config) SearchConfig() search.Config {
	sc := search.DefaultConfig()
	sc.PopulationSize = c.Search.PopulationSize
	sc.OffspringPerGeneration = c.Search.Offspring
	sc.TournamentSize = c.Search.TournamentSize
	sc.MutationRate = c.Search.MutationRate
	sc.MutationStrength = c.Search.MutationStrength
	sc.Epsilon = c.Search.Epsilon
	sc.Seed = c.Search.Seed
	sc.Adaptive = c.Exploration.Adaptive
	sc.EpsilonMin = c.Exploration.Min
	sc.EpsilonMax = c.Exploration.Max
	sc.EpsilonDecay = c.Exploration.Decay
	sc.Novelty = c.Novelty.Enabled
	sc.NoveltyK = c.Novelty.K
	sc.MultiObjective = c.Novelty.MultiObjective
	sc.NoveltyWeight = c.Novelty.Weight
	return sc
}

// Modality returns the preference network consulted by Evaluate
func (c Config) Modality() preference.Modality {
	if c.Model.Input == InputAudio {
		return preference.ModalityAudio
	}
	return preference.ModalityGenome
}

// applyEnv overlays SYNTH_EVOLVE_* variables; unparsable values are ignored
func (c *Config) applyEnv(getenv func(string) string) {
	envBool := func(name string, dst *bool) {
		if v := getenv(name); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	envInt := func(name string, dst *int) {
		if v := getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	envFloat := func(name string, dst *float64) {
		if v := getenv(name); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	envString := func(name string, dst *string) {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}

	if v := getenv("SYNTH_EVOLVE_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Search.Seed = n
		}
	}
	envFloat("SYNTH_EVOLVE_EPSILON", &c.Search.Epsilon)
	envBool("SYNTH_EVOLVE_ADAPTIVE", &c.Exploration.Adaptive)
	envBool("SYNTH_EVOLVE_NOVELTY", &c.Novelty.Enabled)
	envBool("SYNTH_EVOLVE_MULTI_OBJECTIVE", &c.Novelty.MultiObjective)
	envString("SYNTH_EVOLVE_INPUT", &c.Model.Input)
	envString("SYNTH_EVOLVE_DATA_DIR", &c.Model.DataDir)
	envString("SYNTH_EVOLVE_STORE", &c.Model.Store)
	envInt("SYNTH_EVOLVE_SAMPLE_RATE", &c.Audio.SampleRate)
	envBool("SYNTH_EVOLVE_PLAYBACK", &c.Audio.Playback)

	// Volume as 0-100 percent
	if v := getenv("SYNTH_EVOLVE_VOLUME"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Audio.Volume = min(max(float64(n)/100, 0), 1)
		}
	}
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}
